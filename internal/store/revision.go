// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
)

// revisionColumns lists all columns for content_revisions SELECTs.
const revisionColumns = `id, item_id, number, title, body, excerpt, note, author_id, created_at`

// newestFirst orders snapshots by revision number; seq breaks ties in
// insertion order.
const newestFirst = `ORDER BY number DESC, seq DESC`

// RevisionStore provides access to content revision data in PostgreSQL.
type RevisionStore struct {
	db *sql.DB
}

var _ lifecycle.RevisionStore = (*RevisionStore)(nil)

// NewRevisionStore creates a new RevisionStore backed by the given database.
func NewRevisionStore(db *sql.DB) *RevisionStore {
	return &RevisionStore{db: db}
}

// scanRevision scans a single content_revisions row into a Revision.
func scanRevision(scanner interface{ Scan(...any) error }) (*models.Revision, error) {
	var r models.Revision
	err := scanner.Scan(
		&r.ID, &r.ItemID, &r.Number, &r.Title, &r.Body, &r.Excerpt,
		&r.Note, &r.AuthorID, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a snapshot.
func (s *RevisionStore) Create(ctx context.Context, rev *models.Revision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_revisions (`+revisionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rev.ID, rev.ItemID, rev.Number, rev.Title, rev.Body, rev.Excerpt,
		rev.Note, rev.AuthorID, rev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create revision: %w", err)
	}
	return nil
}

// FindByID retrieves a single revision. Returns nil if not found.
func (s *RevisionStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Revision, error) {
	r, err := scanRevision(s.db.QueryRowContext(ctx,
		`SELECT `+revisionColumns+` FROM content_revisions WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find revision: %w", err)
	}
	return r, nil
}

// ListByItem returns all revisions for an item, newest first.
func (s *RevisionStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+revisionColumns+` FROM content_revisions
		WHERE item_id = $1 `+newestFirst, itemID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var revs []models.Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, *r)
	}
	return revs, rows.Err()
}

// DeleteOldest removes all but the keep newest revisions of an item and
// reports how many were pruned.
func (s *RevisionStore) DeleteOldest(ctx context.Context, itemID uuid.UUID, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM content_revisions
		WHERE item_id = $1 AND id NOT IN (
			SELECT id FROM content_revisions
			WHERE item_id = $1 `+newestFirst+`
			LIMIT $2
		)`, itemID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune revisions rows: %w", err)
	}
	return n, nil
}

// Delete removes a single revision.
func (s *RevisionStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_revisions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete revision: %w", err)
	}
	return nil
}

// DeleteByItem removes every revision of an item.
func (s *RevisionStore) DeleteByItem(ctx context.Context, itemID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_revisions WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	return nil
}
