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

// TermStore manages blog categories and series in the shared terms table.
type TermStore struct {
	db *sql.DB
}

var _ lifecycle.TermStore = (*TermStore)(nil)

// NewTermStore returns a new TermStore.
func NewTermStore(db *sql.DB) *TermStore {
	return &TermStore{db: db}
}

const termColumns = `id, kind, name, slug, description, created_at, updated_at`

// scanTerm scans a row into a Term struct.
func scanTerm(scanner interface{ Scan(...any) error }, extra ...any) (*models.Term, error) {
	var t models.Term
	dest := append([]any{
		&t.ID, &t.Kind, &t.Name, &t.Slug, &t.Description, &t.CreatedAt, &t.UpdatedAt,
	}, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTerm inserts a term with the ID chosen by the engine.
func (s *TermStore) CreateTerm(ctx context.Context, t *models.Term) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO terms (`+termColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Kind, t.Name, t.Slug, t.Description, t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("create term %q: %w", t.Slug, lifecycle.ErrDuplicateSlug)
	}
	if err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// FindTerm retrieves a term by ID. Returns nil if not found.
func (s *TermStore) FindTerm(ctx context.Context, id uuid.UUID) (*models.Term, error) {
	t, err := scanTerm(s.db.QueryRowContext(ctx,
		`SELECT `+termColumns+` FROM terms WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find term: %w", err)
	}
	return t, nil
}

// TermSlugExists checks whether a term of kind already uses slug.
func (s *TermStore) TermSlugExists(ctx context.Context, kind models.TermKind, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM terms WHERE kind = $1 AND slug = $2)`, kind, slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check term slug: %w", err)
	}
	return exists, nil
}

// ListTerms returns terms of kind ordered by name, with live post counts.
func (s *TermStore) ListTerms(ctx context.Context, kind models.TermKind) ([]models.Term, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.kind, t.name, t.slug, t.description, t.created_at, t.updated_at,
		       CASE WHEN t.kind = 'series' THEN (
		           SELECT COUNT(*) FROM content_items ci
		           WHERE ci.series_id = t.id AND ci.deleted_at IS NULL
		       ) ELSE (
		           SELECT COUNT(*) FROM content_categories cc
		           JOIN content_items ci ON ci.id = cc.item_id
		           WHERE cc.term_id = t.id AND ci.deleted_at IS NULL
		       ) END AS post_count
		FROM terms t
		WHERE t.kind = $1
		ORDER BY t.name`, kind)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	defer rows.Close()

	var terms []models.Term
	for rows.Next() {
		var count int
		t, err := scanTerm(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		t.PostCount = count
		terms = append(terms, *t)
	}
	return terms, rows.Err()
}

// DeleteTerm removes the term, detaches posts from it when it is a series
// and drops category links through the foreign key cascade.
func (s *TermStore) DeleteTerm(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE content_items SET series_id = NULL, series_position = 0 WHERE series_id = $1`, id,
	); err != nil {
		return fmt.Errorf("detach series: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM terms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	return tx.Commit()
}

// SetItemCategories replaces an item's category links, keeping the given order.
func (s *TermStore) SetItemCategories(ctx context.Context, itemID uuid.UUID, categoryIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM content_categories WHERE item_id = $1`, itemID); err != nil {
		return fmt.Errorf("clear item categories: %w", err)
	}

	if len(categoryIDs) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO content_categories (item_id, term_id, position) VALUES ($1, $2, $3)`)
		if err != nil {
			return fmt.Errorf("prepare item categories: %w", err)
		}
		defer stmt.Close()

		for i, termID := range categoryIDs {
			if _, err := stmt.ExecContext(ctx, itemID, termID, i); err != nil {
				return fmt.Errorf("link category %s: %w", termID, err)
			}
		}
	}

	return tx.Commit()
}

// ItemCategories returns the item's category IDs in assignment order.
func (s *TermStore) ItemCategories(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT term_id FROM content_categories
		WHERE item_id = $1
		ORDER BY position`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list item categories: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item category: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
