// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
)

// ContentStore handles all content-related database operations.
// It serves both posts and pages through the unified content_items table.
type ContentStore struct {
	db *sql.DB
}

var _ lifecycle.ItemStore = (*ContentStore)(nil)

// NewContentStore creates a new ContentStore with the given database connection.
func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

const itemColumns = `id, kind, title, slug, body, body_format, excerpt, status,
	author_id, word_count, reading_time, revision,
	is_locked, locked_by, locked_at,
	parent_id, depth, path,
	scheduled_for, published_at, deleted_at, is_system,
	template_id, visibility, password_hash, custom_css,
	is_featured, is_pinned, sort_order,
	series_id, series_position,
	created_at, updated_at`

func scanItem(scanner interface{ Scan(...any) error }) (*models.Item, error) {
	var c models.Item
	err := scanner.Scan(
		&c.ID, &c.Kind, &c.Title, &c.Slug, &c.Body, &c.BodyFormat, &c.Excerpt, &c.Status,
		&c.AuthorID, &c.WordCount, &c.ReadingTime, &c.Revision,
		&c.IsLocked, &c.LockedBy, &c.LockedAt,
		&c.ParentID, &c.Depth, &c.Path,
		&c.ScheduledFor, &c.PublishedAt, &c.DeletedAt, &c.IsSystem,
		&c.TemplateID, &c.Visibility, &c.PasswordHash, &c.CustomCSS,
		&c.IsFeatured, &c.IsPinned, &c.SortOrder,
		&c.SeriesID, &c.SeriesPosition,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanItems(rows *sql.Rows) ([]models.Item, error) {
	defer rows.Close()
	var items []models.Item
	for rows.Next() {
		c, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content item: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Create inserts an item with the ID and timestamps chosen by the engine.
func (s *ContentStore) Create(ctx context.Context, c *models.Item) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO content_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)`,
		c.ID, c.Kind, c.Title, c.Slug, c.Body, c.BodyFormat, c.Excerpt, c.Status,
		c.AuthorID, c.WordCount, c.ReadingTime, c.Revision,
		c.IsLocked, c.LockedBy, c.LockedAt,
		c.ParentID, c.Depth, c.Path,
		c.ScheduledFor, c.PublishedAt, c.DeletedAt, c.IsSystem,
		c.TemplateID, c.Visibility, c.PasswordHash, c.CustomCSS,
		c.IsFeatured, c.IsPinned, c.SortOrder,
		c.SeriesID, c.SeriesPosition,
		c.CreatedAt, c.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return lifecycle.ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("create content item: %w", err)
	}
	return nil
}

// FindByID retrieves an item by its UUID, soft-deleted or not. Returns nil if not found.
func (s *ContentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	c, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM content_items WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content item by id: %w", err)
	}
	return c, nil
}

// FindBySlug retrieves a live item by kind and slug. Returns nil if not found.
func (s *ContentStore) FindBySlug(ctx context.Context, kind models.ContentKind, slug string) (*models.Item, error) {
	c, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM content_items
		WHERE kind = $1 AND slug = $2 AND deleted_at IS NULL`, kind, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content item by slug: %w", err)
	}
	return c, nil
}

// FindByPath retrieves a live item by its materialized path. Returns nil if not found.
func (s *ContentStore) FindByPath(ctx context.Context, kind models.ContentKind, path string) (*models.Item, error) {
	c, err := scanItem(s.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+` FROM content_items
		WHERE kind = $1 AND path = $2 AND deleted_at IS NULL
		LIMIT 1`, kind, path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content item by path: %w", err)
	}
	return c, nil
}

// SlugExists checks whether a live item of kind already uses slug.
func (s *ContentStore) SlugExists(ctx context.Context, kind models.ContentKind, slug string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM content_items
			WHERE kind = $1 AND slug = $2 AND id <> $3 AND deleted_at IS NULL
		)`, kind, slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check content slug: %w", err)
	}
	return exists, nil
}

// Update writes the item when the row still carries guard.Revision and is
// unlocked or locked by guard.Holder. Lock columns, is_system and
// created_at are never written here.
func (s *ContentStore) Update(ctx context.Context, c *models.Item, guard lifecycle.WriteGuard) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE content_items SET
			title = $2, slug = $3, body = $4, body_format = $5, excerpt = $6, status = $7,
			author_id = $8, word_count = $9, reading_time = $10, revision = $11,
			parent_id = $12, depth = $13, path = $14,
			scheduled_for = $15, published_at = $16, deleted_at = $17,
			template_id = $18, visibility = $19, password_hash = $20, custom_css = $21,
			is_featured = $22, is_pinned = $23, sort_order = $24,
			series_id = $25, series_position = $26, updated_at = $27
		WHERE id = $1
		  AND revision = $28
		  AND ($29::boolean OR NOT is_locked OR locked_by = $30)`,
		c.ID, c.Title, c.Slug, c.Body, c.BodyFormat, c.Excerpt, c.Status,
		c.AuthorID, c.WordCount, c.ReadingTime, c.Revision,
		c.ParentID, c.Depth, c.Path,
		c.ScheduledFor, c.PublishedAt, c.DeletedAt,
		c.TemplateID, c.Visibility, c.PasswordHash, c.CustomCSS,
		c.IsFeatured, c.IsPinned, c.SortOrder,
		c.SeriesID, c.SeriesPosition, c.UpdatedAt,
		guard.Revision, guard.IgnoreLock, guard.Holder,
	)
	if isUniqueViolation(err) {
		return lifecycle.ErrDuplicateSlug
	}
	if err != nil {
		return fmt.Errorf("update content item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update content item rows: %w", err)
	}
	if n == 0 {
		return lifecycle.ErrStaleWrite
	}
	return nil
}

// query accumulates positional arguments for a dynamically built statement.
type query struct {
	where []string
	args  []any
}

// arg appends v and returns its placeholder.
func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) cond(c string) { q.where = append(q.where, c) }

func (q *query) clause() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func listQuery(f lifecycle.ListFilter) *query {
	q := &query{}
	switch {
	case f.OnlyDeleted:
		q.cond("deleted_at IS NOT NULL")
	case !f.IncludeDeleted:
		q.cond("deleted_at IS NULL")
	}
	if f.Kind != "" {
		q.cond("kind = " + q.arg(f.Kind))
	}
	if f.Status != "" {
		q.cond("status = " + q.arg(f.Status))
	}
	if f.RootsOnly {
		q.cond("parent_id IS NULL")
	}
	if f.ParentID != nil {
		q.cond("parent_id = " + q.arg(*f.ParentID))
	}
	if f.AuthorID != nil {
		q.cond("author_id = " + q.arg(*f.AuthorID))
	}
	if f.SeriesID != nil {
		q.cond("series_id = " + q.arg(*f.SeriesID))
	}
	if f.ExcludePrivate {
		q.cond("visibility <> 'private'")
	}
	if f.FeaturedOnly {
		q.cond("is_featured")
	}
	if f.CategoryID != nil {
		q.cond(`EXISTS (SELECT 1 FROM content_categories cc
			WHERE cc.item_id = content_items.id AND cc.term_id = ` + q.arg(*f.CategoryID) + `)`)
	}
	return q
}

// List returns one page of matching items and the total match count.
// Pinned items come first, then sort order, then newest. A zero Limit
// returns every match.
func (s *ContentStore) List(ctx context.Context, f lifecycle.ListFilter) ([]models.Item, int, error) {
	q := listQuery(f)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM content_items`+q.clause(), q.args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count content items: %w", err)
	}

	stmt := `SELECT ` + itemColumns + ` FROM content_items` + q.clause() +
		` ORDER BY is_pinned DESC, sort_order, created_at DESC, title`
	if f.Limit > 0 {
		stmt += " LIMIT " + q.arg(f.Limit)
	}
	if f.Offset > 0 {
		stmt += " OFFSET " + q.arg(f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list content items: %w", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Children returns live direct children ordered by sort order then title.
func (s *ContentStore) Children(ctx context.Context, parentID uuid.UUID) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM content_items
		WHERE parent_id = $1 AND deleted_at IS NULL
		ORDER BY sort_order, title`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return scanItems(rows)
}

// ListDueScheduled returns live scheduled items whose time has come, oldest first.
func (s *ContentStore) ListDueScheduled(ctx context.Context, now time.Time) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+itemColumns+` FROM content_items
		WHERE status = 'scheduled' AND scheduled_for <= $1 AND deleted_at IS NULL
		ORDER BY scheduled_for`, now)
	if err != nil {
		return nil, fmt.Errorf("list due scheduled: %w", err)
	}
	return scanItems(rows)
}

// TryLock takes the edit lock in a single conditional statement so two
// editors racing for the same row cannot both win.
func (s *ContentStore) TryLock(ctx context.Context, id, holder uuid.UUID, now, staleBefore time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE content_items SET is_locked = TRUE, locked_by = $2, locked_at = $3
		WHERE id = $1 AND deleted_at IS NULL
		  AND (NOT is_locked OR locked_by = $2 OR locked_at < $4)`,
		id, holder, now, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("lock content item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("lock content item rows: %w", err)
	}
	return n > 0, nil
}

// Unlock clears the lock when held by holder, or unconditionally if force.
func (s *ContentStore) Unlock(ctx context.Context, id, holder uuid.UUID, force bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE content_items SET is_locked = FALSE, locked_by = NULL, locked_at = NULL
		WHERE id = $1 AND is_locked AND ($3::boolean OR locked_by = $2)`,
		id, holder, force,
	)
	if err != nil {
		return false, fmt.Errorf("unlock content item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlock content item rows: %w", err)
	}
	return n > 0, nil
}

// ClearStaleLocks releases every lock taken before the cutoff.
func (s *ContentStore) ClearStaleLocks(ctx context.Context, before time.Time) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		UPDATE content_items SET is_locked = FALSE, locked_by = NULL, locked_at = NULL
		WHERE is_locked AND locked_at < $1
		RETURNING `+itemColumns, before)
	if err != nil {
		return nil, fmt.Errorf("clear stale locks: %w", err)
	}
	return scanItems(rows)
}

// ApplyPaths writes hierarchy positions for many pages in one transaction.
// An unknown id rolls the whole batch back.
func (s *ContentStore) ApplyPaths(ctx context.Context, updates []models.PathUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE content_items SET parent_id = $1, depth = $2, path = $3
		WHERE id = $4`)
	if err != nil {
		return fmt.Errorf("prepare apply paths: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		res, err := stmt.ExecContext(ctx, u.ParentID, u.Depth, u.Path, u.ID)
		if err != nil {
			return fmt.Errorf("apply path %s: %w", u.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("apply paths: item %s not found", u.ID)
		}
	}

	return tx.Commit()
}

// HardDelete removes the row. Revisions and category links cascade;
// children are detached by the parent_id foreign key.
func (s *ContentStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM content_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete content item: %w", err)
	}
	return nil
}

// Stats counts live items per status plus locked and soft-deleted totals.
func (s *ContentStore) Stats(ctx context.Context, kind models.ContentKind) (*models.ContentStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status,
		       COUNT(*) FILTER (WHERE deleted_at IS NULL),
		       COUNT(*) FILTER (WHERE deleted_at IS NOT NULL),
		       COUNT(*) FILTER (WHERE deleted_at IS NULL AND is_locked)
		FROM content_items
		WHERE kind = $1
		GROUP BY status`, kind)
	if err != nil {
		return nil, fmt.Errorf("content stats: %w", err)
	}
	defer rows.Close()

	st := &models.ContentStats{Kind: kind, ByStatus: map[string]int{}}
	for rows.Next() {
		var status string
		var live, deleted, locked int
		if err := rows.Scan(&status, &live, &deleted, &locked); err != nil {
			return nil, fmt.Errorf("scan content stats: %w", err)
		}
		if live > 0 {
			st.ByStatus[status] = live
		}
		st.Total += live
		st.Deleted += deleted
		st.Locked += locked
	}
	return st, rows.Err()
}
