// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/sanitize"
)

// systemPage is a page the site cannot work without. Seeded pages are
// flagged is_system so the engine refuses to delete them or change their slug.
type systemPage struct {
	Slug  string
	Title string
	Body  string
}

var systemPages = []systemPage{
	{Slug: "home", Title: "Home", Body: "Welcome."},
	{Slug: "blog", Title: "Blog"},
	{Slug: "404", Title: "Page Not Found", Body: "The page you are looking for does not exist."},
}

// SystemAuthor owns seeded content.
var SystemAuthor = uuid.Nil

// Seed creates the system pages and an empty site_settings row for every
// runtime override key. Existing rows are left untouched, so it is safe to
// run on every start.
func Seed(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	created := 0
	for _, p := range systemPages {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO content_items (kind, title, slug, body, status, author_id,
			                           word_count, reading_time, path, is_system, published_at)
			VALUES ('page', $1, $2, $3, 'published', $4, $5, 1, $2, TRUE, NOW())
			ON CONFLICT (kind, slug) WHERE deleted_at IS NULL DO NOTHING`,
			p.Title, p.Slug, p.Body, SystemAuthor, sanitize.WordCount(p.Body),
		)
		if err != nil {
			return fmt.Errorf("seed page %s: %w", p.Slug, err)
		}
		n, _ := res.RowsAffected()
		created += int(n)
	}

	for _, key := range config.SettingKeys() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO site_settings (key, value) VALUES ($1, '') ON CONFLICT (key) DO NOTHING`, key,
		); err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	if created == 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}
	slog.Info("database seeded with system pages", "created", created)
	return nil
}
