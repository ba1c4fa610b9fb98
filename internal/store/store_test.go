// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"pressroom/internal/database"
	"pressroom/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "pressroom")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "pressroom")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Reset goose global state.
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// now returns the current time at database precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// uniqueSlug keeps parallel runs against a shared database apart.
func uniqueSlug(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// newItem builds a draft ready for ContentStore.Create.
func newItem(kind models.ContentKind, slug string, author uuid.UUID) *models.Item {
	ts := now()
	return &models.Item{
		ID:         uuid.New(),
		Kind:       kind,
		Title:      slug,
		Slug:       slug,
		Body:       "one two three",
		BodyFormat: models.BodyFormatMarkdown,
		Status:     models.StatusDraft,
		AuthorID:   author,
		WordCount:  3,
		Revision:   1,
		Path:       slug,
		Visibility: models.VisibilityPublic,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// createItem inserts an item and removes it when the test ends.
func createItem(t *testing.T, db *sql.DB, item *models.Item) *models.Item {
	t.Helper()
	if err := NewContentStore(db).Create(t.Context(), item); err != nil {
		t.Fatalf("Create %s: %v", item.Slug, err)
	}
	t.Cleanup(func() { cleanItems(db, item.ID) })
	return item
}

// cleanItems removes test items by id. Revisions and category links cascade.
func cleanItems(db *sql.DB, ids ...uuid.UUID) {
	for _, id := range ids {
		db.Exec("DELETE FROM content_items WHERE id = $1", id)
	}
}

// cleanTerms removes test terms by id.
func cleanTerms(db *sql.DB, ids ...uuid.UUID) {
	for _, id := range ids {
		db.Exec("DELETE FROM terms WHERE id = $1", id)
	}
}
