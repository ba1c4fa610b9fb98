package store

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
)

// TestEngineOverPostgres drives the lifecycle engine through the SQL stores
// so guarded updates, locks and path rewrites are checked against the
// real schema.
func TestEngineOverPostgres(t *testing.T) {
	db := testDB(t)
	ctx := t.Context()
	eng := lifecycle.New(NewContentStore(db), NewRevisionStore(db), config.Static(config.DefaultRuntime()),
		lifecycle.WithTerms(NewTermStore(db)),
		lifecycle.WithAuditLog(NewCacheLogStore(db)),
		lifecycle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	author, editor := uuid.New(), uuid.New()
	tag := uuid.NewString()[:8]

	var created []uuid.UUID
	t.Cleanup(func() {
		cleanItems(db, created...)
		for _, id := range created {
			db.Exec("DELETE FROM cache_invalidation_log WHERE entity_id = $1", id)
		}
	})
	create := func(in lifecycle.CreateInput) *models.Item {
		t.Helper()
		in.AuthorID = author
		item, err := eng.Create(ctx, in)
		if err != nil {
			t.Fatalf("Create %q: %v", in.Title, err)
		}
		created = append(created, item.ID)
		return item
	}

	parent := create(lifecycle.CreateInput{Kind: models.KindPage, Title: "Docs " + tag})
	child := create(lifecycle.CreateInput{Kind: models.KindPage, Title: "Guide " + tag, ParentID: &parent.ID})
	if child.Path != parent.Slug+"/"+child.Slug || child.Depth != 1 {
		t.Fatalf("child path = %q depth %d", child.Path, child.Depth)
	}

	// Slug change on the parent rewrites the child's path.
	newSlug := "manual-" + tag
	if _, err := eng.Update(ctx, parent.ID, author, lifecycle.UpdateInput{Slug: &newSlug}); err != nil {
		t.Fatalf("Update slug: %v", err)
	}
	got, err := eng.GetByPath(ctx, newSlug+"/"+child.Slug)
	if err != nil || got.ID != child.ID {
		t.Fatalf("GetByPath after rename = %v, %v", got, err)
	}

	// Locks are exclusive across holders.
	if _, err := eng.AcquireLock(ctx, child.ID, editor); err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	title := "Blocked"
	if _, err := eng.Update(ctx, child.ID, author, lifecycle.UpdateInput{Title: &title}); !errors.Is(err, lifecycle.ErrLocked) {
		t.Fatalf("update under foreign lock = %v, want locked", err)
	}
	title = "Guide v2"
	updated, err := eng.Update(ctx, child.ID, editor, lifecycle.UpdateInput{Title: &title, ExpectedRevision: 1})
	if err != nil || updated.Revision != 2 {
		t.Fatalf("holder update = %v, %v", updated, err)
	}
	if err := eng.ReleaseLock(ctx, child.ID, editor, false); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}

	revs, err := eng.Revisions(ctx, child.ID)
	if err != nil || len(revs) != 1 || revs[0].Number != 1 {
		t.Fatalf("revisions = %+v, %v", revs, err)
	}

	// Publishing and soft deletion.
	post := create(lifecycle.CreateInput{Kind: models.KindPost, Title: "Launch " + tag})
	if _, err := eng.Publish(ctx, post.ID, author); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := eng.Delete(ctx, parent.ID, author); !errors.Is(err, lifecycle.ErrConflict) {
		t.Fatalf("delete parent with children = %v, want conflict", err)
	}
	deleted, err := eng.Delete(ctx, post.ID, author)
	if err != nil || !deleted.IsDeleted() {
		t.Fatalf("Delete = %v, %v", deleted, err)
	}
	restored, err := eng.Restore(ctx, post.ID, author)
	if err != nil || restored.IsDeleted() || restored.Status != models.StatusDraft {
		t.Fatalf("Restore = %+v, %v", restored, err)
	}

	var logged int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM cache_invalidation_log WHERE entity_id = $1", post.ID,
	).Scan(&logged); err != nil {
		t.Fatal(err)
	}
	if logged != 4 {
		t.Errorf("audit entries for the post = %d, want create, publish, delete and restore", logged)
	}
}
