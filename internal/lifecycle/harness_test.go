package lifecycle_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/lifecycle"
	"pressroom/internal/memstore"
	"pressroom/internal/models"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// revalidations records every Notify call.
type revalidations struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *revalidations) Notify(_ context.Context, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string(nil), paths...))
	return r.err
}

func (r *revalidations) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *revalidations) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *revalidations) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	db     *memstore.DB
	cache  *memstore.Cache
	hook   *revalidations
	clock  *fakeClock
	live   *config.Live
	engine *lifecycle.Engine
	actor  uuid.UUID
}

func newHarness(t *testing.T, tune ...func(*config.Runtime)) *harness {
	t.Helper()
	rt := config.DefaultRuntime()
	for _, fn := range tune {
		fn(&rt)
	}
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		db:    memstore.New(),
		cache: memstore.NewCache(),
		hook:  &revalidations{},
		clock: &fakeClock{now: t0},
		live:  config.NewLive(rt),
		actor: uuid.New(),
	}
	h.engine = lifecycle.New(h.db.Items(), h.db.Revisions(), h.live,
		lifecycle.WithCache(h.cache),
		lifecycle.WithRevalidator(h.hook),
		lifecycle.WithTerms(h.db.Terms()),
		lifecycle.WithClock(h.clock.Now),
		lifecycle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return h
}

// engineWith builds a second engine over the harness state with the given
// stores in place of the in-memory ones.
func (h *harness) engineWith(items lifecycle.ItemStore, revs lifecycle.RevisionStore) *lifecycle.Engine {
	return lifecycle.New(items, revs, h.live,
		lifecycle.WithCache(h.cache),
		lifecycle.WithClock(h.clock.Now),
		lifecycle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// flakyItems fails selected writes.
type flakyItems struct {
	lifecycle.ItemStore
	updateErr error
	applyErr  error
}

func (s *flakyItems) Update(ctx context.Context, item *models.Item, guard lifecycle.WriteGuard) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	return s.ItemStore.Update(ctx, item, guard)
}

func (s *flakyItems) ApplyPaths(ctx context.Context, updates []models.PathUpdate) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	return s.ItemStore.ApplyPaths(ctx, updates)
}

// flakyRevisions fails snapshot writes or pruning.
type flakyRevisions struct {
	lifecycle.RevisionStore
	createErr error
	pruneErr  error
}

func (s *flakyRevisions) Create(ctx context.Context, rev *models.Revision) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.RevisionStore.Create(ctx, rev)
}

func (s *flakyRevisions) DeleteOldest(ctx context.Context, itemID uuid.UUID, keep int) (int64, error) {
	if s.pruneErr != nil {
		return 0, s.pruneErr
	}
	return s.RevisionStore.DeleteOldest(ctx, itemID, keep)
}

func (h *harness) create(kind models.ContentKind, title string, opts ...func(*lifecycle.CreateInput)) *models.Item {
	h.t.Helper()
	in := lifecycle.CreateInput{Kind: kind, Title: title, Body: "one two three", AuthorID: h.actor}
	for _, fn := range opts {
		fn(&in)
	}
	item, err := h.engine.Create(h.ctx, in)
	if err != nil {
		h.t.Fatalf("Create(%q): %v", title, err)
	}
	return item
}

func (h *harness) page(title string, parent *models.Item) *models.Item {
	h.t.Helper()
	return h.create(models.KindPage, title, func(in *lifecycle.CreateInput) {
		if parent != nil {
			pid := parent.ID
			in.ParentID = &pid
		}
	})
}

// stored reads the row directly, bypassing the engine and its cache.
func (h *harness) stored(id uuid.UUID) *models.Item {
	h.t.Helper()
	item, err := h.db.Items().FindByID(h.ctx, id)
	if err != nil || item == nil {
		h.t.Fatalf("FindByID(%s) = %v, %v", id, item, err)
	}
	return item
}

func (h *harness) retitle(id, actor uuid.UUID, title string) (*models.Item, error) {
	return h.engine.Update(h.ctx, id, actor, lifecycle.UpdateInput{Title: &title})
}

func ptr[T any](v T) *T { return &v }

func wantCode(t *testing.T, err error, want lifecycle.Code) *lifecycle.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want %s", want)
	}
	var e *lifecycle.Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %v (%T), want *lifecycle.Error with code %s", err, err, want)
	}
	if e.Code != want {
		t.Fatalf("code = %s (%v), want %s", e.Code, err, want)
	}
	return e
}
