// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package lifecycle is the content engine shared by pages and blog posts.
// It owns the status machine, editor locks, the page hierarchy, revision
// history, scheduled publishing, bulk mutation and cache invalidation.
// Durable state lives behind the ItemStore and RevisionStore contracts;
// the engine keeps nothing between calls except what the cache holds.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/models"
	"pressroom/internal/sanitize"
	"pressroom/internal/slug"
)

// maxSlugRetries bounds re-allocation after the store rejects a slug that
// another writer claimed between the existence check and the insert.
const maxSlugRetries = 3

// Engine orchestrates content mutations. It is safe for concurrent use.
type Engine struct {
	items       ItemStore
	revisions   RevisionStore
	terms       TermStore
	cfg         config.Provider
	cache       Cache
	revalidator Revalidator
	audit       AuditLog
	log         *slog.Logger
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache sets the read-through cache. Without one every read misses.
func WithCache(c Cache) Option {
	return func(e *Engine) {
		if !isNil(c) {
			e.cache = c
		}
	}
}

// WithRevalidator sets the hook notified with changed public paths.
func WithRevalidator(r Revalidator) Option {
	return func(e *Engine) {
		if !isNil(r) {
			e.revalidator = r
		}
	}
}

// WithAuditLog records every invalidation.
func WithAuditLog(a AuditLog) Option {
	return func(e *Engine) {
		if !isNil(a) {
			e.audit = a
		}
	}
}

// WithTerms enables blog categories and series.
func WithTerms(t TermStore) Option {
	return func(e *Engine) {
		if !isNil(t) {
			e.terms = t
		}
	}
}

// isNil reports whether v is nil or holds a nil reference, so a typed nil
// collaborator counts as absent.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine. cfg is read on every call so runtime changes to
// the tunables take effect immediately.
func New(items ItemStore, revisions RevisionStore, cfg config.Provider, opts ...Option) *Engine {
	e := &Engine{
		items:     items,
		revisions: revisions,
		cfg:       cfg,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) clock() time.Time {
	return e.now().UTC()
}

// load returns a live item or a not-found error.
func (e *Engine) load(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := e.loadAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.IsDeleted() {
		return nil, notFound("item", id)
	}
	return item, nil
}

// loadAny returns an item even when soft-deleted.
func (e *Engine) loadAny(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := e.items.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	if item == nil {
		return nil, notFound("item", id)
	}
	return item, nil
}

// checkLock rejects writes from anyone but the current holder. An expired
// lock still blocks until it is taken over or swept.
func checkLock(rt config.Runtime, item *models.Item, actor uuid.UUID) error {
	if !rt.Features.Locking || !item.IsLocked || item.LockHeldBy(actor) {
		return nil
	}
	return locked(item.LockedBy)
}

// save performs the guarded write and classifies a rejected guard.
func (e *Engine) save(ctx context.Context, rt config.Runtime, item *models.Item, expected int, actor uuid.UUID) error {
	guard := WriteGuard{Revision: expected, Holder: actor, IgnoreLock: !rt.Features.Locking}
	return e.saveGuarded(ctx, rt, item, guard)
}

func (e *Engine) saveGuarded(ctx context.Context, rt config.Runtime, item *models.Item, guard WriteGuard) error {
	err := e.items.Update(ctx, item, guard)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDuplicateSlug):
		return &Error{Code: CodeConflict, Message: fmt.Sprintf("slug %q is already in use", item.Slug), Slug: item.Slug, Err: err}
	case errors.Is(err, ErrStaleWrite):
		return e.staleWrite(ctx, rt, item.ID, guard)
	default:
		return fmt.Errorf("update item: %w", err)
	}
}

// staleWrite re-reads the row to tell a lock clash from a lost update.
func (e *Engine) staleWrite(ctx context.Context, rt config.Runtime, id uuid.UUID, guard WriteGuard) error {
	current, err := e.load(ctx, id)
	if err != nil {
		return err
	}
	if !guard.IgnoreLock && rt.Features.Locking && current.IsLocked && !current.LockHeldBy(guard.Holder) {
		return locked(current.LockedBy)
	}
	return conflict("item %s was modified concurrently (revision %d, expected %d)", id, current.Revision, guard.Revision)
}

// allocateSlug derives a free slug for kind from source.
func (e *Engine) allocateSlug(ctx context.Context, rt config.Runtime, kind models.ContentKind, source string, system bool, excludeID uuid.UUID) (string, error) {
	alloc := slug.NewAllocator(rt.ReservedSlugs...)
	alloc.Now = e.clock
	got, err := alloc.Allocate(ctx, source, system, func(ctx context.Context, candidate string) (bool, error) {
		return e.items.SlugExists(ctx, kind, candidate, excludeID)
	})
	if errors.Is(err, slug.ErrExhausted) {
		return "", &Error{Code: CodeConflict, Message: "no free slug could be allocated", Slug: slug.Generate(source), Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("allocate slug: %w", err)
	}
	return got, nil
}

// derive sanitizes the body and recomputes word count, reading time and,
// when auto is set, the excerpt.
func derive(rt config.Runtime, item *models.Item, autoExcerpt bool) error {
	stored, rendered, err := sanitize.Body(item.BodyFormat, item.Body)
	if err != nil {
		return invalid("%v", err)
	}
	text := sanitize.PlainText(rendered)
	item.Body = stored
	item.WordCount = sanitize.WordCount(text)
	item.ReadingTime = sanitize.ReadingTime(item.WordCount, rt.WordsPerMinute)
	if autoExcerpt {
		item.Excerpt = sanitize.Excerpt(text, rt.ExcerptLength)
	}
	return nil
}

// autoExcerptOf returns the excerpt derive would produce for item's body.
func autoExcerptOf(rt config.Runtime, item *models.Item) string {
	_, rendered, err := sanitize.Body(item.BodyFormat, item.Body)
	if err != nil {
		return ""
	}
	return sanitize.Excerpt(sanitize.PlainText(rendered), rt.ExcerptLength)
}

// pathFor joins the parent's materialized path with itemSlug.
func pathFor(parent *models.Item, itemSlug string) string {
	if parent == nil || parent.Path == "" {
		return itemSlug
	}
	return parent.Path + "/" + itemSlug
}
