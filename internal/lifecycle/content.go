// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"pressroom/internal/config"
	"pressroom/internal/models"
	"pressroom/internal/sanitize"
)

const (
	maxTitleLength    = 300
	minPasswordLength = 4
)

// CreateInput describes a new item. Status defaults to draft, or to
// scheduled when ScheduledFor is set.
type CreateInput struct {
	Kind         models.ContentKind   `json:"kind"`
	Title        string               `json:"title"`
	Slug         string               `json:"slug"`
	Body         string               `json:"body"`
	BodyFormat   models.BodyFormat    `json:"body_format"`
	Excerpt      string               `json:"excerpt"`
	AuthorID     uuid.UUID            `json:"author_id"`
	Status       models.ContentStatus `json:"status"`
	ScheduledFor *time.Time           `json:"scheduled_for"`
	ParentID     *uuid.UUID           `json:"parent_id"`
	TemplateID   string               `json:"template_id"`
	Visibility   models.Visibility    `json:"visibility"`
	Password     string               `json:"password"`
	CustomCSS    string               `json:"custom_css"`
	IsFeatured   bool                 `json:"is_featured"`
	IsPinned     bool                 `json:"is_pinned"`
	SortOrder    int                  `json:"sort_order"`
	IsSystem     bool                 `json:"-"`
}

// UpdateInput carries a partial update; nil fields are left alone.
// ExpectedRevision, when non-zero, must match the stored counter.
type UpdateInput struct {
	Title            *string            `json:"title"`
	Slug             *string            `json:"slug"`
	Body             *string            `json:"body"`
	BodyFormat       *models.BodyFormat `json:"body_format"`
	Excerpt          *string            `json:"excerpt"`
	TemplateID       *string            `json:"template_id"`
	Visibility       *models.Visibility `json:"visibility"`
	Password         *string            `json:"password"`
	CustomCSS        *string            `json:"custom_css"`
	IsFeatured       *bool              `json:"is_featured"`
	IsPinned         *bool              `json:"is_pinned"`
	SortOrder        *int               `json:"sort_order"`
	ExpectedRevision int                `json:"expected_revision"`
	Note             string             `json:"note"`
}

func cleanTitle(raw string) (string, error) {
	title := sanitize.Text(raw)
	if title == "" {
		return "", invalid("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", invalid("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func checkFormat(f models.BodyFormat) (models.BodyFormat, error) {
	switch f {
	case "":
		return models.BodyFormatMarkdown, nil
	case models.BodyFormatMarkdown, models.BodyFormatHTML:
		return f, nil
	}
	return "", invalid("unknown body format %q", f)
}

// applyVisibility sets visibility and hashes a new password when given.
func applyVisibility(rt config.Runtime, item *models.Item, v models.Visibility, password *string) error {
	if v == "" {
		v = models.VisibilityPublic
	}
	if !v.Valid() {
		return invalid("unknown visibility %q", v)
	}
	if v != models.VisibilityPassword {
		item.Visibility = v
		item.PasswordHash = ""
		return nil
	}
	if !rt.Features.PasswordProtection {
		return disabled("password protection")
	}
	if password != nil && *password != "" {
		if len(*password) < minPasswordLength {
			return invalid("password must be at least %d characters", minPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		item.PasswordHash = string(hash)
	}
	if item.PasswordHash == "" {
		return invalid("password visibility requires a password")
	}
	item.Visibility = v
	return nil
}

// Create validates, sanitizes and stores a new item.
func (e *Engine) Create(ctx context.Context, in CreateInput) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	now := e.clock()

	if !in.Kind.Valid() {
		return nil, invalid("unknown content kind %q", in.Kind)
	}
	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	format, err := checkFormat(in.BodyFormat)
	if err != nil {
		return nil, err
	}

	item := &models.Item{
		ID:         uuid.New(),
		Kind:       in.Kind,
		Title:      title,
		Body:       in.Body,
		BodyFormat: format,
		Excerpt:    sanitize.Text(in.Excerpt),
		Status:     models.StatusDraft,
		AuthorID:   in.AuthorID,
		Revision:   1,
		TemplateID: in.TemplateID,
		CustomCSS:  sanitize.CSS(in.CustomCSS),
		IsFeatured: in.IsFeatured,
		IsPinned:   in.IsPinned,
		SortOrder:  in.SortOrder,
		IsSystem:   in.IsSystem,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := derive(rt, item, item.Excerpt == ""); err != nil {
		return nil, err
	}
	password := in.Password
	if err := applyVisibility(rt, item, in.Visibility, &password); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.StatusDraft
		if in.ScheduledFor != nil {
			status = models.StatusScheduled
		}
	}
	switch status {
	case models.StatusDraft:
	case models.StatusPublished:
		item.Status = models.StatusPublished
		item.PublishedAt = &now
	case models.StatusScheduled:
		if err := schedule(rt, item, in.ScheduledFor, now); err != nil {
			return nil, err
		}
	default:
		return nil, invalid("items cannot be created as %q", status)
	}

	var parent *models.Item
	if in.ParentID != nil {
		if parent, err = e.parentFor(ctx, rt, item, *in.ParentID); err != nil {
			return nil, err
		}
		if depth := parent.Depth + 1; depth > rt.MaxDepth {
			return nil, maxDepth(depth, rt.MaxDepth)
		}
		pid := parent.ID
		item.ParentID = &pid
		item.Depth = parent.Depth + 1
	}

	source := in.Slug
	if source == "" {
		source = title
	}
	for attempt := 0; ; attempt++ {
		if item.Slug, err = e.allocateSlug(ctx, rt, item.Kind, source, item.IsSystem, uuid.Nil); err != nil {
			return nil, err
		}
		if item.Kind.Hierarchical() {
			item.Path = pathFor(parent, item.Slug)
		}
		err = e.items.Create(ctx, item)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateSlug) || attempt+1 >= maxSlugRetries {
			if errors.Is(err, ErrDuplicateSlug) {
				return nil, &Error{Code: CodeConflict, Message: "slug already in use", Slug: item.Slug, Err: err}
			}
			return nil, fmt.Errorf("create item: %w", err)
		}
		e.log.Debug("slug claimed concurrently, reallocating", "slug", item.Slug)
	}

	e.log.Info("content created", "id", item.ID, "kind", item.Kind, "slug", item.Slug, "status", item.Status)
	cs := newChangeSet()
	cs.item(nil, item, "create")
	e.invalidate(ctx, cs)
	return item, nil
}

// Update applies a partial update. Title, body or excerpt changes snapshot
// the previous state and advance the revision counter by one.
func (e *Engine) Update(ctx context.Context, id, actor uuid.UUID, in UpdateInput) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	cs := newChangeSet()
	item, err := e.update(ctx, cs, rt, id, actor, in)
	e.invalidate(ctx, cs)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine) update(ctx context.Context, cs *changeSet, rt config.Runtime, id, actor uuid.UUID, in UpdateInput) (*models.Item, error) {
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.ExpectedRevision != 0 && in.ExpectedRevision != item.Revision {
		return nil, conflict("item %s is at revision %d, expected %d", id, item.Revision, in.ExpectedRevision)
	}
	if err := checkLock(rt, item, actor); err != nil {
		return nil, err
	}
	prev := item.Clone()

	if in.Title != nil {
		if item.Title, err = cleanTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.BodyFormat != nil {
		if item.BodyFormat, err = checkFormat(*in.BodyFormat); err != nil {
			return nil, err
		}
	}
	autoExcerpt := false
	if in.Excerpt != nil {
		item.Excerpt = sanitize.Text(*in.Excerpt)
		autoExcerpt = item.Excerpt == ""
	} else if in.Body != nil || in.BodyFormat != nil {
		autoExcerpt = prev.Excerpt == autoExcerptOf(rt, prev)
	}
	if in.Body != nil {
		item.Body = *in.Body
	}
	if err := derive(rt, item, autoExcerpt); err != nil {
		return nil, err
	}

	if in.TemplateID != nil {
		item.TemplateID = *in.TemplateID
	}
	if in.CustomCSS != nil {
		item.CustomCSS = sanitize.CSS(*in.CustomCSS)
	}
	if in.IsFeatured != nil {
		item.IsFeatured = *in.IsFeatured
	}
	if in.IsPinned != nil {
		item.IsPinned = *in.IsPinned
	}
	if in.SortOrder != nil {
		item.SortOrder = *in.SortOrder
	}
	if in.Visibility != nil || in.Password != nil {
		v := item.Visibility
		if in.Visibility != nil {
			v = *in.Visibility
		}
		if err := applyVisibility(rt, item, v, in.Password); err != nil {
			return nil, err
		}
	}

	textChanged := item.Title != prev.Title || item.Body != prev.Body || item.Excerpt != prev.Excerpt
	if textChanged {
		item.Revision = prev.Revision + 1
	}
	item.UpdatedAt = e.clock()

	var parent *models.Item
	if item.Kind.Hierarchical() && item.ParentID != nil {
		if parent, err = e.items.FindByID(ctx, *item.ParentID); err != nil {
			return nil, fmt.Errorf("find parent: %w", err)
		}
	}

	var rev *models.Revision
	if textChanged {
		if rev, err = e.record(ctx, rt, prev, prev.Revision, actor, in.Note); err != nil {
			return nil, err
		}
	}
	if err := e.saveUpdate(ctx, rt, item, prev, parent, in.Slug, actor); err != nil {
		e.discard(ctx, rev)
		return nil, err
	}
	cs.item(prev, item, "update")
	if rev != nil {
		e.prune(ctx, rt, item.ID)
	}
	if item.Kind.Hierarchical() && item.Path != prev.Path {
		if err := e.rebuild(ctx, cs, item); err != nil {
			return nil, err
		}
	}

	e.log.Info("content updated", "id", item.ID, "revision", item.Revision, "slug", item.Slug)
	return item, nil
}

// saveUpdate applies a requested slug and performs the guarded write,
// re-allocating the slug when a concurrent writer claimed it first.
func (e *Engine) saveUpdate(ctx context.Context, rt config.Runtime, item, prev, parent *models.Item, requested *string, actor uuid.UUID) error {
	for attempt := 0; ; attempt++ {
		if requested != nil {
			if err := e.reslug(ctx, rt, item, prev, *requested); err != nil {
				return err
			}
		}
		if item.Kind.Hierarchical() {
			item.Path = pathFor(parent, item.Slug)
		}
		err := e.save(ctx, rt, item, prev.Revision, actor)
		if err == nil {
			return nil
		}
		if requested == nil || !errors.Is(err, ErrDuplicateSlug) || attempt+1 >= maxSlugRetries {
			return err
		}
	}
}

// reslug applies a requested slug. System slugs never change; others only
// change when the allocated value differs from the current one.
func (e *Engine) reslug(ctx context.Context, rt config.Runtime, item, prev *models.Item, requested string) error {
	if requested == "" {
		requested = item.Title
	}
	if item.IsSystem {
		if requested != prev.Slug {
			return forbidden("the slug of system item %s cannot change", item.ID)
		}
		return nil
	}
	next, err := e.allocateSlug(ctx, rt, item.Kind, requested, false, item.ID)
	if err != nil {
		return err
	}
	if next != item.Slug {
		item.Slug = next
	}
	return nil
}

// Get returns a live item by id.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	return cached(ctx, e, itemKey(id), rt.CacheTTL(), func() (*models.Item, error) {
		item, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return item, e.attachCategories(ctx, item)
	})
}

// GetAny returns an item by id even when it is soft-deleted. It reads
// through to the store so trashed rows never enter the cache.
func (e *Engine) GetAny(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := e.loadAny(ctx, id)
	if err != nil {
		return nil, err
	}
	return item, e.attachCategories(ctx, item)
}

// GetBySlug returns a live item of kind by slug.
func (e *Engine) GetBySlug(ctx context.Context, kind models.ContentKind, s string) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	return cached(ctx, e, slugKey(kind, s), rt.CacheTTL(), func() (*models.Item, error) {
		item, err := e.items.FindBySlug(ctx, kind, s)
		if err != nil {
			return nil, fmt.Errorf("find item by slug: %w", err)
		}
		if item == nil {
			return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", kind, s), Slug: s}
		}
		return item, e.attachCategories(ctx, item)
	})
}

// GetByPath returns a live page by its materialized path.
func (e *Engine) GetByPath(ctx context.Context, path string) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	return cached(ctx, e, pathKey(path), rt.CacheTTL(), func() (*models.Item, error) {
		item, err := e.items.FindByPath(ctx, models.KindPage, path)
		if err != nil {
			return nil, fmt.Errorf("find page by path: %w", err)
		}
		if item == nil {
			return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("page %q not found", path)}
		}
		return item, nil
	})
}

func (e *Engine) attachCategories(ctx context.Context, item *models.Item) error {
	if e.terms == nil || item.Kind != models.KindPost {
		return nil
	}
	ids, err := e.terms.ItemCategories(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	item.CategoryIDs = ids
	return nil
}

// Delete soft-deletes an item: it moves to archived and leaves every
// default listing. System items and pages with live children are refused.
func (e *Engine) Delete(ctx context.Context, id, actor uuid.UUID) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	cs := newChangeSet()
	item, err := e.softDelete(ctx, cs, rt, id, actor)
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx, cs)
	return item, nil
}

func (e *Engine) softDelete(ctx context.Context, cs *changeSet, rt config.Runtime, id, actor uuid.UUID) (*models.Item, error) {
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.IsSystem {
		return nil, forbidden("system item %s cannot be deleted", id)
	}
	if err := checkLock(rt, item, actor); err != nil {
		return nil, err
	}
	if err := e.refuseLiveChildren(ctx, item); err != nil {
		return nil, err
	}

	prev := item.Clone()
	now := e.clock()
	item.Status = models.StatusArchived
	item.DeletedAt = &now
	item.ScheduledFor = nil
	item.UpdatedAt = now
	if err := e.save(ctx, rt, item, prev.Revision, actor); err != nil {
		return nil, err
	}
	if item.IsLocked {
		if _, err := e.items.Unlock(ctx, id, actor, true); err != nil {
			return nil, fmt.Errorf("release lock: %w", err)
		}
		item.IsLocked, item.LockedBy, item.LockedAt = false, nil, nil
	}

	e.log.Info("content deleted", "id", id, "kind", item.Kind, "slug", item.Slug)
	cs.item(prev, item, "delete")
	return item, nil
}

func (e *Engine) refuseLiveChildren(ctx context.Context, item *models.Item) error {
	if !item.Kind.Hierarchical() {
		return nil
	}
	children, err := e.items.Children(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("list children: %w", err)
	}
	if len(children) > 0 {
		return conflict("page %s has %d live child pages; move or delete them first", item.ID, len(children))
	}
	return nil
}

// HardDelete permanently removes an item, its revisions first.
func (e *Engine) HardDelete(ctx context.Context, id, actor uuid.UUID) error {
	rt := e.cfg.Snapshot()
	item, err := e.loadAny(ctx, id)
	if err != nil {
		return err
	}
	if item.IsSystem {
		return forbidden("system item %s cannot be deleted", id)
	}
	if err := checkLock(rt, item, actor); err != nil {
		return err
	}
	if err := e.refuseLiveChildren(ctx, item); err != nil {
		return err
	}

	if err := e.revisions.DeleteByItem(ctx, id); err != nil {
		return fmt.Errorf("delete revisions: %w", err)
	}
	if e.terms != nil && item.Kind == models.KindPost {
		if err := e.terms.SetItemCategories(ctx, id, nil); err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}
	}
	if err := e.items.HardDelete(ctx, id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	e.log.Info("content permanently deleted", "id", id, "kind", item.Kind, "slug", item.Slug)
	cs := newChangeSet()
	cs.item(item, item, "purge")
	e.invalidate(ctx, cs)
	return nil
}

// Restore brings a soft-deleted or archived item back as a draft. A slug
// claimed meanwhile is re-allocated; a vanished parent makes it a root.
func (e *Engine) Restore(ctx context.Context, id, actor uuid.UUID) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	cs := newChangeSet()
	item, err := e.restore(ctx, cs, rt, id, actor)
	e.invalidate(ctx, cs)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine) restore(ctx context.Context, cs *changeSet, rt config.Runtime, id, actor uuid.UUID) (*models.Item, error) {
	item, err := e.loadAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.IsDeleted() && item.Status != models.StatusArchived {
		return nil, invalid("item %s is not archived", id)
	}
	if err := checkLock(rt, item, actor); err != nil {
		return nil, err
	}
	prev := item.Clone()
	item.Status = models.StatusDraft
	item.DeletedAt = nil
	item.UpdatedAt = e.clock()

	var parent *models.Item
	if item.Kind.Hierarchical() && item.ParentID != nil {
		parent, err = e.items.FindByID(ctx, *item.ParentID)
		if err != nil {
			return nil, fmt.Errorf("find parent: %w", err)
		}
		if parent == nil || parent.IsDeleted() {
			parent = nil
			item.ParentID = nil
			item.Depth = 0
		}
	}
	if parent != nil {
		// The parent may have moved deeper while the page was in the trash.
		height, err := e.subtreeHeight(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if depth := parent.Depth + 1 + height; depth > rt.MaxDepth {
			return nil, maxDepth(depth, rt.MaxDepth)
		}
	}

	for attempt := 0; ; attempt++ {
		if prev.IsDeleted() {
			taken, err := e.items.SlugExists(ctx, item.Kind, item.Slug, item.ID)
			if err != nil {
				return nil, fmt.Errorf("check slug: %w", err)
			}
			if taken {
				if item.Slug, err = e.allocateSlug(ctx, rt, item.Kind, item.Slug, item.IsSystem, item.ID); err != nil {
					return nil, err
				}
			}
		}
		if item.Kind.Hierarchical() {
			item.Path = pathFor(parent, item.Slug)
			if parent != nil {
				item.Depth = parent.Depth + 1
			}
		}
		err = e.save(ctx, rt, item, prev.Revision, actor)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrDuplicateSlug) || attempt+1 >= maxSlugRetries {
			return nil, err
		}
	}
	cs.item(prev, item, "restore")
	if item.Kind.Hierarchical() && item.Path != prev.Path {
		if err := e.rebuild(ctx, cs, item); err != nil {
			return nil, err
		}
	}

	e.log.Info("content restored", "id", id, "slug", item.Slug)
	return item, nil
}

// VerifyPassword checks a reader-supplied password against a
// password-protected item. Items without password visibility always pass.
func (e *Engine) VerifyPassword(ctx context.Context, id uuid.UUID, password string) (bool, error) {
	item, err := e.load(ctx, id)
	if err != nil {
		return false, err
	}
	if item.Visibility != models.VisibilityPassword {
		return true, nil
	}
	err = bcrypt.CompareHashAndPassword([]byte(item.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password: %w", err)
	}
	return true, nil
}
