// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/models"
)

// WriteGuard conditions a single-row update. The store must apply the
// write only if the row still carries Revision and is either unlocked or
// locked by Holder. IgnoreLock drops the lock condition.
type WriteGuard struct {
	Revision   int
	Holder     uuid.UUID
	IgnoreLock bool
}

// ListFilter narrows a listing. Zero values mean "any".
type ListFilter struct {
	Kind           models.ContentKind
	Status         models.ContentStatus
	ParentID       *uuid.UUID
	RootsOnly      bool
	AuthorID       *uuid.UUID
	CategoryID     *uuid.UUID
	SeriesID       *uuid.UUID
	FeaturedOnly   bool
	ExcludePrivate bool
	IncludeDeleted bool
	OnlyDeleted    bool
	Limit          int
	Offset         int
}

// ItemStore persists content items. Finders return (nil, nil) on a miss.
type ItemStore interface {
	Create(ctx context.Context, item *models.Item) error
	// FindByID returns the item even when soft-deleted.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Item, error)
	FindBySlug(ctx context.Context, kind models.ContentKind, slug string) (*models.Item, error)
	FindByPath(ctx context.Context, kind models.ContentKind, path string) (*models.Item, error)
	// SlugExists checks live items of kind, ignoring excludeID.
	SlugExists(ctx context.Context, kind models.ContentKind, slug string, excludeID uuid.UUID) (bool, error)
	// Update writes every mutable column except the lock columns, which
	// only TryLock, Unlock and ClearStaleLocks change. Returns ErrStaleWrite
	// when the guard does not match and ErrDuplicateSlug on a slug clash.
	Update(ctx context.Context, item *models.Item, guard WriteGuard) error
	List(ctx context.Context, filter ListFilter) ([]models.Item, int, error)
	// Children returns live direct children ordered by sort order then title.
	Children(ctx context.Context, parentID uuid.UUID) ([]models.Item, error)
	ListDueScheduled(ctx context.Context, now time.Time) ([]models.Item, error)
	// TryLock grants the lock when the item is live and unlocked, already
	// held by holder, or held with locked_at before staleBefore.
	TryLock(ctx context.Context, id, holder uuid.UUID, now, staleBefore time.Time) (bool, error)
	// Unlock clears the lock when held by holder, or unconditionally if force.
	Unlock(ctx context.Context, id, holder uuid.UUID, force bool) (bool, error)
	// ClearStaleLocks releases every lock taken before the cutoff in one
	// statement and returns the released items.
	ClearStaleLocks(ctx context.Context, before time.Time) ([]models.Item, error)
	// ApplyPaths writes hierarchy positions for many items atomically.
	ApplyPaths(ctx context.Context, updates []models.PathUpdate) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, kind models.ContentKind) (*models.ContentStats, error)
}

// RevisionStore persists immutable snapshots.
type RevisionStore interface {
	Create(ctx context.Context, rev *models.Revision) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Revision, error)
	// ListByItem returns snapshots newest first.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.Revision, error)
	// DeleteOldest removes all but the keep newest snapshots of an item.
	DeleteOldest(ctx context.Context, itemID uuid.UUID, keep int) (int64, error)
	// Delete removes one snapshot. A missing row is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByItem(ctx context.Context, itemID uuid.UUID) error
}

// TermStore persists the flat blog taxonomy.
type TermStore interface {
	CreateTerm(ctx context.Context, term *models.Term) error
	FindTerm(ctx context.Context, id uuid.UUID) (*models.Term, error)
	TermSlugExists(ctx context.Context, kind models.TermKind, slug string) (bool, error)
	ListTerms(ctx context.Context, kind models.TermKind) ([]models.Term, error)
	DeleteTerm(ctx context.Context, id uuid.UUID) error
	SetItemCategories(ctx context.Context, itemID uuid.UUID, categoryIDs []uuid.UUID) error
	ItemCategories(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error)
}

// Cache is the read-through cache. Get and Set failures are the provider's
// to log; Del and Flush report errors so the engine can log them in context.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Del(ctx context.Context, keys ...string) error
	Flush(ctx context.Context, pattern string) error
}

// Revalidator tells an external renderer which public paths changed.
type Revalidator interface {
	Notify(ctx context.Context, paths []string) error
}

// AuditLog records invalidation events. Implementations are best-effort.
type AuditLog interface {
	Log(ctx context.Context, entityType string, entityID uuid.UUID, action string)
}
