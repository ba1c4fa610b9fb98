// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package memstore provides in-memory implementations of the lifecycle
// store contracts. It mirrors the guarded-update and uniqueness semantics
// of the PostgreSQL stores so engine behaviour can be tested without a
// database. Every read returns a copy. The Cache type also serves as the
// process-local cache when Valkey is unavailable.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
)

// DB holds all tables behind one mutex.
type DB struct {
	mu        sync.RWMutex
	items     map[uuid.UUID]*models.Item
	revisions map[uuid.UUID][]*models.Revision
	revIndex  map[uuid.UUID]uuid.UUID
	terms     map[uuid.UUID]*models.Term
	itemTerms map[uuid.UUID][]uuid.UUID
}

// New returns an empty database.
func New() *DB {
	return &DB{
		items:     make(map[uuid.UUID]*models.Item),
		revisions: make(map[uuid.UUID][]*models.Revision),
		revIndex:  make(map[uuid.UUID]uuid.UUID),
		terms:     make(map[uuid.UUID]*models.Term),
		itemTerms: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Items returns the item table.
func (d *DB) Items() *Items { return &Items{db: d} }

// Revisions returns the revision table.
func (d *DB) Revisions() *Revisions { return &Revisions{db: d} }

// Terms returns the taxonomy tables.
func (d *DB) Terms() *Terms { return &Terms{db: d} }

// Items implements lifecycle.ItemStore.
type Items struct {
	db *DB
}

var _ lifecycle.ItemStore = (*Items)(nil)

// slugTaken reports whether another live item of kind uses s. Callers hold the lock.
func (d *DB) slugTaken(kind models.ContentKind, s string, exclude uuid.UUID) bool {
	for _, it := range d.items {
		if it.ID != exclude && it.Kind == kind && it.Slug == s && !it.IsDeleted() {
			return true
		}
	}
	return false
}

func (s *Items) Create(_ context.Context, item *models.Item) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.items[item.ID]; ok {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	if !item.IsDeleted() && s.db.slugTaken(item.Kind, item.Slug, item.ID) {
		return lifecycle.ErrDuplicateSlug
	}
	c := item.Clone()
	c.CategoryIDs = nil
	s.db.items[item.ID] = c
	return nil
}

func (s *Items) FindByID(_ context.Context, id uuid.UUID) (*models.Item, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.db.items[id].Clone(), nil
}

func (s *Items) findLive(match func(*models.Item) bool) *models.Item {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, it := range s.db.items {
		if !it.IsDeleted() && match(it) {
			return it.Clone()
		}
	}
	return nil
}

func (s *Items) FindBySlug(_ context.Context, kind models.ContentKind, slug string) (*models.Item, error) {
	return s.findLive(func(it *models.Item) bool { return it.Kind == kind && it.Slug == slug }), nil
}

func (s *Items) FindByPath(_ context.Context, kind models.ContentKind, path string) (*models.Item, error) {
	return s.findLive(func(it *models.Item) bool { return it.Kind == kind && it.Path == path }), nil
}

func (s *Items) SlugExists(_ context.Context, kind models.ContentKind, slug string, excludeID uuid.UUID) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.db.slugTaken(kind, slug, excludeID), nil
}

// Update applies the write only when the guard matches, like the SQL
// UPDATE ... WHERE revision = $n AND (NOT is_locked OR locked_by = $m).
func (s *Items) Update(_ context.Context, item *models.Item, guard lifecycle.WriteGuard) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.items[item.ID]
	if !ok || cur.Revision != guard.Revision {
		return lifecycle.ErrStaleWrite
	}
	if !guard.IgnoreLock && cur.IsLocked && !cur.LockHeldBy(guard.Holder) {
		return lifecycle.ErrStaleWrite
	}
	if !item.IsDeleted() && s.db.slugTaken(item.Kind, item.Slug, item.ID) {
		return lifecycle.ErrDuplicateSlug
	}
	next := item.Clone()
	next.IsLocked, next.LockedBy, next.LockedAt = cur.IsLocked, cur.LockedBy, cur.LockedAt
	next.CreatedAt = cur.CreatedAt
	next.CategoryIDs = nil
	s.db.items[item.ID] = next
	return nil
}

func (s *Items) List(_ context.Context, f lifecycle.ListFilter) ([]models.Item, int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var matched []*models.Item
	for _, it := range s.db.items {
		if s.db.matches(it, f) {
			matched = append(matched, it)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Title < b.Title
	})

	total := len(matched)
	start := f.Offset
	if start > total {
		start = total
	}
	end := total
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	out := make([]models.Item, 0, end-start)
	for _, it := range matched[start:end] {
		out = append(out, *it.Clone())
	}
	return out, total, nil
}

func (d *DB) matches(it *models.Item, f lifecycle.ListFilter) bool {
	switch {
	case f.OnlyDeleted && !it.IsDeleted():
		return false
	case !f.OnlyDeleted && !f.IncludeDeleted && it.IsDeleted():
		return false
	case f.Kind != "" && it.Kind != f.Kind:
		return false
	case f.Status != "" && it.Status != f.Status:
		return false
	case f.RootsOnly && it.ParentID != nil:
		return false
	case f.ParentID != nil && (it.ParentID == nil || *it.ParentID != *f.ParentID):
		return false
	case f.AuthorID != nil && it.AuthorID != *f.AuthorID:
		return false
	case f.SeriesID != nil && (it.SeriesID == nil || *it.SeriesID != *f.SeriesID):
		return false
	case f.FeaturedOnly && !it.IsFeatured:
		return false
	case f.ExcludePrivate && it.Visibility == models.VisibilityPrivate:
		return false
	}
	if f.CategoryID != nil {
		for _, c := range d.itemTerms[it.ID] {
			if c == *f.CategoryID {
				return true
			}
		}
		return false
	}
	return true
}

func (s *Items) Children(_ context.Context, parentID uuid.UUID) ([]models.Item, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []models.Item
	for _, it := range s.db.items {
		if !it.IsDeleted() && it.ParentID != nil && *it.ParentID == parentID {
			out = append(out, *it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

func (s *Items) ListDueScheduled(_ context.Context, now time.Time) ([]models.Item, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []models.Item
	for _, it := range s.db.items {
		if it.IsDeleted() || it.Status != models.StatusScheduled || it.ScheduledFor == nil {
			continue
		}
		if !it.ScheduledFor.After(now) {
			out = append(out, *it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(*out[j].ScheduledFor) })
	return out, nil
}

func (s *Items) TryLock(_ context.Context, id, holder uuid.UUID, now, staleBefore time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	it, ok := s.db.items[id]
	if !ok || it.IsDeleted() {
		return false, nil
	}
	if it.IsLocked && !it.LockHeldBy(holder) && !it.LockedAt.Before(staleBefore) {
		return false, nil
	}
	h, at := holder, now
	it.IsLocked, it.LockedBy, it.LockedAt = true, &h, &at
	return true, nil
}

func (s *Items) Unlock(_ context.Context, id, holder uuid.UUID, force bool) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	it, ok := s.db.items[id]
	if !ok || !it.IsLocked || (!force && !it.LockHeldBy(holder)) {
		return false, nil
	}
	it.IsLocked, it.LockedBy, it.LockedAt = false, nil, nil
	return true, nil
}

func (s *Items) ClearStaleLocks(_ context.Context, before time.Time) ([]models.Item, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Item
	for _, it := range s.db.items {
		if it.IsLocked && it.LockedAt.Before(before) {
			it.IsLocked, it.LockedBy, it.LockedAt = false, nil, nil
			out = append(out, *it.Clone())
		}
	}
	return out, nil
}

// ApplyPaths is all-or-nothing: an unknown id aborts before any change.
func (s *Items) ApplyPaths(_ context.Context, updates []models.PathUpdate) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range updates {
		if _, ok := s.db.items[u.ID]; !ok {
			return fmt.Errorf("apply paths: item %s not found", u.ID)
		}
	}
	for _, u := range updates {
		it := s.db.items[u.ID]
		if u.ParentID != nil {
			pid := *u.ParentID
			it.ParentID = &pid
		} else {
			it.ParentID = nil
		}
		it.Depth = u.Depth
		it.Path = u.Path
	}
	return nil
}

// HardDelete removes the row; children keep existing with no parent, as
// with ON DELETE SET NULL.
func (s *Items) HardDelete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.items, id)
	delete(s.db.itemTerms, id)
	for _, it := range s.db.items {
		if it.ParentID != nil && *it.ParentID == id {
			it.ParentID = nil
		}
	}
	return nil
}

func (s *Items) Stats(_ context.Context, kind models.ContentKind) (*models.ContentStats, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	st := &models.ContentStats{Kind: kind, ByStatus: map[string]int{}}
	for _, it := range s.db.items {
		if it.Kind != kind {
			continue
		}
		if it.IsDeleted() {
			st.Deleted++
			continue
		}
		st.Total++
		st.ByStatus[string(it.Status)]++
		if it.IsLocked {
			st.Locked++
		}
	}
	return st, nil
}

// Revisions implements lifecycle.RevisionStore. Rows keep insertion order.
type Revisions struct {
	db *DB
}

var _ lifecycle.RevisionStore = (*Revisions)(nil)

func cloneRevision(r *models.Revision) *models.Revision {
	c := *r
	return &c
}

func (s *Revisions) Create(_ context.Context, rev *models.Revision) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.revIndex[rev.ID]; ok {
		return fmt.Errorf("revision %s already exists", rev.ID)
	}
	s.db.revisions[rev.ItemID] = append(s.db.revisions[rev.ItemID], cloneRevision(rev))
	s.db.revIndex[rev.ID] = rev.ItemID
	return nil
}

func (s *Revisions) FindByID(_ context.Context, id uuid.UUID) (*models.Revision, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	itemID, ok := s.db.revIndex[id]
	if !ok {
		return nil, nil
	}
	for _, r := range s.db.revisions[itemID] {
		if r.ID == id {
			return cloneRevision(r), nil
		}
	}
	return nil, nil
}

func (s *Revisions) ListByItem(_ context.Context, itemID uuid.UUID) ([]models.Revision, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	rows := s.db.revisions[itemID]
	out := make([]models.Revision, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, *rows[i])
	}
	return out, nil
}

func (s *Revisions) DeleteOldest(_ context.Context, itemID uuid.UUID, keep int) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rows := s.db.revisions[itemID]
	excess := len(rows) - keep
	if excess <= 0 {
		return 0, nil
	}
	for _, r := range rows[:excess] {
		delete(s.db.revIndex, r.ID)
	}
	s.db.revisions[itemID] = append([]*models.Revision(nil), rows[excess:]...)
	return int64(excess), nil
}

func (s *Revisions) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	itemID, ok := s.db.revIndex[id]
	if !ok {
		return nil
	}
	delete(s.db.revIndex, id)
	rows := s.db.revisions[itemID]
	for i, r := range rows {
		if r.ID == id {
			s.db.revisions[itemID] = append(rows[:i:i], rows[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Revisions) DeleteByItem(_ context.Context, itemID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.revisions[itemID] {
		delete(s.db.revIndex, r.ID)
	}
	delete(s.db.revisions, itemID)
	return nil
}

// Terms implements lifecycle.TermStore.
type Terms struct {
	db *DB
}

var _ lifecycle.TermStore = (*Terms)(nil)

func (s *Terms) CreateTerm(_ context.Context, term *models.Term) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, t := range s.db.terms {
		if t.Kind == term.Kind && t.Slug == term.Slug {
			return fmt.Errorf("term slug %q: %w", term.Slug, lifecycle.ErrDuplicateSlug)
		}
	}
	c := *term
	s.db.terms[term.ID] = &c
	return nil
}

func (s *Terms) FindTerm(_ context.Context, id uuid.UUID) (*models.Term, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	t, ok := s.db.terms[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (s *Terms) TermSlugExists(_ context.Context, kind models.TermKind, slug string) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, t := range s.db.terms {
		if t.Kind == kind && t.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// ListTerms returns terms of kind by name with live post counts.
func (s *Terms) ListTerms(_ context.Context, kind models.TermKind) ([]models.Term, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []models.Term
	for _, t := range s.db.terms {
		if t.Kind != kind {
			continue
		}
		c := *t
		c.PostCount = s.db.postCount(t)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *DB) postCount(t *models.Term) int {
	n := 0
	for _, it := range d.items {
		if it.IsDeleted() {
			continue
		}
		if t.Kind == models.TermSeries {
			if it.SeriesID != nil && *it.SeriesID == t.ID {
				n++
			}
			continue
		}
		for _, c := range d.itemTerms[it.ID] {
			if c == t.ID {
				n++
				break
			}
		}
	}
	return n
}

// DeleteTerm removes the term and every reference to it.
func (s *Terms) DeleteTerm(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.terms, id)
	for itemID, cats := range s.db.itemTerms {
		kept := cats[:0]
		for _, c := range cats {
			if c != id {
				kept = append(kept, c)
			}
		}
		s.db.itemTerms[itemID] = kept
	}
	for _, it := range s.db.items {
		if it.SeriesID != nil && *it.SeriesID == id {
			it.SeriesID = nil
			it.SeriesPosition = 0
		}
	}
	return nil
}

func (s *Terms) SetItemCategories(_ context.Context, itemID uuid.UUID, categoryIDs []uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if len(categoryIDs) == 0 {
		delete(s.db.itemTerms, itemID)
		return nil
	}
	s.db.itemTerms[itemID] = append([]uuid.UUID(nil), categoryIDs...)
	return nil
}

func (s *Terms) ItemCategories(_ context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return append([]uuid.UUID{}, s.db.itemTerms[itemID]...), nil
}
