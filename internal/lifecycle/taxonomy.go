// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/models"
	"pressroom/internal/sanitize"
	"pressroom/internal/slug"
)

func (e *Engine) termStore() (TermStore, error) {
	if e.terms == nil {
		return nil, disabled("taxonomy")
	}
	return e.terms, nil
}

// CreateTerm adds a blog category or series with a unique slug.
func (e *Engine) CreateTerm(ctx context.Context, kind models.TermKind, name, description string) (*models.Term, error) {
	terms, err := e.termStore()
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, invalid("unknown term kind %q", kind)
	}
	name = sanitize.Text(name)
	if name == "" {
		return nil, invalid("name is required")
	}

	alloc := slug.NewAllocator()
	alloc.Now = e.clock
	s, err := alloc.Allocate(ctx, name, false, func(ctx context.Context, candidate string) (bool, error) {
		return terms.TermSlugExists(ctx, kind, candidate)
	})
	if errors.Is(err, slug.ErrExhausted) {
		return nil, &Error{Code: CodeConflict, Message: "no free slug could be allocated", Slug: slug.Generate(name), Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("allocate term slug: %w", err)
	}

	now := e.clock()
	term := &models.Term{
		ID:          uuid.New(),
		Kind:        kind,
		Name:        name,
		Slug:        s,
		Description: sanitize.Text(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = terms.CreateTerm(ctx, term)
	if errors.Is(err, ErrDuplicateSlug) {
		return nil, &Error{Code: CodeConflict, Message: "term slug already taken", Slug: s, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("create term: %w", err)
	}
	e.log.Info("term created", "kind", kind, "slug", s)
	return term, nil
}

// Terms lists the categories or series.
func (e *Engine) Terms(ctx context.Context, kind models.TermKind) ([]models.Term, error) {
	terms, err := e.termStore()
	if err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, invalid("unknown term kind %q", kind)
	}
	list, err := terms.ListTerms(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return list, nil
}

// DeleteTerm removes a term; posts lose the association.
func (e *Engine) DeleteTerm(ctx context.Context, id uuid.UUID) error {
	terms, err := e.termStore()
	if err != nil {
		return err
	}
	term, err := terms.FindTerm(ctx, id)
	if err != nil {
		return fmt.Errorf("find term: %w", err)
	}
	if term == nil {
		return notFound("term", id)
	}
	filter := ListFilter{Kind: models.KindPost, IncludeDeleted: true}
	if term.Kind == models.TermSeries {
		filter.SeriesID = &id
	} else {
		filter.CategoryID = &id
	}
	affected, _, err := e.items.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list term posts: %w", err)
	}
	if err := terms.DeleteTerm(ctx, id); err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	e.log.Info("term deleted", "kind", term.Kind, "slug", term.Slug, "posts", len(affected))

	cs := newChangeSet()
	cs.kind(models.KindPost)
	for i := range affected {
		cs.touch(nil, &affected[i])
	}
	e.invalidate(ctx, cs)
	return nil
}

// AssignCategories replaces a post's categories.
func (e *Engine) AssignCategories(ctx context.Context, itemID uuid.UUID, categoryIDs []uuid.UUID, actor uuid.UUID) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	terms, err := e.termStore()
	if err != nil {
		return nil, err
	}
	item, err := e.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Kind != models.KindPost {
		return nil, invalid("only posts have categories")
	}
	if err := checkLock(rt, item, actor); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(categoryIDs))
	seen := map[uuid.UUID]bool{}
	for _, cid := range categoryIDs {
		if seen[cid] {
			continue
		}
		seen[cid] = true
		term, err := terms.FindTerm(ctx, cid)
		if err != nil {
			return nil, fmt.Errorf("find category: %w", err)
		}
		if term == nil || term.Kind != models.TermCategory {
			return nil, notFound("category", cid)
		}
		ids = append(ids, cid)
	}
	if err := terms.SetItemCategories(ctx, itemID, ids); err != nil {
		return nil, fmt.Errorf("set categories: %w", err)
	}
	item.CategoryIDs = ids

	cs := newChangeSet()
	cs.item(item, item, "categorize")
	e.invalidate(ctx, cs)
	return item, nil
}

// SetSeries places a post in a series at position, or removes it when
// seriesID is nil.
func (e *Engine) SetSeries(ctx context.Context, itemID uuid.UUID, seriesID *uuid.UUID, position int, actor uuid.UUID) (*models.Item, error) {
	terms, err := e.termStore()
	if err != nil {
		return nil, err
	}
	if seriesID != nil {
		term, err := terms.FindTerm(ctx, *seriesID)
		if err != nil {
			return nil, fmt.Errorf("find series: %w", err)
		}
		if term == nil || term.Kind != models.TermSeries {
			return nil, notFound("series", *seriesID)
		}
	}
	if position < 0 {
		return nil, invalid("series position must not be negative")
	}
	return e.run(ctx, itemID, actor, "series", func(_ config.Runtime, item *models.Item, _ time.Time) error {
		if item.Kind != models.KindPost {
			return invalid("only posts belong to series")
		}
		if seriesID == nil {
			item.SeriesID = nil
			item.SeriesPosition = 0
			return nil
		}
		sid := *seriesID
		item.SeriesID = &sid
		item.SeriesPosition = position
		return nil
	})
}
