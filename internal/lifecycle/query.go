// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pressroom/internal/models"
)

// ListQuery selects one page of items.
type ListQuery struct {
	Filter  ListFilter
	Page    int
	PerPage int
}

// ListResult is one page of items plus the total match count.
type ListResult struct {
	Items      []models.Item `json:"items"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
}

// listKey encodes every filter field so distinct queries never share a bucket.
func listKey(q ListQuery) string {
	f := q.Filter
	var b strings.Builder
	fmt.Fprintf(&b, "list:%s:s=%s:p=%d:n=%d", f.Kind, f.Status, q.Page, q.PerPage)
	writeID := func(name string, id *uuid.UUID) {
		if id != nil {
			fmt.Fprintf(&b, ":%s=%s", name, id)
		}
	}
	writeID("parent", f.ParentID)
	writeID("author", f.AuthorID)
	writeID("cat", f.CategoryID)
	writeID("series", f.SeriesID)
	if f.RootsOnly {
		b.WriteString(":roots")
	}
	if f.FeaturedOnly {
		b.WriteString(":featured")
	}
	if f.ExcludePrivate {
		b.WriteString(":public")
	}
	if f.IncludeDeleted {
		b.WriteString(":all")
	}
	if f.OnlyDeleted {
		b.WriteString(":trash")
	}
	return b.String()
}

// List returns one page of items of a kind. Page and PerPage fall back to
// the configured defaults and PerPage is capped at the configured maximum.
func (e *Engine) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	rt := e.cfg.Snapshot()
	if !q.Filter.Kind.Valid() {
		return nil, invalid("unknown content kind %q", q.Filter.Kind)
	}
	if q.Filter.Status != "" && !q.Filter.Status.Valid() {
		return nil, invalid("unknown status %q", q.Filter.Status)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage <= 0 {
		q.PerPage = rt.DefaultPageSize
	}
	if rt.MaxPageSize > 0 && q.PerPage > rt.MaxPageSize {
		q.PerPage = rt.MaxPageSize
	}
	if q.PerPage <= 0 {
		q.PerPage = 20
	}
	q.Filter.Limit = q.PerPage
	q.Filter.Offset = (q.Page - 1) * q.PerPage

	return cached(ctx, e, listKey(q), rt.CacheTTL(), func() (*ListResult, error) {
		items, total, err := e.items.List(ctx, q.Filter)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		if items == nil {
			items = []models.Item{}
		}
		return &ListResult{
			Items:      items,
			Total:      total,
			Page:       q.Page,
			PerPage:    q.PerPage,
			TotalPages: (total + q.PerPage - 1) / q.PerPage,
		}, nil
	})
}

// Stats returns per-status counts for a kind.
func (e *Engine) Stats(ctx context.Context, kind models.ContentKind) (*models.ContentStats, error) {
	rt := e.cfg.Snapshot()
	if !kind.Valid() {
		return nil, invalid("unknown content kind %q", kind)
	}
	return cached(ctx, e, statsKey(kind), rt.CacheTTL(), func() (*models.ContentStats, error) {
		stats, err := e.items.Stats(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("content stats: %w", err)
		}
		return stats, nil
	})
}

// Featured returns published featured items of a kind, pinned first.
func (e *Engine) Featured(ctx context.Context, kind models.ContentKind) ([]models.Item, error) {
	rt := e.cfg.Snapshot()
	if !kind.Valid() {
		return nil, invalid("unknown content kind %q", kind)
	}
	return cached(ctx, e, featuredKey(kind), rt.CacheTTL(), func() ([]models.Item, error) {
		items, _, err := e.items.List(ctx, ListFilter{
			Kind:         kind,
			Status:       models.StatusPublished,
			FeaturedOnly: true,
			Limit:        rt.DefaultPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("list featured: %w", err)
		}
		if items == nil {
			items = []models.Item{}
		}
		return items, nil
	})
}
