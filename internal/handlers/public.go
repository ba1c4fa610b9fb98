// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
	"pressroom/internal/sanitize"
)

// homePath is served for a request to the site root.
const homePath = "home"

// Public serves published content to readers. Drafts, scheduled, archived
// and private items are reported as not found. Password-protected items
// are returned without their text until the reader unlocks them.
type Public struct {
	engine *lifecycle.Engine
}

// NewPublic creates the public handler group.
func NewPublic(eng *lifecycle.Engine) *Public {
	return &Public{engine: eng}
}

// publicItem is the reader-facing view of an item.
type publicItem struct {
	ID             uuid.UUID          `json:"id"`
	Kind           models.ContentKind `json:"kind"`
	Title          string             `json:"title"`
	Slug           string             `json:"slug"`
	Path           string             `json:"path,omitempty"`
	Excerpt        string             `json:"excerpt,omitempty"`
	HTML           string             `json:"html,omitempty"`
	WordCount      int                `json:"word_count"`
	ReadingTime    int                `json:"reading_time"`
	PublishedAt    *time.Time         `json:"published_at,omitempty"`
	TemplateID     string             `json:"template_id,omitempty"`
	CustomCSS      string             `json:"custom_css,omitempty"`
	CategoryIDs    []uuid.UUID        `json:"category_ids,omitempty"`
	SeriesID       *uuid.UUID         `json:"series_id,omitempty"`
	SeriesPosition int                `json:"series_position,omitempty"`
	Protected      bool               `json:"protected"`
}

type publicList struct {
	Items      []publicItem `json:"items"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	PerPage    int          `json:"per_page"`
	TotalPages int          `json:"total_pages"`
}

func readable(item *models.Item) bool {
	return item.IsPublished() && !item.IsDeleted() && item.Visibility != models.VisibilityPrivate
}

func hidden(item *models.Item) error {
	return &lifecycle.Error{Code: lifecycle.CodeNotFound, Message: fmt.Sprintf("%s %q not found", item.Kind, item.Slug), Slug: item.Slug}
}

// present builds the reader view. The body is rendered only when withBody
// is set; protected items need an unlock first.
func present(item *models.Item, withBody bool) (publicItem, error) {
	v := publicItem{
		ID:             item.ID,
		Kind:           item.Kind,
		Title:          item.Title,
		Slug:           item.Slug,
		Path:           item.Path,
		PublishedAt:    item.PublishedAt,
		TemplateID:     item.TemplateID,
		CategoryIDs:    item.CategoryIDs,
		SeriesID:       item.SeriesID,
		SeriesPosition: item.SeriesPosition,
		Protected:      item.Visibility == models.VisibilityPassword,
	}
	if v.Protected && !withBody {
		return v, nil
	}
	_, rendered, err := sanitize.Body(item.BodyFormat, item.Body)
	if err != nil {
		return v, fmt.Errorf("render %s %s: %w", item.Kind, item.ID, err)
	}
	v.HTML = rendered
	v.Excerpt = item.Excerpt
	v.WordCount = item.WordCount
	v.ReadingTime = item.ReadingTime
	v.CustomCSS = item.CustomCSS
	return v, nil
}

func (p *Public) serve(w http.ResponseWriter, r *http.Request, item *models.Item, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !readable(item) {
		writeError(w, r, hidden(item))
		return
	}
	v, err := present(item, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, v)
}

// Posts lists published posts, pinned first. Supports page, per_page,
// category and series query parameters.
func (p *Public) Posts(w http.ResponseWriter, r *http.Request) {
	q := lifecycle.ListQuery{Filter: lifecycle.ListFilter{
		Kind:           models.KindPost,
		Status:         models.StatusPublished,
		ExcludePrivate: true,
	}}
	var err error
	if q.Page, err = queryInt(r, "page"); err == nil {
		q.PerPage, err = queryInt(r, "per_page")
	}
	if err == nil {
		q.Filter.CategoryID, err = queryUUID(r, "category")
	}
	if err == nil {
		q.Filter.SeriesID, err = queryUUID(r, "series")
	}
	if err != nil {
		writeProblem(w, http.StatusBadRequest, lifecycle.CodeValidation, err.Error())
		return
	}

	res, err := p.engine.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := publicList{
		Items:      make([]publicItem, 0, len(res.Items)),
		Total:      res.Total,
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalPages: res.TotalPages,
	}
	for i := range res.Items {
		v, err := present(&res.Items[i], false)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out.Items = append(out.Items, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// Featured lists published featured items of the kind bound to the route.
func (p *Public) Featured(kind models.ContentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := p.engine.Featured(r.Context(), kind)
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]publicItem, 0, len(items))
		for i := range items {
			if items[i].Visibility == models.VisibilityPrivate {
				continue
			}
			v, err := present(&items[i], false)
			if err != nil {
				writeError(w, r, err)
				return
			}
			out = append(out, v)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// Post serves one published post by slug.
func (p *Public) Post(w http.ResponseWriter, r *http.Request) {
	item, err := p.engine.GetBySlug(r.Context(), models.KindPost, chi.URLParam(r, "slug"))
	p.serve(w, r, item, err)
}

// Page serves one published page by its full path. The root path maps to
// the home page.
func (p *Public) Page(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	if path == "" {
		path = homePath
	}
	item, err := p.engine.GetByPath(r.Context(), path)
	p.serve(w, r, item, err)
}

type unlockRequest struct {
	Password string `json:"password"`
}

// Unlock checks a reader's password and returns the full item on success.
// Routes should rate limit this handler.
func (p *Public) Unlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req unlockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Password) > maxPasswordBytes {
		writeProblem(w, http.StatusForbidden, lifecycle.CodeForbidden, "incorrect password")
		return
	}

	ctx := r.Context()
	item, err := p.engine.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !readable(item) {
		writeError(w, r, hidden(item))
		return
	}
	if err := p.verify(ctx, item, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := present(item, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, no-store")
	writeJSON(w, http.StatusOK, v)
}

func (p *Public) verify(ctx context.Context, item *models.Item, password string) error {
	ok, err := p.engine.VerifyPassword(ctx, item.ID, password)
	if err != nil {
		return err
	}
	if !ok {
		return &lifecycle.Error{Code: lifecycle.CodeForbidden, Message: "incorrect password"}
	}
	return nil
}
