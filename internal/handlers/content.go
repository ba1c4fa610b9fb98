// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
)

// Content serves the admin API for one content kind. Items of another
// kind are reported as not found.
type Content struct {
	a    *Admin
	kind models.ContentKind
}

// Kind reports the content kind these handlers serve.
func (c *Content) Kind() models.ContentKind { return c.kind }

func (c *Content) mismatch(id uuid.UUID) error {
	return &lifecycle.Error{Code: lifecycle.CodeNotFound, Message: fmt.Sprintf("%s %s not found", c.kind, id)}
}

// find loads a live item and checks its kind.
func (c *Content) find(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := c.a.engine.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Kind != c.kind {
		return nil, c.mismatch(id)
	}
	return item, nil
}

// findAny is find for routes that also act on trashed items.
func (c *Content) findAny(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	item, err := c.a.engine.GetAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Kind != c.kind {
		return nil, c.mismatch(id)
	}
	return item, nil
}

// target resolves the {id} parameter to an item of this kind.
func (c *Content) target(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return uuid.Nil, false
	}
	if _, err := c.find(r.Context(), id); err != nil {
		writeError(w, r, err)
		return uuid.Nil, false
	}
	return id, true
}

// List returns one page of items. Supported query parameters: page,
// per_page, status, parent (an id or "root"), author, category, series,
// featured, trash (only deleted) and all (deleted included).
func (c *Content) List(w http.ResponseWriter, r *http.Request) {
	q, err := c.listQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, lifecycle.CodeValidation, err.Error())
		return
	}
	res, err := c.a.engine.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *Content) listQuery(r *http.Request) (lifecycle.ListQuery, error) {
	q := lifecycle.ListQuery{Filter: lifecycle.ListFilter{
		Kind:           c.kind,
		Status:         models.ContentStatus(r.URL.Query().Get("status")),
		FeaturedOnly:   queryBool(r, "featured"),
		OnlyDeleted:    queryBool(r, "trash"),
		IncludeDeleted: queryBool(r, "all"),
	}}
	var err error
	if q.Page, err = queryInt(r, "page"); err != nil {
		return q, err
	}
	if q.PerPage, err = queryInt(r, "per_page"); err != nil {
		return q, err
	}
	if parent := r.URL.Query().Get("parent"); parent == "root" {
		q.Filter.RootsOnly = true
	} else if q.Filter.ParentID, err = queryUUID(r, "parent"); err != nil {
		return q, err
	}
	if q.Filter.AuthorID, err = queryUUID(r, "author"); err != nil {
		return q, err
	}
	if q.Filter.CategoryID, err = queryUUID(r, "category"); err != nil {
		return q, err
	}
	if q.Filter.SeriesID, err = queryUUID(r, "series"); err != nil {
		return q, err
	}
	return q, nil
}

// Create adds a new item. The author defaults to the acting editor.
func (c *Content) Create(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var in lifecycle.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if msg := validateCreate(in); msg != "" {
		writeProblem(w, http.StatusUnprocessableEntity, lifecycle.CodeValidation, msg)
		return
	}
	in.Kind = c.kind
	if in.AuthorID == uuid.Nil {
		in.AuthorID = who
	}

	item, err := c.a.engine.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+item.ID.String())
	writeJSON(w, http.StatusCreated, item)
}

// Get returns one live item.
func (c *Content) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	item, err := c.find(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(item.Revision)))
	writeJSON(w, http.StatusOK, item)
}

// BySlug returns a live item by slug.
func (c *Content) BySlug(w http.ResponseWriter, r *http.Request) {
	item, err := c.a.engine.GetBySlug(r.Context(), c.kind, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ByPath returns a live page by its full path.
func (c *Content) ByPath(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(chi.URLParam(r, "*"), "/")
	if path == "" {
		writeProblem(w, http.StatusBadRequest, lifecycle.CodeValidation, "path is required")
		return
	}
	item, err := c.a.engine.GetByPath(r.Context(), path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Update applies a partial update. An If-Match header carrying the
// revision number acts as expected_revision when the body omits it.
func (c *Content) Update(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := c.target(w, r)
	if !ok {
		return
	}
	var in lifecycle.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if msg := validateUpdate(in); msg != "" {
		writeProblem(w, http.StatusUnprocessableEntity, lifecycle.CodeValidation, msg)
		return
	}
	if in.ExpectedRevision == 0 {
		if tag := r.Header.Get("If-Match"); tag != "" {
			rev, err := strconv.Atoi(strings.Trim(tag, `"`))
			if err != nil {
				writeProblem(w, http.StatusBadRequest, lifecycle.CodeValidation, "If-Match must carry a revision number")
				return
			}
			in.ExpectedRevision = rev
		}
	}

	item, err := c.a.engine.Update(r.Context(), id, who, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(item.Revision)))
	writeJSON(w, http.StatusOK, item)
}

// Delete moves an item to the trash, or removes it for good with ?hard=1.
func (c *Content) Delete(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if queryBool(r, "hard") {
		if _, err := c.findAny(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		if err := c.a.engine.HardDelete(r.Context(), id, who); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if _, err := c.find(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := c.a.engine.Delete(r.Context(), id, who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Restore brings a trashed item back as a draft.
func (c *Content) Restore(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := c.findAny(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := c.a.engine.Restore(r.Context(), id, who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// itemOp is an engine operation on one item by an editor.
type itemOp func(ctx context.Context, id, actor uuid.UUID) (*models.Item, error)

// apply runs op against the {id} item. When body is non-nil the request
// payload is decoded into it first.
func (c *Content) apply(w http.ResponseWriter, r *http.Request, body any, op itemOp) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := c.target(w, r)
	if !ok {
		return
	}
	if body != nil && !decodeJSON(w, r, body) {
		return
	}
	item, err := op(r.Context(), id, who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Publish makes an item live.
func (c *Content) Publish(w http.ResponseWriter, r *http.Request) {
	c.apply(w, r, nil, c.a.engine.Publish)
}

// Unpublish returns a published item to draft.
func (c *Content) Unpublish(w http.ResponseWriter, r *http.Request) {
	c.apply(w, r, nil, c.a.engine.Unpublish)
}

// Unschedule cancels a pending publication.
func (c *Content) Unschedule(w http.ResponseWriter, r *http.Request) {
	c.apply(w, r, nil, c.a.engine.Unschedule)
}

// Archive retires an item.
func (c *Content) Archive(w http.ResponseWriter, r *http.Request) {
	c.apply(w, r, nil, c.a.engine.Archive)
}

type scheduleRequest struct {
	At time.Time `json:"at"`
}

// Schedule queues an item for publication at a future time.
func (c *Content) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	c.apply(w, r, &req, func(ctx context.Context, id, who uuid.UUID) (*models.Item, error) {
		return c.a.engine.Schedule(ctx, id, who, req.At)
	})
}

type statusRequest struct {
	Status models.ContentStatus `json:"status"`
}

// SetStatus moves an item to the requested status.
func (c *Content) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	c.apply(w, r, &req, func(ctx context.Context, id, who uuid.UUID) (*models.Item, error) {
		return c.a.engine.SetStatus(ctx, id, who, req.Status)
	})
}

type parentRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// SetParent moves a page under another page, or to the root when
// parent_id is null.
func (c *Content) SetParent(w http.ResponseWriter, r *http.Request) {
	var req parentRequest
	c.apply(w, r, &req, func(ctx context.Context, id, who uuid.UUID) (*models.Item, error) {
		return c.a.engine.SetParent(ctx, id, req.ParentID, who)
	})
}

// --- Locks ---

// AcquireLock grants the acting editor the edit lock.
func (c *Content) AcquireLock(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := c.target(w, r)
	if !ok {
		return
	}
	info, err := c.a.engine.AcquireLock(r.Context(), id, who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// ReleaseLock drops the lock. ?force=1 releases another editor's lock.
func (c *Content) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := c.target(w, r)
	if !ok {
		return
	}
	if err := c.a.engine.ReleaseLock(r.Context(), id, who, queryBool(r, "force")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LockStatus reports who holds the lock and whether it has gone stale.
func (c *Content) LockStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := c.target(w, r)
	if !ok {
		return
	}
	info, err := c.a.engine.LockStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// --- Tree reads ---

func (c *Content) tree(read func(ctx context.Context, id uuid.UUID) ([]models.Item, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := c.target(w, r)
		if !ok {
			return
		}
		items, err := read(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if items == nil {
			items = []models.Item{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

// Ancestors lists a page's ancestors, root first.
func (c *Content) Ancestors(w http.ResponseWriter, r *http.Request) {
	c.tree(c.a.engine.Ancestors)(w, r)
}

// Children lists a page's direct children.
func (c *Content) Children(w http.ResponseWriter, r *http.Request) {
	c.tree(c.a.engine.Children)(w, r)
}

// Descendants lists a page's whole subtree.
func (c *Content) Descendants(w http.ResponseWriter, r *http.Request) {
	c.tree(c.a.engine.Descendants)(w, r)
}

// --- Revisions ---

// Revisions lists an item's snapshots, newest first. Trashed items are
// included so their history can be reviewed before restoring.
func (c *Content) Revisions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := c.findAny(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	revs, err := c.a.engine.Revisions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if revs == nil {
		revs = []models.Revision{}
	}
	writeJSON(w, http.StatusOK, revs)
}

// RestoreRevision rolls an item back to one of its own revisions.
func (c *Content) RestoreRevision(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := c.target(w, r)
	if !ok {
		return
	}
	revID, ok := pathID(w, r, "revID")
	if !ok {
		return
	}
	revs, err := c.a.engine.Revisions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	found := false
	for _, rev := range revs {
		if rev.ID == revID {
			found = true
			break
		}
	}
	if !found {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.CodeNotFound, Message: fmt.Sprintf("revision %s not found", revID)})
		return
	}

	item, err := c.a.engine.RestoreRevision(r.Context(), revID, who)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// --- Aggregates ---

// Stats returns per-status counts.
func (c *Content) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.a.engine.Stats(r.Context(), c.kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Featured lists published featured items, pinned first.
func (c *Content) Featured(w http.ResponseWriter, r *http.Request) {
	items, err := c.a.engine.Featured(r.Context(), c.kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
