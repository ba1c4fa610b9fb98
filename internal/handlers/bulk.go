// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
)

// bulkRequest carries the selection and the argument of one bulk operation.
// Only the field the operation needs is read.
type bulkRequest struct {
	IDs        []uuid.UUID          `json:"ids"`
	Status     models.ContentStatus `json:"status"`
	At         *time.Time           `json:"at"`
	ParentID   *uuid.UUID           `json:"parent_id"`
	TemplateID string               `json:"template_id"`
	Visibility models.Visibility    `json:"visibility"`
	Positions  []lifecycle.Position `json:"positions"`
}

// Bulk runs the operation named by {op} over many items: status, delete,
// schedule, move, template, visibility or reorder. Failed ids are listed
// in the result; the response is 200 even when some items fail.
func (c *Content) Bulk(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req bulkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	op := chi.URLParam(r, "op")

	ids := req.IDs
	if op == "reorder" {
		ids = make([]uuid.UUID, len(req.Positions))
		for i, p := range req.Positions {
			ids[i] = p.ID
		}
	}
	if limit := c.a.cfg.Snapshot().MaxBatchSize; limit > 0 && len(ids) > limit {
		writeError(w, r, &lifecycle.Error{
			Code:    lifecycle.CodeLimitExceeded,
			Message: fmt.Sprintf("batch of %d items exceeds the limit of %d", len(ids), limit),
		})
		return
	}

	ctx := r.Context()
	keep, rejected := c.partition(ctx, ids)

	var run func() (*lifecycle.BulkResult, error)
	eng := c.a.engine
	switch op {
	case "status":
		run = func() (*lifecycle.BulkResult, error) { return eng.BulkStatus(ctx, keep, req.Status, who) }
	case "delete":
		run = func() (*lifecycle.BulkResult, error) { return eng.BulkDelete(ctx, keep, who) }
	case "schedule":
		if req.At == nil {
			writeProblem(w, http.StatusUnprocessableEntity, lifecycle.CodeValidation, "at is required")
			return
		}
		run = func() (*lifecycle.BulkResult, error) { return eng.BulkSchedule(ctx, keep, *req.At, who) }
	case "move":
		run = func() (*lifecycle.BulkResult, error) { return eng.BulkMove(ctx, keep, req.ParentID, who) }
	case "template":
		run = func() (*lifecycle.BulkResult, error) { return eng.BulkTemplate(ctx, keep, req.TemplateID, who) }
	case "visibility":
		run = func() (*lifecycle.BulkResult, error) { return eng.BulkVisibility(ctx, keep, req.Visibility, who) }
	case "reorder":
		run = func() (*lifecycle.BulkResult, error) {
			return eng.BulkReorder(ctx, positionsFor(req.Positions, keep), who)
		}
	default:
		writeProblem(w, http.StatusNotFound, lifecycle.CodeNotFound, fmt.Sprintf("unknown bulk operation %q", op))
		return
	}

	if len(keep) == 0 && len(rejected) > 0 {
		writeJSON(w, http.StatusOK, &lifecycle.BulkResult{Errors: rejected})
		return
	}
	res, err := run()
	if err != nil {
		writeError(w, r, err)
		return
	}
	res.Errors = append(rejected, res.Errors...)
	writeJSON(w, http.StatusOK, res)
}

// partition drops duplicate ids and splits the rest into items of this
// kind and failures for everything else.
func (c *Content) partition(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, []lifecycle.ItemError) {
	keep := make([]uuid.UUID, 0, len(ids))
	rejected := []lifecycle.ItemError{}
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := c.find(ctx, id); err != nil {
			rejected = append(rejected, itemFailure(id, err))
			continue
		}
		keep = append(keep, id)
	}
	return keep, rejected
}

// positionsFor keeps the positions whose id survived partitioning.
func positionsFor(all []lifecycle.Position, keep []uuid.UUID) []lifecycle.Position {
	ok := make(map[uuid.UUID]bool, len(keep))
	for _, id := range keep {
		ok[id] = true
	}
	out := make([]lifecycle.Position, 0, len(keep))
	for _, p := range all {
		if ok[p.ID] {
			out = append(out, p)
			delete(ok, p.ID)
		}
	}
	return out
}

func itemFailure(id uuid.UUID, err error) lifecycle.ItemError {
	var e *lifecycle.Error
	if errors.As(err, &e) {
		return lifecycle.ItemError{ID: id, Code: e.Code, Message: e.Message}
	}
	return lifecycle.ItemError{ID: id, Code: lifecycle.CodeInternal, Message: "internal error"}
}
