// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/models"
)

// BulkResult reports a batch. Partial success is normal; every failed id
// appears in Errors with its code.
type BulkResult struct {
	Succeeded int         `json:"succeeded"`
	Errors    []ItemError `json:"errors"`
}

// Position assigns a sort order to one item.
type Position struct {
	ID        uuid.UUID `json:"id"`
	SortOrder int       `json:"sort_order"`
}

type bulkOp func(ctx context.Context, cs *changeSet, rt config.Runtime, id uuid.UUID) error

// checkBatch validates the id list before anything is mutated and drops
// duplicates, keeping the first occurrence.
func checkBatch(rt config.Runtime, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, invalid("no items selected")
	}
	if rt.MaxBatchSize > 0 && len(ids) > rt.MaxBatchSize {
		return nil, &Error{
			Code:    CodeLimitExceeded,
			Message: fmt.Sprintf("batch of %d items exceeds the limit of %d", len(ids), rt.MaxBatchSize),
		}
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// bulk runs op for each id, isolating failures, then invalidates once.
func (e *Engine) bulk(ctx context.Context, rt config.Runtime, name string, ids []uuid.UUID, op bulkOp) *BulkResult {
	res := &BulkResult{Errors: []ItemError{}}
	cs := newChangeSet()
	for _, id := range ids {
		if err := op(ctx, cs, rt, id); err != nil {
			if CodeOf(err) == "" {
				e.log.Error("bulk item failed", "op", name, "id", id, "error", err)
			}
			res.Errors = append(res.Errors, itemError(id, err))
			continue
		}
		res.Succeeded++
	}
	e.invalidate(ctx, cs)
	e.log.Info("bulk operation finished", "op", name, "succeeded", res.Succeeded, "failed", len(res.Errors))
	return res
}

func (e *Engine) bulkMutate(ctx context.Context, ids []uuid.UUID, actor uuid.UUID, name string, fn mutateFunc) (*BulkResult, error) {
	rt := e.cfg.Snapshot()
	ids, err := checkBatch(rt, ids)
	if err != nil {
		return nil, err
	}
	return e.bulk(ctx, rt, name, ids, func(ctx context.Context, cs *changeSet, rt config.Runtime, id uuid.UUID) error {
		_, err := e.mutate(ctx, cs, rt, id, actor, name, fn)
		return err
	}), nil
}

// BulkStatus moves every item to status. Use BulkSchedule for scheduling.
func (e *Engine) BulkStatus(ctx context.Context, ids []uuid.UUID, status models.ContentStatus, actor uuid.UUID) (*BulkResult, error) {
	fn, err := statusFunc(status)
	if err != nil {
		return nil, err
	}
	return e.bulkMutate(ctx, ids, actor, "status", fn)
}

// BulkDelete soft-deletes every item. System items are reported as
// forbidden and left untouched.
func (e *Engine) BulkDelete(ctx context.Context, ids []uuid.UUID, actor uuid.UUID) (*BulkResult, error) {
	rt := e.cfg.Snapshot()
	ids, err := checkBatch(rt, ids)
	if err != nil {
		return nil, err
	}
	return e.bulk(ctx, rt, "delete", ids, func(ctx context.Context, cs *changeSet, rt config.Runtime, id uuid.UUID) error {
		_, err := e.softDelete(ctx, cs, rt, id, actor)
		return err
	}), nil
}

// BulkSchedule queues every item for publication at at.
func (e *Engine) BulkSchedule(ctx context.Context, ids []uuid.UUID, at time.Time, actor uuid.UUID) (*BulkResult, error) {
	rt := e.cfg.Snapshot()
	if !rt.Features.Scheduling {
		return nil, disabled("scheduling")
	}
	if !at.After(e.clock()) {
		return nil, invalid("scheduled_for must be in the future")
	}
	return e.bulkMutate(ctx, ids, actor, "schedule", scheduleAt(at))
}

// BulkMove reparents every page under parentID, or to the root when nil.
func (e *Engine) BulkMove(ctx context.Context, ids []uuid.UUID, parentID *uuid.UUID, actor uuid.UUID) (*BulkResult, error) {
	rt := e.cfg.Snapshot()
	if !rt.Features.Hierarchy {
		return nil, disabled("hierarchy")
	}
	ids, err := checkBatch(rt, ids)
	if err != nil {
		return nil, err
	}
	return e.bulk(ctx, rt, "move", ids, func(ctx context.Context, cs *changeSet, rt config.Runtime, id uuid.UUID) error {
		_, err := e.setParent(ctx, cs, rt, id, parentID, actor)
		return err
	}), nil
}

// BulkTemplate assigns templateID to every item.
func (e *Engine) BulkTemplate(ctx context.Context, ids []uuid.UUID, templateID string, actor uuid.UUID) (*BulkResult, error) {
	return e.bulkMutate(ctx, ids, actor, "template", func(_ config.Runtime, item *models.Item, _ time.Time) error {
		if item.TemplateID == templateID {
			return errUnchanged
		}
		item.TemplateID = templateID
		return nil
	})
}

// BulkVisibility sets public or private visibility. Password protection
// needs a per-item password and is refused for batches.
func (e *Engine) BulkVisibility(ctx context.Context, ids []uuid.UUID, v models.Visibility, actor uuid.UUID) (*BulkResult, error) {
	if !v.Valid() {
		return nil, invalid("unknown visibility %q", v)
	}
	if v == models.VisibilityPassword {
		return nil, invalid("password visibility must be set per item")
	}
	return e.bulkMutate(ctx, ids, actor, "visibility", func(rt config.Runtime, item *models.Item, _ time.Time) error {
		if item.Visibility == v {
			return errUnchanged
		}
		return applyVisibility(rt, item, v, nil)
	})
}

// BulkReorder assigns sort orders.
func (e *Engine) BulkReorder(ctx context.Context, positions []Position, actor uuid.UUID) (*BulkResult, error) {
	rt := e.cfg.Snapshot()
	order := make(map[uuid.UUID]int, len(positions))
	ids := make([]uuid.UUID, 0, len(positions))
	for _, p := range positions {
		order[p.ID] = p.SortOrder
		ids = append(ids, p.ID)
	}
	ids, err := checkBatch(rt, ids)
	if err != nil {
		return nil, err
	}
	return e.bulk(ctx, rt, "reorder", ids, func(ctx context.Context, cs *changeSet, rt config.Runtime, id uuid.UUID) error {
		_, err := e.mutate(ctx, cs, rt, id, actor, "reorder", func(_ config.Runtime, item *models.Item, _ time.Time) error {
			if item.SortOrder == order[id] {
				return errUnchanged
			}
			item.SortOrder = order[id]
			return nil
		})
		return err
	}), nil
}
