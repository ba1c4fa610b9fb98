// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CodeInternal marks a per-item failure that was not a typed engine error.
const CodeInternal Code = "internal"

// ItemError is one failed identifier inside a batch.
type ItemError struct {
	ID      uuid.UUID `json:"id"`
	Code    Code      `json:"code"`
	Message string    `json:"message"`
}

func itemError(id uuid.UUID, err error) ItemError {
	var e *Error
	if errors.As(err, &e) {
		return ItemError{ID: id, Code: e.Code, Message: e.Message}
	}
	return ItemError{ID: id, Code: CodeInternal, Message: err.Error()}
}

// SweepResult reports one scheduled-publish run.
type SweepResult struct {
	Published []uuid.UUID `json:"published"`
	Failures  []ItemError `json:"failures"`
}

// PublishDue publishes every scheduled item whose date has passed. A
// failing item does not stop the batch. Caches are invalidated and the
// revalidation hook called once for the whole run. Safe to call
// repeatedly: items already published are no longer selected.
func (e *Engine) PublishDue(ctx context.Context) (*SweepResult, error) {
	rt := e.cfg.Snapshot()
	now := e.clock()
	due, err := e.items.ListDueScheduled(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list due items: %w", err)
	}

	res := &SweepResult{Published: []uuid.UUID{}, Failures: []ItemError{}}
	cs := newChangeSet()
	for i := range due {
		item := &due[i]
		prev := item.Clone()
		if err := publish(rt, item, now); err != nil {
			if errors.Is(err, errUnchanged) {
				continue
			}
			res.Failures = append(res.Failures, itemError(item.ID, err))
			continue
		}
		item.UpdatedAt = now
		// Editor locks do not hold back scheduled publication.
		guard := WriteGuard{Revision: prev.Revision, IgnoreLock: true}
		if err := e.saveGuarded(ctx, rt, item, guard); err != nil {
			e.log.Warn("scheduled publish failed", "id", item.ID, "error", err)
			res.Failures = append(res.Failures, itemError(item.ID, err))
			continue
		}
		cs.item(prev, item, "publish")
		res.Published = append(res.Published, item.ID)
	}

	e.invalidate(ctx, cs)
	if len(due) > 0 {
		e.log.Info("scheduled items published", "published", len(res.Published), "failed", len(res.Failures))
	}
	return res, nil
}
