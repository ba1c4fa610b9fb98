// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/models"
)

// errUnchanged tells mutate the item already has the requested state.
var errUnchanged = errors.New("unchanged")

// mutateFunc changes item in place. It returns errUnchanged to skip the write.
type mutateFunc func(rt config.Runtime, item *models.Item, now time.Time) error

// mutate is the load, lock-check, apply, guarded-save cycle shared by every
// operation that does not touch title, body or excerpt.
func (e *Engine) mutate(ctx context.Context, cs *changeSet, rt config.Runtime, id, actor uuid.UUID, action string, fn mutateFunc) (*models.Item, error) {
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkLock(rt, item, actor); err != nil {
		return nil, err
	}
	prev := item.Clone()
	now := e.clock()
	if err := fn(rt, item, now); err != nil {
		if errors.Is(err, errUnchanged) {
			return item, nil
		}
		return nil, err
	}
	item.UpdatedAt = now
	if err := e.save(ctx, rt, item, prev.Revision, actor); err != nil {
		return nil, err
	}
	e.log.Info("content changed", "action", action, "id", id, "status", item.Status)
	cs.item(prev, item, action)
	return item, nil
}

func (e *Engine) run(ctx context.Context, id, actor uuid.UUID, action string, fn mutateFunc) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	cs := newChangeSet()
	item, err := e.mutate(ctx, cs, rt, id, actor, action, fn)
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx, cs)
	return item, nil
}

// publish stamps PublishedAt only the first time.
func publish(_ config.Runtime, item *models.Item, now time.Time) error {
	switch item.Status {
	case models.StatusPublished:
		return errUnchanged
	case models.StatusArchived:
		return invalid("archived item %s must be restored before publishing", item.ID)
	}
	item.Status = models.StatusPublished
	item.ScheduledFor = nil
	if item.PublishedAt == nil {
		t := now
		item.PublishedAt = &t
	}
	return nil
}

func unpublish(_ config.Runtime, item *models.Item, _ time.Time) error {
	switch item.Status {
	case models.StatusDraft:
		return errUnchanged
	case models.StatusPublished:
		item.Status = models.StatusDraft
		return nil
	}
	return invalid("only published items can be unpublished, item %s is %s", item.ID, item.Status)
}

// schedule requires at to lie strictly after now.
func schedule(rt config.Runtime, item *models.Item, at *time.Time, now time.Time) error {
	if !rt.Features.Scheduling {
		return disabled("scheduling")
	}
	if at == nil {
		return invalid("scheduled_for is required")
	}
	if !at.After(now) {
		return invalid("scheduled_for must be in the future")
	}
	switch item.Status {
	case models.StatusPublished:
		return invalid("published item %s cannot be scheduled; unpublish it first", item.ID)
	case models.StatusArchived:
		return invalid("archived item %s must be restored before scheduling", item.ID)
	}
	t := at.UTC()
	item.Status = models.StatusScheduled
	item.ScheduledFor = &t
	return nil
}

func scheduleAt(at time.Time) mutateFunc {
	return func(rt config.Runtime, item *models.Item, now time.Time) error {
		return schedule(rt, item, &at, now)
	}
}

// unschedule reverts a scheduled item to draft.
func unschedule(_ config.Runtime, item *models.Item, _ time.Time) error {
	if item.Status != models.StatusScheduled {
		return errUnchanged
	}
	item.Status = models.StatusDraft
	item.ScheduledFor = nil
	return nil
}

func archive(_ config.Runtime, item *models.Item, _ time.Time) error {
	if item.Status == models.StatusArchived {
		return errUnchanged
	}
	item.Status = models.StatusArchived
	item.ScheduledFor = nil
	return nil
}

// unarchive returns a live archived item to draft.
func unarchive(_ config.Runtime, item *models.Item, _ time.Time) error {
	if item.Status != models.StatusArchived {
		return errUnchanged
	}
	item.Status = models.StatusDraft
	return nil
}

// Publish moves a draft or scheduled item to published.
func (e *Engine) Publish(ctx context.Context, id, actor uuid.UUID) (*models.Item, error) {
	return e.run(ctx, id, actor, "publish", publish)
}

// Unpublish moves a published item back to draft, keeping PublishedAt.
func (e *Engine) Unpublish(ctx context.Context, id, actor uuid.UUID) (*models.Item, error) {
	return e.run(ctx, id, actor, "unpublish", unpublish)
}

// Schedule queues a draft for publication at at.
func (e *Engine) Schedule(ctx context.Context, id, actor uuid.UUID, at time.Time) (*models.Item, error) {
	return e.run(ctx, id, actor, "schedule", scheduleAt(at))
}

// Unschedule clears the publication date and reverts to draft.
func (e *Engine) Unschedule(ctx context.Context, id, actor uuid.UUID) (*models.Item, error) {
	return e.run(ctx, id, actor, "unschedule", unschedule)
}

// Archive takes an item out of circulation without deleting it. System
// items may be archived.
func (e *Engine) Archive(ctx context.Context, id, actor uuid.UUID) (*models.Item, error) {
	return e.run(ctx, id, actor, "archive", archive)
}

// statusFunc maps a target status to its transition. Scheduling needs a
// date and goes through Schedule instead.
func statusFunc(status models.ContentStatus) (mutateFunc, error) {
	switch status {
	case models.StatusDraft:
		return func(rt config.Runtime, item *models.Item, now time.Time) error {
			switch item.Status {
			case models.StatusScheduled:
				return unschedule(rt, item, now)
			case models.StatusArchived:
				return unarchive(rt, item, now)
			}
			return unpublish(rt, item, now)
		}, nil
	case models.StatusPublished:
		return publish, nil
	case models.StatusArchived:
		return archive, nil
	case models.StatusScheduled:
		return nil, invalid("scheduling requires a date")
	}
	return nil, invalid("unknown status %q", status)
}

// SetStatus moves an item to status using the matching transition.
func (e *Engine) SetStatus(ctx context.Context, id, actor uuid.UUID, status models.ContentStatus) (*models.Item, error) {
	fn, err := statusFunc(status)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, id, actor, "status", fn)
}
