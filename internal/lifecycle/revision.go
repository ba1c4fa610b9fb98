// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/models"
)

// record stores the text of state as revision number. It runs before the
// write that replaces state, so a failed snapshot leaves the item untouched.
// It returns nil when revisions are disabled.
func (e *Engine) record(ctx context.Context, rt config.Runtime, state *models.Item, number int, author uuid.UUID, note string) (*models.Revision, error) {
	if !rt.Features.Revisions {
		return nil, nil
	}
	rev := &models.Revision{
		ID:        uuid.New(),
		ItemID:    state.ID,
		Number:    number,
		Title:     state.Title,
		Body:      state.Body,
		Excerpt:   state.Excerpt,
		Note:      note,
		AuthorID:  author,
		CreatedAt: e.clock(),
	}
	if err := e.revisions.Create(ctx, rev); err != nil {
		return nil, fmt.Errorf("create revision: %w", err)
	}
	return rev, nil
}

// discard removes a snapshot whose write was rejected.
func (e *Engine) discard(ctx context.Context, rev *models.Revision) {
	if rev == nil {
		return
	}
	if err := e.revisions.Delete(ctx, rev.ID); err != nil {
		e.log.Warn("orphan revision not removed", "item", rev.ItemID, "revision", rev.ID, "error", err)
	}
}

// prune evicts the oldest snapshots beyond the retention limit once the
// write they belong to has landed. The newest row is never evicted. A
// failure is logged; the next snapshot applies the limit again.
func (e *Engine) prune(ctx context.Context, rt config.Runtime, itemID uuid.UUID) {
	if !rt.Features.Revisions || rt.MaxRevisions <= 0 {
		return
	}
	pruned, err := e.revisions.DeleteOldest(ctx, itemID, rt.MaxRevisions)
	if err != nil {
		e.log.Warn("revision pruning failed", "item", itemID, "error", err)
		return
	}
	if pruned > 0 {
		e.log.Debug("revisions pruned", "item", itemID, "count", pruned)
	}
}

// Revisions lists an item's snapshots, newest first. Soft-deleted items
// are included so their history can be inspected before restoring.
func (e *Engine) Revisions(ctx context.Context, itemID uuid.UUID) ([]models.Revision, error) {
	if _, err := e.loadAny(ctx, itemID); err != nil {
		return nil, err
	}
	revs, err := e.revisions.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revs, nil
}

// RestoreRevision rolls the item's text back to revisionID. The current
// state is kept as a checkpoint numbered one past the current counter, and
// the item ends up one past the checkpoint.
func (e *Engine) RestoreRevision(ctx context.Context, revisionID, actor uuid.UUID) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	if !rt.Features.Revisions {
		return nil, disabled("revisions")
	}
	rev, err := e.revisions.FindByID(ctx, revisionID)
	if err != nil {
		return nil, fmt.Errorf("find revision: %w", err)
	}
	if rev == nil {
		return nil, notFound("revision", revisionID)
	}
	item, err := e.load(ctx, rev.ItemID)
	if err != nil {
		return nil, err
	}
	if err := checkLock(rt, item, actor); err != nil {
		return nil, err
	}

	prev := item.Clone()
	checkpoint := prev.Revision + 1
	item.Title = rev.Title
	item.Body = rev.Body
	item.Excerpt = rev.Excerpt
	if err := derive(rt, item, false); err != nil {
		return nil, err
	}
	item.Revision = checkpoint + 1
	item.UpdatedAt = e.clock()

	note := fmt.Sprintf("checkpoint before restoring revision %d", rev.Number)
	saved, err := e.record(ctx, rt, prev, checkpoint, actor, note)
	if err != nil {
		return nil, err
	}
	if err := e.save(ctx, rt, item, prev.Revision, actor); err != nil {
		e.discard(ctx, saved)
		return nil, err
	}
	e.prune(ctx, rt, item.ID)

	e.log.Info("revision restored", "id", item.ID, "revision", rev.Number, "now", item.Revision)
	cs := newChangeSet()
	cs.item(prev, item, "restore_revision")
	e.invalidate(ctx, cs)
	return item, nil
}
