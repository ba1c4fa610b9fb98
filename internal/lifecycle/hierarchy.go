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

// maxAncestry bounds ancestor walks. It is independent of the runtime depth
// limit, which can be lowered below the depth of existing pages.
const maxAncestry = 1024

func maxDepth(depth, limit int) *Error {
	return &Error{
		Code:    CodeMaxDepthExceeded,
		Message: fmt.Sprintf("depth %d exceeds the maximum of %d", depth, limit),
		Depth:   depth,
	}
}

func circular(id uuid.UUID) *Error {
	return &Error{Code: CodeCircularReference, Message: fmt.Sprintf("page %s cannot be placed under itself or its descendants", id)}
}

// parentFor validates that parentID can hold children of item's kind.
func (e *Engine) parentFor(ctx context.Context, rt config.Runtime, item *models.Item, parentID uuid.UUID) (*models.Item, error) {
	if !item.Kind.Hierarchical() {
		return nil, invalid("%s items are not hierarchical", item.Kind)
	}
	if !rt.Features.Hierarchy {
		return nil, disabled("hierarchy")
	}
	if parentID == item.ID {
		return nil, circular(item.ID)
	}
	parent, err := e.items.FindByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("find parent: %w", err)
	}
	if parent == nil || parent.IsDeleted() || parent.Kind != item.Kind {
		return nil, notFound("parent page", parentID)
	}
	return parent, nil
}

// SetParent moves a page under parentID, or to the root when nil. The page
// and all of its descendants get their depth and path recomputed.
func (e *Engine) SetParent(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, actor uuid.UUID) (*models.Item, error) {
	rt := e.cfg.Snapshot()
	cs := newChangeSet()
	item, err := e.setParent(ctx, cs, rt, id, parentID, actor)
	e.invalidate(ctx, cs)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (e *Engine) setParent(ctx context.Context, cs *changeSet, rt config.Runtime, id uuid.UUID, parentID *uuid.UUID, actor uuid.UUID) (*models.Item, error) {
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !item.Kind.Hierarchical() {
		return nil, invalid("%s items are not hierarchical", item.Kind)
	}
	if !rt.Features.Hierarchy {
		return nil, disabled("hierarchy")
	}
	if item.IsSystem {
		return nil, forbidden("system page %s cannot be moved", id)
	}
	if err := checkLock(rt, item, actor); err != nil {
		return nil, err
	}

	var parent *models.Item
	if parentID != nil {
		if parent, err = e.parentFor(ctx, rt, item, *parentID); err != nil {
			return nil, err
		}
		if err := e.guardCycle(ctx, item.ID, parent); err != nil {
			return nil, err
		}
	}
	if samePosition(item.ParentID, parentID) {
		return item, nil
	}

	depth := 0
	if parent != nil {
		depth = parent.Depth + 1
	}
	height, err := e.subtreeHeight(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if depth+height > rt.MaxDepth {
		return nil, maxDepth(depth+height, rt.MaxDepth)
	}

	prev := item.Clone()
	if parent != nil {
		pid := parent.ID
		item.ParentID = &pid
	} else {
		item.ParentID = nil
	}
	item.Depth = depth
	item.Path = pathFor(parent, item.Slug)
	item.UpdatedAt = e.clock()
	if err := e.save(ctx, rt, item, prev.Revision, actor); err != nil {
		return nil, err
	}
	cs.item(prev, item, "move")
	if err := e.rebuild(ctx, cs, item); err != nil {
		return nil, err
	}

	e.log.Info("page moved", "id", id, "path", item.Path, "depth", item.Depth)
	return item, nil
}

func samePosition(current, next *uuid.UUID) bool {
	if current == nil || next == nil {
		return current == nil && next == nil
	}
	return *current == *next
}

// guardCycle walks up from parent and fails if id is among its ancestors.
// A chain that revisits a node or exceeds maxAncestry is treated as a
// cycle too.
func (e *Engine) guardCycle(ctx context.Context, id uuid.UUID, parent *models.Item) error {
	seen := map[uuid.UUID]bool{}
	for cur := parent; cur != nil; {
		if cur.ID == id || seen[cur.ID] {
			return circular(id)
		}
		seen[cur.ID] = true
		if cur.ParentID == nil {
			return nil
		}
		if len(seen) > maxAncestry {
			return circular(id)
		}
		next, err := e.items.FindByID(ctx, *cur.ParentID)
		if err != nil {
			return fmt.Errorf("find ancestor: %w", err)
		}
		cur = next
	}
	return nil
}

// subtreeHeight returns how many levels sit below id.
func (e *Engine) subtreeHeight(ctx context.Context, id uuid.UUID) (int, error) {
	type entry struct {
		id    uuid.UUID
		level int
	}
	height := 0
	seen := map[uuid.UUID]bool{id: true}
	queue := []entry{{id: id}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children, err := e.items.Children(ctx, cur.id)
		if err != nil {
			return 0, fmt.Errorf("list children: %w", err)
		}
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			if cur.level+1 > height {
				height = cur.level + 1
			}
			queue = append(queue, entry{id: c.ID, level: cur.level + 1})
		}
	}
	return height, nil
}

// rebuild recomputes depth and path for every descendant of root using an
// explicit worklist, then writes the changed rows in one batch.
func (e *Engine) rebuild(ctx context.Context, cs *changeSet, root *models.Item) error {
	var updates []models.PathUpdate
	seen := map[uuid.UUID]bool{root.ID: true}
	queue := []*models.Item{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		children, err := e.items.Children(ctx, parent.ID)
		if err != nil {
			return fmt.Errorf("list children: %w", err)
		}
		for i := range children {
			child := &children[i]
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			before := child.Clone()
			child.Depth = parent.Depth + 1
			child.Path = pathFor(parent, child.Slug)
			if child.Depth != before.Depth || child.Path != before.Path {
				pid := parent.ID
				updates = append(updates, models.PathUpdate{ID: child.ID, ParentID: &pid, Depth: child.Depth, Path: child.Path})
				cs.item(before, child, "rebuild")
			}
			queue = append(queue, child)
		}
	}
	if len(updates) == 0 {
		return nil
	}
	if err := e.items.ApplyPaths(ctx, updates); err != nil {
		return fmt.Errorf("apply paths: %w", err)
	}
	e.log.Debug("descendant paths rebuilt", "root", root.ID, "count", len(updates))
	return nil
}

// Ancestors returns the chain from the root down to the page's parent.
func (e *Engine) Ancestors(ctx context.Context, id uuid.UUID) ([]models.Item, error) {
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	var chain []models.Item
	seen := map[uuid.UUID]bool{item.ID: true}
	for pid := item.ParentID; pid != nil; {
		if seen[*pid] || len(chain) > maxAncestry {
			return nil, circular(id)
		}
		seen[*pid] = true
		parent, err := e.items.FindByID(ctx, *pid)
		if err != nil {
			return nil, fmt.Errorf("find ancestor: %w", err)
		}
		if parent == nil {
			break
		}
		chain = append(chain, *parent)
		pid = parent.ParentID
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// Children returns the live direct children of a page.
func (e *Engine) Children(ctx context.Context, id uuid.UUID) ([]models.Item, error) {
	if _, err := e.load(ctx, id); err != nil {
		return nil, err
	}
	children, err := e.items.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

// Descendants returns every live page below id in breadth-first order.
func (e *Engine) Descendants(ctx context.Context, id uuid.UUID) ([]models.Item, error) {
	if _, err := e.load(ctx, id); err != nil {
		return nil, err
	}
	var out []models.Item
	seen := map[uuid.UUID]bool{id: true}
	queue := []uuid.UUID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		children, err := e.items.Children(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("list children: %w", err)
		}
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			queue = append(queue, c.ID)
		}
	}
	return out, nil
}
