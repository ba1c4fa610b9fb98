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

// LockInfo describes the editor lock on an item.
type LockInfo struct {
	ItemID    uuid.UUID  `json:"item_id"`
	Locked    bool       `json:"locked"`
	Holder    *uuid.UUID `json:"holder,omitempty"`
	LockedAt  *time.Time `json:"locked_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Stale     bool       `json:"stale"`
}

func lockInfo(rt config.Runtime, item *models.Item, now time.Time) *LockInfo {
	info := &LockInfo{ItemID: item.ID, Locked: item.IsLocked}
	if !item.IsLocked || item.LockedAt == nil {
		return info
	}
	holder := *item.LockedBy
	at := *item.LockedAt
	expires := at.Add(rt.LockTimeout())
	info.Holder = &holder
	info.LockedAt = &at
	info.ExpiresAt = &expires
	info.Stale = now.After(expires)
	return info
}

// AcquireLock grants holder the editor lock. It is re-entrant for the
// current holder and takes over a lock older than the timeout; otherwise
// it fails with a locked error naming the holder.
func (e *Engine) AcquireLock(ctx context.Context, id, holder uuid.UUID) (*LockInfo, error) {
	rt := e.cfg.Snapshot()
	if !rt.Features.Locking {
		return nil, disabled("locking")
	}
	if holder == uuid.Nil {
		return nil, invalid("lock holder is required")
	}
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	ok, err := e.items.TryLock(ctx, id, holder, now, now.Add(-rt.LockTimeout()))
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		current, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.IsLocked && !current.LockHeldBy(holder) {
			return nil, locked(current.LockedBy)
		}
		return nil, conflict("lock on item %s changed concurrently, retry", id)
	}

	if item.IsLocked && !item.LockHeldBy(holder) {
		e.log.Info("stale lock taken over", "id", id, "previous_holder", *item.LockedBy, "holder", holder)
	}
	item.IsLocked = true
	item.LockedBy = &holder
	item.LockedAt = &now

	cs := newChangeSet()
	cs.lock(item, "lock")
	e.invalidate(ctx, cs)
	return lockInfo(rt, item, now), nil
}

// ReleaseLock clears the lock. Only the holder may release unless force
// is set. Releasing an unlocked item is a no-op.
func (e *Engine) ReleaseLock(ctx context.Context, id, holder uuid.UUID, force bool) error {
	rt := e.cfg.Snapshot()
	if !rt.Features.Locking {
		return disabled("locking")
	}
	item, err := e.loadAny(ctx, id)
	if err != nil {
		return err
	}
	if !item.IsLocked {
		return nil
	}
	if !force && !item.LockHeldBy(holder) {
		return notLockOwner(item.LockedBy)
	}

	ok, err := e.items.Unlock(ctx, id, holder, force)
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if !ok {
		current, err := e.loadAny(ctx, id)
		if err != nil {
			return err
		}
		if current.IsLocked {
			return notLockOwner(current.LockedBy)
		}
		return nil
	}

	if force && !item.LockHeldBy(holder) {
		e.log.Info("lock force-released", "id", id, "holder", *item.LockedBy, "by", holder)
	}
	cs := newChangeSet()
	cs.lock(item, "unlock")
	e.invalidate(ctx, cs)
	return nil
}

func notLockOwner(holder *uuid.UUID) *Error {
	e := &Error{Code: CodeNotLockOwner, Message: "only the lock holder can release this lock"}
	if holder != nil {
		h := *holder
		e.Holder = &h
	}
	return e
}

// LockStatus reports who holds the lock and whether it has gone stale.
func (e *Engine) LockStatus(ctx context.Context, id uuid.UUID) (*LockInfo, error) {
	rt := e.cfg.Snapshot()
	item, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return lockInfo(rt, item, e.clock()), nil
}

// SweepExpiredLocks clears every lock older than the timeout in one batch.
// It is meant for a periodic trigger, not for request paths.
func (e *Engine) SweepExpiredLocks(ctx context.Context) (int, error) {
	rt := e.cfg.Snapshot()
	if !rt.Features.Locking {
		return 0, nil
	}
	released, err := e.items.ClearStaleLocks(ctx, e.clock().Add(-rt.LockTimeout()))
	if err != nil {
		return 0, fmt.Errorf("clear stale locks: %w", err)
	}
	if len(released) == 0 {
		return 0, nil
	}

	cs := newChangeSet()
	for i := range released {
		cs.lock(&released[i], "unlock")
	}
	e.invalidate(ctx, cs)
	e.log.Info("stale locks released", "count", len(released))
	return len(released), nil
}
