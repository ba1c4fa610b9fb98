// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sweep runs the periodic maintenance pass: runtime settings are
// reloaded, due scheduled items are published, stale editor locks are
// released and old cache invalidation log rows are pruned.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
)

// DefaultLogRetention is how long invalidation log rows are kept.
const DefaultLogRetention = 30 * 24 * time.Hour

// Refresher reloads runtime settings.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Pruner deletes log rows older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Report summarises one pass.
type Report struct {
	Published         []uuid.UUID           `json:"published"`
	Failures          []lifecycle.ItemError `json:"failures"`
	LocksReleased     int                   `json:"locks_released"`
	SettingsRefreshed bool                  `json:"settings_refreshed"`
	LogEntriesPruned  int64                 `json:"log_entries_pruned"`
}

// Runner executes sweep passes. Passes never overlap.
type Runner struct {
	mu        sync.Mutex
	engine    *lifecycle.Engine
	settings  Refresher
	pruner    Pruner
	retention time.Duration
	now       func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithSettings reloads runtime settings at the start of every pass.
func WithSettings(r Refresher) Option {
	return func(s *Runner) { s.settings = r }
}

// WithLogPruning deletes invalidation log rows older than retention.
func WithLogPruning(p Pruner, retention time.Duration) Option {
	return func(s *Runner) {
		s.pruner = p
		s.retention = retention
	}
}

// WithClock overrides the time source used for the pruning cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Runner) { s.now = now }
}

// New creates a Runner over eng.
func New(eng *lifecycle.Engine, opts ...Option) *Runner {
	r := &Runner{engine: eng, retention: DefaultLogRetention, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one pass. Settings refresh and log pruning are best-effort;
// publish and lock failures abort the pass.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := &Report{}
	if r.settings != nil {
		if err := r.settings.Refresh(ctx); err != nil {
			slog.Warn("sweep: settings refresh failed", "error", err)
		} else {
			rep.SettingsRefreshed = true
		}
	}

	res, err := r.engine.PublishDue(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish due: %w", err)
	}
	rep.Published = res.Published
	rep.Failures = res.Failures

	released, err := r.engine.SweepExpiredLocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep locks: %w", err)
	}
	rep.LocksReleased = released

	if r.pruner != nil && r.retention > 0 {
		n, err := r.pruner.Prune(ctx, r.now().Add(-r.retention))
		if err != nil {
			slog.Warn("sweep: log pruning failed", "error", err)
		}
		rep.LogEntriesPruned = n
	}
	return rep, nil
}

// Loop runs a pass immediately and then every interval until ctx is done.
func (r *Runner) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r.runLogged(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Runner) runLogged(ctx context.Context) {
	rep, err := r.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("sweep failed", "error", err)
		}
		return
	}
	if len(rep.Published) > 0 || len(rep.Failures) > 0 || rep.LocksReleased > 0 {
		slog.Info("sweep completed",
			"published", len(rep.Published),
			"failures", len(rep.Failures),
			"locks_released", rep.LocksReleased,
			"log_pruned", rep.LogEntriesPruned,
		)
		return
	}
	slog.Debug("sweep completed, nothing due")
}
