// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"pressroom/internal/models"
)

// Features toggles optional engine behaviour.
type Features struct {
	Hierarchy          bool `json:"hierarchy"`
	Locking            bool `json:"locking"`
	Revisions          bool `json:"revisions"`
	Scheduling         bool `json:"scheduling"`
	PasswordProtection bool `json:"password_protection"`
}

// Runtime holds the engine tunables. Values are immutable once published
// through a Provider; changes replace the whole snapshot.
type Runtime struct {
	LockTimeoutMinutes int      `json:"lock_timeout_minutes"`
	MaxDepth           int      `json:"max_depth"`
	MaxRevisions       int      `json:"max_revisions"`
	MaxBatchSize       int      `json:"max_batch_size"`
	DefaultPageSize    int      `json:"default_page_size"`
	MaxPageSize        int      `json:"max_page_size"`
	WordsPerMinute     int      `json:"words_per_minute"`
	ExcerptLength      int      `json:"excerpt_length"`
	CacheTTLSeconds    int      `json:"cache_ttl_seconds"`
	ReservedSlugs      []string `json:"reserved_slugs"`
	Features           Features `json:"features"`
}

// DefaultRuntime returns the built-in tunables.
func DefaultRuntime() Runtime {
	return Runtime{
		LockTimeoutMinutes: 15,
		MaxDepth:           5,
		MaxRevisions:       25,
		MaxBatchSize:       100,
		DefaultPageSize:    20,
		MaxPageSize:        100,
		WordsPerMinute:     200,
		ExcerptLength:      160,
		CacheTTLSeconds:    300,
		ReservedSlugs:      []string{"home", "blog", "404", "admin", "api"},
		Features: Features{
			Hierarchy:          true,
			Locking:            true,
			Revisions:          true,
			Scheduling:         true,
			PasswordProtection: true,
		},
	}
}

// LockTimeout returns the stale-lock threshold.
func (r Runtime) LockTimeout() time.Duration {
	return time.Duration(r.LockTimeoutMinutes) * time.Minute
}

// CacheTTL returns the cache entry lifetime.
func (r Runtime) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// keySet names the external key for every tunable, per source.
type keySet struct {
	LockTimeoutMinutes, MaxDepth, MaxRevisions, MaxBatchSize string
	DefaultPageSize, MaxPageSize, WordsPerMinute, ExcerptLength string
	CacheTTLSeconds, ReservedSlugs                              string
	Hierarchy, Locking, Revisions, Scheduling, PasswordProtection string
}

// apply returns a copy of r with every value found through lookup parsed in.
func (r Runtime) apply(lookup func(string) (string, bool), keys keySet) (Runtime, error) {
	out := r
	out.ReservedSlugs = append([]string(nil), r.ReservedSlugs...)

	ints := []struct {
		key string
		dst *int
	}{
		{keys.LockTimeoutMinutes, &out.LockTimeoutMinutes},
		{keys.MaxDepth, &out.MaxDepth},
		{keys.MaxRevisions, &out.MaxRevisions},
		{keys.MaxBatchSize, &out.MaxBatchSize},
		{keys.DefaultPageSize, &out.DefaultPageSize},
		{keys.MaxPageSize, &out.MaxPageSize},
		{keys.WordsPerMinute, &out.WordsPerMinute},
		{keys.ExcerptLength, &out.ExcerptLength},
		{keys.CacheTTLSeconds, &out.CacheTTLSeconds},
	}
	for _, f := range ints {
		raw, ok := lookup(f.key)
		if !ok {
			continue
		}
		n, err := parseInt(f.key, raw)
		if err != nil {
			return r, err
		}
		*f.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{keys.Hierarchy, &out.Features.Hierarchy},
		{keys.Locking, &out.Features.Locking},
		{keys.Revisions, &out.Features.Revisions},
		{keys.Scheduling, &out.Features.Scheduling},
		{keys.PasswordProtection, &out.Features.PasswordProtection},
	}
	for _, f := range bools {
		raw, ok := lookup(f.key)
		if !ok {
			continue
		}
		b, err := parseBool(f.key, raw)
		if err != nil {
			return r, err
		}
		*f.dst = b
	}

	if raw, ok := lookup(keys.ReservedSlugs); ok {
		out.ReservedSlugs = splitList(raw)
	}

	if out.DefaultPageSize > out.MaxPageSize && out.MaxPageSize > 0 {
		out.DefaultPageSize = out.MaxPageSize
	}
	return out, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Provider hands out the current tunables. Implementations must be safe
// for concurrent use; callers read a fresh snapshot on every operation.
type Provider interface {
	Snapshot() Runtime
}

// Static is a Provider that never changes.
type Static Runtime

// Snapshot returns the fixed tunables.
func (s Static) Snapshot() Runtime { return Runtime(s) }

// Live is a Provider whose snapshot can be swapped atomically at runtime.
type Live struct {
	current atomic.Pointer[Runtime]
}

// NewLive returns a Live provider seeded with initial.
func NewLive(initial Runtime) *Live {
	l := &Live{}
	l.Store(initial)
	return l
}

// Snapshot returns the most recently stored tunables.
func (l *Live) Snapshot() Runtime {
	return *l.current.Load()
}

// Store publishes a new snapshot.
func (l *Live) Store(r Runtime) {
	r.ReservedSlugs = append([]string(nil), r.ReservedSlugs...)
	l.current.Store(&r)
}

// SettingsReader loads persisted key/value settings.
type SettingsReader interface {
	All(ctx context.Context) (models.SiteSettings, error)
}

// settingKeys maps Runtime fields to site_settings keys.
var settingKeys = keySet{
	LockTimeoutMinutes: "content.lock_timeout_minutes",
	MaxDepth:           "content.max_depth",
	MaxRevisions:       "content.max_revisions",
	MaxBatchSize:       "content.max_batch_size",
	DefaultPageSize:    "content.default_page_size",
	MaxPageSize:        "content.max_page_size",
	WordsPerMinute:     "content.words_per_minute",
	ExcerptLength:      "content.excerpt_length",
	CacheTTLSeconds:    "content.cache_ttl_seconds",
	ReservedSlugs:      "content.reserved_slugs",
	Hierarchy:          "content.feature.hierarchy",
	Locking:            "content.feature.locking",
	Revisions:          "content.feature.revisions",
	Scheduling:         "content.feature.scheduling",
	PasswordProtection: "content.feature.password_protection",
}

// SettingsSource overlays site_settings rows on top of a base Runtime and
// publishes the result into a Live provider.
type SettingsSource struct {
	base   Runtime
	reader SettingsReader
	live   *Live
}

// NewSettingsSource creates a source that refreshes live from reader.
func NewSettingsSource(base Runtime, reader SettingsReader, live *Live) *SettingsSource {
	return &SettingsSource{base: base, reader: reader, live: live}
}

// SettingKeys lists the site_settings keys that override runtime tunables.
func SettingKeys() []string {
	k := settingKeys
	return []string{
		k.LockTimeoutMinutes, k.MaxDepth, k.MaxRevisions, k.MaxBatchSize,
		k.DefaultPageSize, k.MaxPageSize, k.WordsPerMinute, k.ExcerptLength,
		k.CacheTTLSeconds, k.ReservedSlugs,
		k.Hierarchy, k.Locking, k.Revisions, k.Scheduling, k.PasswordProtection,
	}
}

// ApplySettings overlays non-empty settings on base. Unknown keys are ignored.
func ApplySettings(base Runtime, settings models.SiteSettings) (Runtime, error) {
	lookup := func(key string) (string, bool) {
		v, ok := settings[key]
		return v, ok && strings.TrimSpace(v) != ""
	}
	return base.apply(lookup, settingKeys)
}

// Refresh reloads settings. On failure the previous snapshot stays active.
func (s *SettingsSource) Refresh(ctx context.Context) error {
	settings, err := s.reader.All(ctx)
	if err != nil {
		return fmt.Errorf("load site settings: %w", err)
	}
	next, err := ApplySettings(s.base, settings)
	if err != nil {
		return fmt.Errorf("apply site settings: %w", err)
	}
	s.live.Store(next)
	slog.Debug("runtime settings refreshed", "keys", len(settings))
	return nil
}
