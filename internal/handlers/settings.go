// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"fmt"
	"net/http"
	"sort"

	"pressroom/internal/config"
	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
	"pressroom/internal/store"
)

const (
	defaultCacheLogLimit = 50
	maxCacheLogLimit     = 500
)

type settingsResponse struct {
	Settings map[string]string `json:"settings"`
	Runtime  config.Runtime    `json:"runtime"`
}

func (a *Admin) settingsView(settings models.SiteSettings) settingsResponse {
	return settingsResponse{Settings: settings.Only(config.SettingKeys()...), Runtime: a.cfg.Snapshot()}
}

// Settings returns the runtime setting overrides and the effective tunables.
func (a *Admin) Settings(w http.ResponseWriter, r *http.Request) {
	if a.settings == nil {
		writeProblem(w, http.StatusNotImplemented, lifecycle.CodeInternal, "settings are not configured")
		return
	}
	current, err := a.settings.All(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("load settings: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, a.settingsView(current))
}

// UpdateSettings stores overrides and publishes the new tunables. The
// merged result is validated before anything is written; an empty value
// falls back to the environment default.
func (a *Admin) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if a.settings == nil {
		writeProblem(w, http.StatusNotImplemented, lifecycle.CodeInternal, "settings are not configured")
		return
	}
	var req map[string]string
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req) == 0 {
		writeProblem(w, http.StatusUnprocessableEntity, lifecycle.CodeValidation, "no settings given")
		return
	}

	known := make(map[string]bool)
	for _, key := range config.SettingKeys() {
		known[key] = true
	}
	var unknown []string
	for key := range req {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		writeProblem(w, http.StatusUnprocessableEntity, lifecycle.CodeValidation, fmt.Sprintf("unknown settings: %v", unknown))
		return
	}

	ctx := r.Context()
	current, err := a.settings.All(ctx)
	if err != nil {
		writeError(w, r, fmt.Errorf("load settings: %w", err))
		return
	}
	merged := make(models.SiteSettings, len(current)+len(req))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range req {
		merged[k] = v
	}
	if _, err := config.ApplySettings(a.base, merged); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, lifecycle.CodeValidation, err.Error())
		return
	}

	if err := a.settings.SetMany(ctx, req); err != nil {
		writeError(w, r, fmt.Errorf("save settings: %w", err))
		return
	}
	if a.source != nil {
		if err := a.source.Refresh(ctx); err != nil {
			writeError(w, r, fmt.Errorf("refresh settings: %w", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, a.settingsView(merged))
}

// CacheLog lists recent cache invalidations, newest first.
func (a *Admin) CacheLog(w http.ResponseWriter, r *http.Request) {
	if a.cacheLog == nil {
		writeProblem(w, http.StatusNotImplemented, lifecycle.CodeInternal, "cache log is not configured")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, lifecycle.CodeValidation, err.Error())
		return
	}
	if limit <= 0 {
		limit = defaultCacheLogLimit
	}
	if limit > maxCacheLogLimit {
		limit = maxCacheLogLimit
	}
	entries, err := a.cacheLog.RecentEntries(r.Context(), limit)
	if err != nil {
		writeError(w, r, fmt.Errorf("recent cache log: %w", err))
		return
	}
	if entries == nil {
		entries = []store.CacheLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Sweep runs one maintenance pass on demand, for operators who drive
// scheduling from an external cron.
func (a *Admin) Sweep(w http.ResponseWriter, r *http.Request) {
	if a.sweeper == nil {
		writeProblem(w, http.StatusNotImplemented, lifecycle.CodeInternal, "sweep is not configured")
		return
	}
	rep, err := a.sweeper.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
