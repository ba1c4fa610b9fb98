// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the pressroom API.
// Admin handlers expose the content engine as JSON; public handlers
// serve published content to readers. Handlers receive their
// dependencies through the handler struct.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/lifecycle"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/store"
	"pressroom/internal/sweep"
)

// SettingsStore reads and writes persisted runtime settings.
type SettingsStore interface {
	All(ctx context.Context) (models.SiteSettings, error)
	SetMany(ctx context.Context, settings map[string]string) error
}

// CacheLogReader lists recent cache invalidations.
type CacheLogReader interface {
	RecentEntries(ctx context.Context, limit int) ([]store.CacheLogEntry, error)
}

// Admin groups all admin API handlers and their dependencies.
type Admin struct {
	engine   *lifecycle.Engine
	cfg      config.Provider
	base     config.Runtime
	settings SettingsStore
	source   sweep.Refresher
	cacheLog CacheLogReader
	sweeper  *sweep.Runner
}

// NewAdmin creates the admin handler group. settings, source, cacheLog
// and sweeper may be nil; their endpoints then answer 501. base is the
// environment-derived runtime that settings are layered on.
func NewAdmin(eng *lifecycle.Engine, cfg config.Provider, base config.Runtime, settings SettingsStore, source sweep.Refresher, cacheLog CacheLogReader, sweeper *sweep.Runner) *Admin {
	return &Admin{
		engine:   eng,
		cfg:      cfg,
		base:     base,
		settings: settings,
		source:   source,
		cacheLog: cacheLog,
		sweeper:  sweeper,
	}
}

// Content returns the handlers scoped to one content kind.
func (a *Admin) Content(kind models.ContentKind) *Content {
	return &Content{a: a, kind: kind}
}

// --- JSON plumbing ---

// apiError is the body of every error response.
type apiError struct {
	Code    string     `json:"code"`
	Message string     `json:"message"`
	Holder  *uuid.UUID `json:"holder,omitempty"`
	Slug    string     `json:"slug,omitempty"`
	Depth   int        `json:"depth,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response failed", "error", err)
	}
}

// writeProblem writes an error envelope without an engine error behind it.
func writeProblem(w http.ResponseWriter, status int, code lifecycle.Code, message string) {
	writeJSON(w, status, errorEnvelope{Error: apiError{Code: string(code), Message: message}})
}

// statusFor maps engine error codes to HTTP statuses.
func statusFor(code lifecycle.Code) int {
	switch code {
	case lifecycle.CodeNotFound:
		return http.StatusNotFound
	case lifecycle.CodeValidation, lifecycle.CodeMaxDepthExceeded:
		return http.StatusUnprocessableEntity
	case lifecycle.CodeConflict, lifecycle.CodeCircularReference:
		return http.StatusConflict
	case lifecycle.CodeLocked:
		return http.StatusLocked
	case lifecycle.CodeForbidden, lifecycle.CodeNotLockOwner:
		return http.StatusForbidden
	case lifecycle.CodeLimitExceeded:
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// writeError renders err. Typed engine errors keep their code and detail;
// anything else is logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *lifecycle.Error
	if !errors.As(err, &e) {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeProblem(w, http.StatusInternalServerError, lifecycle.CodeInternal, "internal server error")
		return
	}
	writeJSON(w, statusFor(e.Code), errorEnvelope{Error: apiError{
		Code:    string(e.Code),
		Message: e.Message,
		Holder:  e.Holder,
		Slug:    e.Slug,
		Depth:   e.Depth,
	}})
}

// decodeJSON reads a size-limited JSON body into dst. Unknown fields are
// rejected so typos do not silently drop changes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyLen))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeProblem(w, http.StatusRequestEntityTooLarge, lifecycle.CodeLimitExceeded, "request body too large")
		case errors.Is(err, io.EOF):
			writeProblem(w, http.StatusBadRequest, lifecycle.CodeValidation, "request body is empty")
		default:
			writeProblem(w, http.StatusBadRequest, lifecycle.CodeValidation, "invalid JSON: "+err.Error())
		}
		return false
	}
	return true
}

// pathID parses a UUID route parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, lifecycle.CodeValidation, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

// actor returns the editor performing the request. Admin routes sit behind
// middleware.RequireActor, so a missing actor is a wiring bug.
func actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.ActorFrom(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "unauthenticated", middleware.ActorHeader+" header is required")
	}
	return id, ok
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, raw)
	}
	return &id, nil
}

// queryBool treats "1" and "true" as set.
func queryBool(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "1" || v == "true"
}
