// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for
// pressroom. It organizes routes into the admin API, which requires an
// acting editor, and the public read API.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pressroom/internal/handlers"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
)

// Password attempts allowed per client and item.
const (
	unlockAttempts = 5
	unlockWindow   = time.Minute
)

// unlockKey buckets password attempts by client and item so one reader
// cannot lock others out of an item.
func unlockKey(r *http.Request) string {
	return middleware.ClientIP(r) + "|" + chi.URLParam(r, "id")
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(admin *handlers.Admin, public *handlers.Public) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(chimw.RequestID)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadActor)
	r.Use(middleware.Logger)

	r.Get("/health", healthHandler)

	r.Route("/admin/api", func(r chi.Router) {
		r.Use(middleware.RequireActor)

		posts := admin.Content(models.KindPost)
		r.Route("/posts", func(r chi.Router) {
			contentRoutes(r, posts, func(r chi.Router) {
				r.Put("/categories", posts.AssignCategories)
				r.Put("/series", posts.SetSeries)
			})
		})

		pages := admin.Content(models.KindPage)
		r.Route("/pages", func(r chi.Router) {
			r.Get("/path/*", pages.ByPath)
			contentRoutes(r, pages, func(r chi.Router) {
				r.Put("/parent", pages.SetParent)
				r.Get("/ancestors", pages.Ancestors)
				r.Get("/children", pages.Children)
				r.Get("/descendants", pages.Descendants)
			})
		})

		r.Route("/terms/{kind}", func(r chi.Router) {
			r.Get("/", admin.Terms)
			r.Post("/", admin.CreateTerm)
			r.Delete("/{id}", admin.DeleteTerm)
		})

		r.Get("/settings", admin.Settings)
		r.Put("/settings", admin.UpdateSettings)
		r.Get("/cache-log", admin.CacheLog)
		r.Post("/sweep", admin.Sweep)
	})

	limiter := middleware.NewRateLimiter(unlockAttempts, unlockWindow, unlockKey)
	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", public.Posts)
		r.Get("/posts/featured", public.Featured(models.KindPost))
		r.Get("/posts/{slug}", public.Post)
		r.Get("/pages/featured", public.Featured(models.KindPage))
		r.Get("/pages", public.Page)
		r.Get("/pages/*", public.Page)
		r.With(limiter.Middleware).Post("/content/{id}/unlock", public.Unlock)
	})

	return r
}

// contentRoutes registers the routes shared by posts and pages. itemRoutes
// adds kind-specific routes under /{id}.
func contentRoutes(r chi.Router, c *handlers.Content, itemRoutes func(r chi.Router)) {
	r.Get("/", c.List)
	r.Post("/", c.Create)
	r.Get("/stats", c.Stats)
	r.Get("/featured", c.Featured)
	r.Get("/slug/{slug}", c.BySlug)
	r.Post("/bulk/{op}", c.Bulk)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", c.Get)
		r.Put("/", c.Update)
		r.Delete("/", c.Delete)
		r.Post("/restore", c.Restore)

		r.Post("/publish", c.Publish)
		r.Post("/unpublish", c.Unpublish)
		r.Post("/schedule", c.Schedule)
		r.Post("/unschedule", c.Unschedule)
		r.Post("/archive", c.Archive)
		r.Put("/status", c.SetStatus)

		r.Get("/lock", c.LockStatus)
		r.Post("/lock", c.AcquireLock)
		r.Delete("/lock", c.ReleaseLock)

		r.Get("/revisions", c.Revisions)
		r.Post("/revisions/{revID}/restore", c.RestoreRevision)

		itemRoutes(r)
	})
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
