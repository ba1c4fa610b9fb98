// handler_test.go provides shared test infrastructure for handler tests.
// Handlers run against the in-memory store through a chi router that
// mirrors the production route table.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pressroom/internal/config"
	"pressroom/internal/lifecycle"
	"pressroom/internal/memstore"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/store"
	"pressroom/internal/sweep"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// memSettings is an in-memory SettingsStore.
type memSettings struct {
	mu   sync.Mutex
	data models.SiteSettings
}

func (m *memSettings) All(context.Context) (models.SiteSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(models.SiteSettings, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memSettings) SetMany(_ context.Context, settings map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range settings {
		m.data[k] = v
	}
	return nil
}

// memCacheLog records audit entries so the cache-log endpoint has data.
type memCacheLog struct {
	mu      sync.Mutex
	entries []store.CacheLogEntry
}

func (m *memCacheLog) Log(_ context.Context, entityType string, id uuid.UUID, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]store.CacheLogEntry{{
		ID:            int64(len(m.entries) + 1),
		EntityType:    entityType,
		EntityID:      id,
		Action:        action,
		InvalidatedAt: t0,
	}}, m.entries...)
}

func (m *memCacheLog) RecentEntries(_ context.Context, limit int) ([]store.CacheLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return append([]store.CacheLogEntry(nil), m.entries[:limit]...), nil
}

type fixture struct {
	t        *testing.T
	now      time.Time
	live     *config.Live
	engine   *lifecycle.Engine
	settings *memSettings
	cacheLog *memCacheLog
	actor    uuid.UUID
	mux      chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:        t,
		now:      t0,
		live:     config.NewLive(config.DefaultRuntime()),
		settings: &memSettings{data: models.SiteSettings{}},
		cacheLog: &memCacheLog{},
		actor:    uuid.New(),
	}
	db := memstore.New()
	f.engine = lifecycle.New(db.Items(), db.Revisions(), f.live,
		lifecycle.WithCache(memstore.NewCache()),
		lifecycle.WithTerms(db.Terms()),
		lifecycle.WithAuditLog(f.cacheLog),
		lifecycle.WithClock(func() time.Time { return f.now }),
		lifecycle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	source := config.NewSettingsSource(config.DefaultRuntime(), f.settings, f.live)
	runner := sweep.New(f.engine, sweep.WithSettings(source))
	admin := NewAdmin(f.engine, f.live, config.DefaultRuntime(), f.settings, source, f.cacheLog, runner)
	f.mux = testRouter(admin, NewPublic(f.engine))
	return f
}

// testRouter mirrors the production routes without the global middleware
// that only adds headers and logging.
func testRouter(admin *Admin, public *Public) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.LoadActor)

	content := func(r chi.Router, c *Content, extra func(chi.Router)) {
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
			extra(r)
		})
	}

	r.Route("/admin/api", func(r chi.Router) {
		posts := admin.Content(models.KindPost)
		r.Route("/posts", func(r chi.Router) {
			content(r, posts, func(r chi.Router) {
				r.Put("/categories", posts.AssignCategories)
				r.Put("/series", posts.SetSeries)
			})
		})
		pages := admin.Content(models.KindPage)
		r.Route("/pages", func(r chi.Router) {
			r.Get("/path/*", pages.ByPath)
			content(r, pages, func(r chi.Router) {
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

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", public.Posts)
		r.Get("/posts/featured", public.Featured(models.KindPost))
		r.Get("/posts/{slug}", public.Post)
		r.Get("/pages", public.Page)
		r.Get("/pages/*", public.Page)
		r.Post("/content/{id}/unlock", public.Unlock)
	})
	return r
}

// request sends a request as the fixture's actor. body may be nil, a
// string of raw JSON, or any value to encode.
func (f *fixture) request(method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	return f.requestAs(f.actor, method, path, body)
}

func (f *fixture) requestAs(actor uuid.UUID, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			f.t.Fatalf("encode body: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if actor != uuid.Nil {
		req.Header.Set(middleware.ActorHeader, actor.String())
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.mux.ServeHTTP(rr, req)
	return rr
}

// create makes an item through the API and fails the test on error.
func (f *fixture) create(kind models.ContentKind, body map[string]any) models.Item {
	f.t.Helper()
	rr := f.request(http.MethodPost, "/admin/api/"+string(kind)+"s", body)
	if rr.Code != http.StatusCreated {
		f.t.Fatalf("create %s: status %d: %s", kind, rr.Code, rr.Body)
	}
	return decode[models.Item](f.t, rr)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (body %q)", v, err, rr.Body.String())
	}
	return v
}

// wantError checks the status and error code of a response.
func wantError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) apiError {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d: %s", rr.Code, status, rr.Body)
	}
	env := decode[errorEnvelope](t, rr)
	if env.Error.Code != code {
		t.Fatalf("code = %q, want %q (%s)", env.Error.Code, code, env.Error.Message)
	}
	return env.Error
}
