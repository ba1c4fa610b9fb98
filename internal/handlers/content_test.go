package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
)

func TestContent_CreateAndGet(t *testing.T) {
	f := newFixture(t)
	rr := f.request(http.MethodPost, "/admin/api/posts", map[string]any{"title": "Hello World", "body": "one two three"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body)
	}
	post := decode[models.Item](t, rr)
	if post.Kind != models.KindPost || post.Slug != "hello-world" || post.AuthorID != f.actor {
		t.Fatalf("created = %+v", post)
	}
	if loc := rr.Header().Get("Location"); loc != "/admin/api/posts/"+post.ID.String() {
		t.Errorf("Location = %q", loc)
	}

	rr = f.request(http.MethodGet, "/admin/api/posts/"+post.ID.String(), nil)
	if rr.Code != http.StatusOK || rr.Header().Get("ETag") != `"1"` {
		t.Fatalf("get status = %d etag = %q", rr.Code, rr.Header().Get("ETag"))
	}

	// The item exists, but not as a page.
	wantError(t, f.request(http.MethodGet, "/admin/api/pages/"+post.ID.String(), nil), http.StatusNotFound, "not_found")

	rr = f.request(http.MethodGet, "/admin/api/posts/slug/hello-world", nil)
	if got := decode[models.Item](t, rr); got.ID != post.ID {
		t.Fatalf("by slug = %v", got.ID)
	}
}

func TestContent_RequestErrors(t *testing.T) {
	f := newFixture(t)
	post := f.create(models.KindPost, map[string]any{"title": "Existing"})

	tests := []struct {
		name   string
		actor  uuid.UUID
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"no actor", uuid.Nil, http.MethodPost, "/admin/api/posts", map[string]any{"title": "x"}, http.StatusUnauthorized, "unauthenticated"},
		{"empty body", f.actor, http.MethodPost, "/admin/api/posts", nil, http.StatusBadRequest, "validation"},
		{"broken json", f.actor, http.MethodPost, "/admin/api/posts", `{"title":`, http.StatusBadRequest, "validation"},
		{"unknown field", f.actor, http.MethodPost, "/admin/api/posts", `{"titel":"x"}`, http.StatusBadRequest, "validation"},
		{"title too long", f.actor, http.MethodPost, "/admin/api/posts", map[string]any{"title": strings.Repeat("t", 301)}, http.StatusUnprocessableEntity, "validation"},
		{"blank title", f.actor, http.MethodPost, "/admin/api/posts", map[string]any{"title": "   "}, http.StatusUnprocessableEntity, "validation"},
		{"bad id", f.actor, http.MethodGet, "/admin/api/posts/not-a-uuid", nil, http.StatusBadRequest, "validation"},
		{"missing item", f.actor, http.MethodGet, "/admin/api/posts/" + uuid.NewString(), nil, http.StatusNotFound, "not_found"},
		{"bad page number", f.actor, http.MethodGet, "/admin/api/posts?page=two", nil, http.StatusBadRequest, "validation"},
		{"bad status filter", f.actor, http.MethodGet, "/admin/api/posts?status=gone", nil, http.StatusUnprocessableEntity, "validation"},
		{"unknown status", f.actor, http.MethodPut, "/admin/api/posts/" + post.ID.String() + "/status", map[string]any{"status": "live"}, http.StatusUnprocessableEntity, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantError(t, f.requestAs(tt.actor, tt.method, tt.path, tt.body), tt.status, tt.code)
		})
	}
}

func TestContent_UpdateWithIfMatch(t *testing.T) {
	f := newFixture(t)
	post := f.create(models.KindPost, map[string]any{"title": "Draft"})
	path := "/admin/api/posts/" + post.ID.String()

	rr := f.requestAs(f.actor, http.MethodPut, path, map[string]any{"title": "Edited"}, "If-Match", `"1"`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body)
	}
	if got := decode[models.Item](t, rr); got.Title != "Edited" || got.Revision != 2 {
		t.Fatalf("updated = %q rev %d", got.Title, got.Revision)
	}

	rr = f.requestAs(f.actor, http.MethodPut, path, map[string]any{"title": "Stale"}, "If-Match", `"1"`)
	wantError(t, rr, http.StatusConflict, "conflict")

	rr = f.requestAs(f.actor, http.MethodPut, path, map[string]any{"title": "Stale"}, "If-Match", `"abc"`)
	wantError(t, rr, http.StatusBadRequest, "validation")
}

func TestContent_Locking(t *testing.T) {
	f := newFixture(t)
	post := f.create(models.KindPost, map[string]any{"title": "Contested"})
	path := "/admin/api/posts/" + post.ID.String()
	other := uuid.New()

	rr := f.request(http.MethodPost, path+"/lock", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("lock status = %d: %s", rr.Code, rr.Body)
	}
	if info := decode[lifecycle.LockInfo](t, rr); !info.Locked || info.Holder == nil || *info.Holder != f.actor {
		t.Fatalf("lock info = %+v", info)
	}

	e := wantError(t, f.requestAs(other, http.MethodPut, path, map[string]any{"title": "Mine"}), http.StatusLocked, "locked")
	if e.Holder == nil || *e.Holder != f.actor {
		t.Fatalf("holder = %v", e.Holder)
	}
	wantError(t, f.requestAs(other, http.MethodPost, path+"/lock", nil), http.StatusLocked, "locked")
	wantError(t, f.requestAs(other, http.MethodDelete, path+"/lock", nil), http.StatusForbidden, "not_lock_owner")

	if rr := f.requestAs(other, http.MethodDelete, path+"/lock?force=1", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("force release = %d: %s", rr.Code, rr.Body)
	}
	rr = f.request(http.MethodGet, path+"/lock", nil)
	if info := decode[lifecycle.LockInfo](t, rr); info.Locked {
		t.Fatalf("still locked: %+v", info)
	}
}

func TestContent_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	post := f.create(models.KindPost, map[string]any{"title": "Lifecycle"})
	path := "/admin/api/posts/" + post.ID.String()

	steps := []struct {
		name   string
		method string
		suffix string
		body   any
		want   models.ContentStatus
	}{
		{"publish", http.MethodPost, "/publish", nil, models.StatusPublished},
		{"unpublish", http.MethodPost, "/unpublish", nil, models.StatusDraft},
		{"schedule", http.MethodPost, "/schedule", map[string]any{"at": t0.Add(time.Hour)}, models.StatusScheduled},
		{"unschedule", http.MethodPost, "/unschedule", nil, models.StatusDraft},
		{"archive", http.MethodPost, "/archive", nil, models.StatusArchived},
		{"set status", http.MethodPut, "/status", map[string]any{"status": "draft"}, models.StatusDraft},
		{"set status again", http.MethodPut, "/status", map[string]any{"status": "published"}, models.StatusPublished},
	}
	for _, s := range steps {
		rr := f.request(s.method, path+s.suffix, s.body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", s.name, rr.Code, rr.Body)
		}
		if got := decode[models.Item](t, rr); got.Status != s.want {
			t.Fatalf("%s: status = %s, want %s", s.name, got.Status, s.want)
		}
	}

	rr := f.request(http.MethodPost, path+"/schedule", map[string]any{"at": t0.Add(-time.Hour)})
	wantError(t, rr, http.StatusUnprocessableEntity, "validation")
}

func TestContent_DeleteRestoreHardDelete(t *testing.T) {
	f := newFixture(t)
	post := f.create(models.KindPost, map[string]any{"title": "Trash Me"})
	path := "/admin/api/posts/" + post.ID.String()

	rr := f.request(http.MethodDelete, path, nil)
	if got := decode[models.Item](t, rr); rr.Code != http.StatusOK || got.DeletedAt == nil {
		t.Fatalf("delete = %d %+v", rr.Code, got)
	}
	wantError(t, f.request(http.MethodGet, path, nil), http.StatusNotFound, "not_found")

	rr = f.request(http.MethodGet, "/admin/api/posts?trash=1", nil)
	if res := decode[lifecycle.ListResult](t, rr); res.Total != 1 {
		t.Fatalf("trash total = %d", res.Total)
	}
	rr = f.request(http.MethodGet, path+"/revisions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("revisions of trashed item = %d", rr.Code)
	}

	// Restoring through the wrong kind is refused.
	wantError(t, f.request(http.MethodPost, "/admin/api/pages/"+post.ID.String()+"/restore", nil), http.StatusNotFound, "not_found")

	rr = f.request(http.MethodPost, path+"/restore", nil)
	if got := decode[models.Item](t, rr); rr.Code != http.StatusOK || got.DeletedAt != nil || got.Status != models.StatusDraft {
		t.Fatalf("restore = %d %+v", rr.Code, got)
	}

	if rr := f.request(http.MethodDelete, path+"?hard=1", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("hard delete = %d: %s", rr.Code, rr.Body)
	}
	wantError(t, f.request(http.MethodPost, path+"/restore", nil), http.StatusNotFound, "not_found")
}

func TestContent_Hierarchy(t *testing.T) {
	f := newFixture(t)
	about := f.create(models.KindPage, map[string]any{"title": "About"})
	team := f.create(models.KindPage, map[string]any{"title": "Team", "parent_id": about.ID})
	if team.Path != "about/team" || team.Depth != 1 {
		t.Fatalf("child = %q depth %d", team.Path, team.Depth)
	}

	rr := f.request(http.MethodGet, "/admin/api/pages/path/about/team", nil)
	if got := decode[models.Item](t, rr); rr.Code != http.StatusOK || got.ID != team.ID {
		t.Fatalf("by path = %d %v", rr.Code, got.ID)
	}

	rr = f.request(http.MethodGet, "/admin/api/pages/"+about.ID.String()+"/children", nil)
	if kids := decode[[]models.Item](t, rr); len(kids) != 1 || kids[0].ID != team.ID {
		t.Fatalf("children = %+v", kids)
	}
	rr = f.request(http.MethodGet, "/admin/api/pages/"+team.ID.String()+"/ancestors", nil)
	if anc := decode[[]models.Item](t, rr); len(anc) != 1 || anc[0].ID != about.ID {
		t.Fatalf("ancestors = %+v", anc)
	}
	rr = f.request(http.MethodGet, "/admin/api/pages/"+team.ID.String()+"/descendants", nil)
	if desc := decode[[]models.Item](t, rr); rr.Code != http.StatusOK || len(desc) != 0 {
		t.Fatalf("leaf descendants = %d %+v", rr.Code, desc)
	}

	rr = f.request(http.MethodPut, "/admin/api/pages/"+about.ID.String()+"/parent", map[string]any{"parent_id": team.ID})
	wantError(t, rr, http.StatusConflict, "circular_reference")

	rr = f.request(http.MethodPut, "/admin/api/pages/"+team.ID.String()+"/parent", map[string]any{"parent_id": nil})
	if got := decode[models.Item](t, rr); rr.Code != http.StatusOK || got.ParentID != nil || got.Path != "team" {
		t.Fatalf("move to root = %d %+v", rr.Code, got)
	}

	rr = f.request(http.MethodGet, "/admin/api/pages?parent=root", nil)
	if res := decode[lifecycle.ListResult](t, rr); res.Total != 2 {
		t.Fatalf("roots = %d", res.Total)
	}
}

func TestContent_Revisions(t *testing.T) {
	f := newFixture(t)
	post := f.create(models.KindPost, map[string]any{"title": "First", "body": "first body"})
	other := f.create(models.KindPost, map[string]any{"title": "Other"})
	path := "/admin/api/posts/" + post.ID.String()

	for _, title := range []string{"Second", "Third"} {
		if rr := f.request(http.MethodPut, path, map[string]any{"title": title}); rr.Code != http.StatusOK {
			t.Fatalf("update %s = %d", title, rr.Code)
		}
	}
	rr := f.request(http.MethodGet, path+"/revisions", nil)
	revs := decode[[]models.Revision](t, rr)
	if len(revs) != 2 || revs[0].Number != 2 {
		t.Fatalf("revisions = %+v", revs)
	}

	// A revision id from another item is not found under this one.
	rr = f.request(http.MethodPost, "/admin/api/posts/"+other.ID.String()+"/revisions/"+revs[0].ID.String()+"/restore", nil)
	wantError(t, rr, http.StatusNotFound, "not_found")

	rr = f.request(http.MethodPost, path+"/revisions/"+revs[0].ID.String()+"/restore", nil)
	if got := decode[models.Item](t, rr); rr.Code != http.StatusOK || got.Title != "Second" {
		t.Fatalf("restore revision = %d %+v", rr.Code, got)
	}
}

func TestContent_ListStatsFeatured(t *testing.T) {
	f := newFixture(t)
	f.create(models.KindPost, map[string]any{"title": "Draft"})
	f.create(models.KindPost, map[string]any{"title": "Live", "status": "published", "is_featured": true})
	f.create(models.KindPage, map[string]any{"title": "Page"})

	rr := f.request(http.MethodGet, "/admin/api/posts?status=published&per_page=1", nil)
	res := decode[lifecycle.ListResult](t, rr)
	if res.Total != 1 || res.PerPage != 1 || res.Items[0].Title != "Live" {
		t.Fatalf("list = %+v", res)
	}

	rr = f.request(http.MethodGet, "/admin/api/posts/stats", nil)
	stats := decode[models.ContentStats](t, rr)
	if stats.Total != 2 || stats.ByStatus["published"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	rr = f.request(http.MethodGet, "/admin/api/posts/featured", nil)
	if items := decode[[]models.Item](t, rr); len(items) != 1 || items[0].Title != "Live" {
		t.Fatalf("featured = %+v", items)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code lifecycle.Code
		want int
	}{
		{lifecycle.CodeNotFound, http.StatusNotFound},
		{lifecycle.CodeValidation, http.StatusUnprocessableEntity},
		{lifecycle.CodeConflict, http.StatusConflict},
		{lifecycle.CodeLocked, http.StatusLocked},
		{lifecycle.CodeForbidden, http.StatusForbidden},
		{lifecycle.CodeNotLockOwner, http.StatusForbidden},
		{lifecycle.CodeLimitExceeded, http.StatusRequestEntityTooLarge},
		{lifecycle.CodeCircularReference, http.StatusConflict},
		{lifecycle.CodeMaxDepthExceeded, http.StatusUnprocessableEntity},
		{lifecycle.CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.code); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
