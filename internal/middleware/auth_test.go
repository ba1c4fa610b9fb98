package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// okHandler is a simple handler that records whether it was invoked.
func okHandler() (http.Handler, *bool) {
	var called bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return h, &called
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestLoadActor(t *testing.T) {
	actor := uuid.New()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  bool
	}{
		{"valid header", actor.String(), http.StatusOK, true},
		{"no header", "", http.StatusOK, false},
		{"malformed header", "not-a-uuid", http.StatusBadRequest, false},
		{"nil uuid", uuid.Nil.String(), http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got uuid.UUID
			var found bool
			h := LoadActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, found = ActorFrom(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin/api/posts", nil)
			if tt.header != "" {
				req.Header.Set(ActorHeader, tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
			if found != tt.wantActor {
				t.Fatalf("actor found = %v, want %v", found, tt.wantActor)
			}
			if tt.wantActor && got != actor {
				t.Errorf("actor: got %s, want %s", got, actor)
			}
		})
	}
}

func TestRequireActor(t *testing.T) {
	t.Run("rejects missing actor", func(t *testing.T) {
		next, called := okHandler()
		rr := httptest.NewRecorder()
		LoadActor(RequireActor(next)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if *called {
			t.Error("next handler should not run without an actor")
		}
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("status: got %d, want 401", rr.Code)
		}
		if body := decodeError(t, rr); body.Error.Code != "unauthenticated" {
			t.Errorf("code: got %q", body.Error.Code)
		}
	})

	t.Run("passes with actor", func(t *testing.T) {
		next, called := okHandler()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ActorHeader, uuid.NewString())
		rr := httptest.NewRecorder()
		LoadActor(RequireActor(next)).ServeHTTP(rr, req)

		if !*called || rr.Code != http.StatusOK {
			t.Fatalf("called = %v, status = %d", *called, rr.Code)
		}
	})
}

func TestActorFromEmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := ActorFrom(req.Context()); ok {
		t.Error("expected no actor in a bare context")
	}
	id := uuid.New()
	if got, ok := ActorFrom(WithActor(req.Context(), id)); !ok || got != id {
		t.Errorf("WithActor round trip = %s, %v", got, ok)
	}
}
