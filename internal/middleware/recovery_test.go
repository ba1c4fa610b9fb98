package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecoverer(t *testing.T) {
	t.Run("passes through without panic", func(t *testing.T) {
		next, called := okHandler()
		rr := httptest.NewRecorder()
		Recoverer(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if !*called || rr.Code != http.StatusOK {
			t.Fatalf("called = %v, status = %d", *called, rr.Code)
		}
	})

	t.Run("panic becomes a JSON 500", func(t *testing.T) {
		captureLogs(t)
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})

		rr := httptest.NewRecorder()
		Recoverer(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status: got %d, want 500", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		if body := decodeError(t, rr); body.Error.Code != "internal" {
			t.Errorf("code: got %q, want internal", body.Error.Code)
		}
	})

	t.Run("re-panics ErrAbortHandler", func(t *testing.T) {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(http.ErrAbortHandler)
		})
		defer func() {
			if rec := recover(); rec != http.ErrAbortHandler {
				t.Fatalf("recovered %v, want ErrAbortHandler", rec)
			}
		}()
		Recoverer(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
