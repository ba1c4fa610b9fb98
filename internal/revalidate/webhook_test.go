// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package revalidate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewWebhookWithoutURLIsNoop(t *testing.T) {
	r := NewWebhook("", "secret")
	if _, ok := r.(Noop); !ok {
		t.Fatalf("NewWebhook(\"\") = %T, want Noop", r)
	}
	if err := r.Notify(context.Background(), []string{"/"}); err != nil {
		t.Fatalf("Noop.Notify: %v", err)
	}
}

func TestWebhookNotify(t *testing.T) {
	var got request
	var secret, contentType, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		secret = r.Header.Get(SecretHeader)
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	hook := NewWebhook(srv.URL, "s3cret")
	paths := []string{"/blog/hello", "/blog", "/feed.xml"}
	if err := hook.Notify(context.Background(), paths); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if method != http.MethodPost {
		t.Errorf("method = %s", method)
	}
	if secret != "s3cret" {
		t.Errorf("secret header = %q", secret)
	}
	if contentType != "application/json" {
		t.Errorf("content type = %q", contentType)
	}
	if strings.Join(got.Paths, ",") != strings.Join(paths, ",") {
		t.Errorf("paths = %v, want %v", got.Paths, paths)
	}
}

func TestWebhookNotifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "boom"},
		{"unauthorized", http.StatusUnauthorized, "bad secret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := NewWebhook(srv.URL, "").Notify(context.Background(), []string{"/"})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.body) {
				t.Errorf("error %q does not carry the response body", err)
			}
		})
	}
}

func TestWebhookSkipsEmptyPathSet(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL, "").Notify(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("webhook called with no paths")
	}
}

func TestWebhookRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewWebhook(srv.URL, "").Notify(ctx, []string{"/"}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
