// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// ActorHeader names the editor performing a request. An upstream
// authentication proxy is expected to set it after verifying the user.
const ActorHeader = "X-Actor-ID"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const actorKey contextKey = "actor"

// LoadActor parses ActorHeader and stores the actor in the request
// context. It does not enforce presence; see RequireActor.
func LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(ActorHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil || id == uuid.Nil {
			writeError(w, http.StatusBadRequest, "validation", "invalid "+ActorHeader+" header")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), id)))
	})
}

// RequireActor rejects requests that carry no actor. Must be applied
// after LoadActor in the middleware chain.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := ActorFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", ActorHeader+" header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor returns a context carrying the actor id.
func WithActor(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey, id)
}

// ActorFrom extracts the actor id from the request context.
func ActorFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(actorKey).(uuid.UUID)
	return id, ok
}
