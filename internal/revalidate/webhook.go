// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package revalidate notifies an external renderer (a static site builder
// or an edge cache) which public paths changed after a content write.
package revalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pressroom/internal/lifecycle"
)

// SecretHeader carries the shared secret on every webhook call.
const SecretHeader = "X-Revalidate-Secret"

// DefaultTimeout bounds a single webhook call.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

// Webhook implements lifecycle.Revalidator by POSTing the changed paths
// as JSON to a configured URL.
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

var _ lifecycle.Revalidator = (*Webhook)(nil)

// NewWebhook creates a webhook revalidator. An empty url yields a Noop.
func NewWebhook(url, secret string) lifecycle.Revalidator {
	if url == "" {
		return Noop{}
	}
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: DefaultTimeout},
	}
}

type request struct {
	Paths []string `json:"paths"`
}

// Notify sends one request for the whole path set. Any non-2xx response
// is an error; the engine logs it and moves on.
func (w *Webhook) Notify(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	payload, err := json.Marshal(request{Paths: paths})
	if err != nil {
		return fmt.Errorf("revalidate marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("revalidate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set(SecretHeader, w.secret)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("revalidate webhook error (status %d): %s", resp.StatusCode, string(body))
	}
	io.Copy(io.Discard, resp.Body)

	slog.Debug("revalidation sent", "paths", len(paths))
	return nil
}

// Noop drops notifications. Used when no webhook is configured.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(context.Context, []string) error { return nil }
