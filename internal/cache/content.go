// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// content.go provides the Valkey-backed cache for item reads, listings and
// aggregates. The engine owns key naming and invalidation; this layer adds
// a namespace prefix so several sites can share one Valkey database.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"pressroom/internal/lifecycle"
)

const (
	// DefaultPrefix namespaces every key written by ContentCache.
	DefaultPrefix = "pressroom:"

	// scanBatch is the COUNT hint for SCAN during pattern flushes.
	scanBatch = 100
)

// ContentCache implements lifecycle.Cache on Valkey.
type ContentCache struct {
	client *redis.Client
	prefix string
}

var _ lifecycle.Cache = (*ContentCache)(nil)

// NewContentCache creates a cache backed by the given Valkey client.
// An empty prefix falls back to DefaultPrefix.
func NewContentCache(client *redis.Client, prefix string) *ContentCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &ContentCache{client: client, prefix: prefix}
}

// Get returns the cached value. Errors are logged and reported as a miss.
func (c *ContentCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("content cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("content cache hit", "key", key)
	return val, true
}

// Set stores value under key. A zero ttl keeps the entry until invalidated.
func (c *ContentCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		slog.Warn("content cache set error", "key", key, "error", err)
	}
}

// Del removes exact keys.
func (c *ContentCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("valkey del: %w", err)
	}
	slog.Debug("content cache invalidated", "keys", len(keys))
	return nil
}

// Flush removes every key matching a glob pattern by scanning in batches,
// so large keyspaces never block the server the way KEYS would.
func (c *ContentCache) Flush(ctx context.Context, pattern string) error {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("valkey scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("valkey bulk delete %s: %w", pattern, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Debug("content cache flushed", "pattern", pattern, "deleted", deleted)
	}
	return nil
}
