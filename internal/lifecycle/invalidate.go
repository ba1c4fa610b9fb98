// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pressroom/internal/models"
)

// Cache key layout. Listings are flushed by namespace pattern because
// filter combinations are unbounded.
func itemKey(id uuid.UUID) string { return "item:" + id.String() }

func slugKey(kind models.ContentKind, s string) string {
	return "item:slug:" + string(kind) + ":" + s
}

func pathKey(p string) string { return "item:path:" + p }

func listPattern(kind models.ContentKind) string { return "list:" + string(kind) + ":*" }

func statsKey(kind models.ContentKind) string    { return "stats:" + string(kind) }
func featuredKey(kind models.ContentKind) string { return "featured:" + string(kind) }
func feedKey(kind models.ContentKind) string     { return "feed:" + string(kind) }

const (
	sitemapKey  = "sitemap"
	sitemapPath = "/sitemap.xml"
	feedPath    = "/feed.xml"
	blogPath    = "/blog"
)

// publicPath is the URL a renderer serves item under.
func publicPath(item *models.Item) string {
	if item.Kind == models.KindPost {
		return blogPath + "/" + item.Slug
	}
	if item.IsSystem && item.Slug == "home" {
		return "/"
	}
	return "/" + item.Path
}

type auditEntry struct {
	id     uuid.UUID
	kind   models.ContentKind
	action string
}

// changeSet accumulates what one operation, or one batch, touched so the
// cache is invalidated once at the end.
type changeSet struct {
	kinds map[models.ContentKind]bool
	keys  map[string]bool
	paths map[string]bool
	audit []auditEntry
}

func newChangeSet() *changeSet {
	return &changeSet{
		kinds: make(map[models.ContentKind]bool),
		keys:  make(map[string]bool),
		paths: make(map[string]bool),
	}
}

func (cs *changeSet) empty() bool { return len(cs.kinds) == 0 }

// item records a mutation of one item. before may be nil for creations.
func (cs *changeSet) item(before, after *models.Item, action string) {
	cs.touch(before, after)
	for _, it := range []*models.Item{before, after} {
		if it != nil && it.Slug != "" {
			cs.paths[publicPath(it)] = true
		}
	}
	cs.audit = append(cs.audit, auditEntry{id: after.ID, kind: after.Kind, action: action})
}

// lock records a change that is invisible to public readers.
func (cs *changeSet) lock(it *models.Item, action string) {
	cs.touch(nil, it)
	cs.audit = append(cs.audit, auditEntry{id: it.ID, kind: it.Kind, action: action})
}

func (cs *changeSet) touch(before, after *models.Item) {
	for _, it := range []*models.Item{before, after} {
		if it == nil {
			continue
		}
		cs.kinds[it.Kind] = true
		cs.keys[itemKey(it.ID)] = true
		if it.Slug != "" {
			cs.keys[slugKey(it.Kind, it.Slug)] = true
		}
		if it.Path != "" {
			cs.keys[pathKey(it.Path)] = true
		}
	}
}

// kind records a change affecting every listing of kind, e.g. a taxonomy edit.
func (cs *changeSet) kind(kind models.ContentKind) {
	cs.kinds[kind] = true
}

// invalidate clears every key the change set touched, flushes listing
// namespaces and aggregates, then notifies the revalidation hook. Nothing
// here fails the caller; errors are logged.
func (e *Engine) invalidate(ctx context.Context, cs *changeSet) {
	if cs == nil || cs.empty() {
		return
	}

	if e.cache != nil {
		keys := make([]string, 0, len(cs.keys)+4*len(cs.kinds)+1)
		for k := range cs.keys {
			keys = append(keys, k)
		}
		for kind := range cs.kinds {
			keys = append(keys, statsKey(kind), featuredKey(kind), feedKey(kind))
		}
		keys = append(keys, sitemapKey)
		sort.Strings(keys)

		var g errgroup.Group
		g.Go(func() error {
			if err := e.cache.Del(ctx, keys...); err != nil {
				e.log.Warn("cache delete failed", "keys", len(keys), "error", err)
			}
			return nil
		})
		for kind := range cs.kinds {
			pattern := listPattern(kind)
			g.Go(func() error {
				if err := e.cache.Flush(ctx, pattern); err != nil {
					e.log.Warn("cache flush failed", "pattern", pattern, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	if e.audit != nil {
		for _, a := range cs.audit {
			e.audit.Log(ctx, string(a.kind), a.id, a.action)
		}
	}

	if e.revalidator != nil && len(cs.paths) > 0 {
		paths := make([]string, 0, len(cs.paths)+3)
		for p := range cs.paths {
			paths = append(paths, p)
		}
		if cs.kinds[models.KindPost] {
			paths = append(paths, blogPath, feedPath)
		}
		paths = append(paths, sitemapPath)
		paths = dedupe(paths)
		if err := e.revalidator.Notify(ctx, paths); err != nil {
			e.log.Warn("revalidation failed", "paths", paths, "error", err)
		}
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// cached returns the value under key, or calls load and stores its result.
func cached[T any](ctx context.Context, e *Engine, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if e.cache != nil {
		if raw, ok := e.cache.Get(ctx, key); ok {
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
			e.log.Warn("cache entry undecodable", "key", key)
		}
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if e.cache != nil {
		if raw, err := json.Marshal(v); err == nil {
			e.cache.Set(ctx, key, raw, ttl)
		}
	}
	return v, nil
}
