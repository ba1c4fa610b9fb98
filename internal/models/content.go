// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentKind distinguishes between posts and pages in the unified content table.
// Pages are hierarchical; posts are flat and use categories and series instead.
type ContentKind string

const (
	KindPost ContentKind = "post"
	KindPage ContentKind = "page"
)

// Valid reports whether k is a known content kind.
func (k ContentKind) Valid() bool {
	return k == KindPost || k == KindPage
}

// Hierarchical reports whether items of this kind carry parent/depth/path.
func (k ContentKind) Hierarchical() bool {
	return k == KindPage
}

// ContentStatus represents the publishing state of a content item.
type ContentStatus string

const (
	StatusDraft     ContentStatus = "draft"
	StatusPublished ContentStatus = "published"
	StatusScheduled ContentStatus = "scheduled"
	StatusArchived  ContentStatus = "archived"
)

// Valid reports whether s is a known status.
func (s ContentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusScheduled, StatusArchived:
		return true
	}
	return false
}

// BodyFormat indicates how the body is authored.
type BodyFormat string

const (
	BodyFormatMarkdown BodyFormat = "markdown"
	BodyFormatHTML     BodyFormat = "html"
)

// Visibility controls who may read a published item.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"
	VisibilityPassword Visibility = "password"
)

// Valid reports whether v is a known visibility.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate || v == VisibilityPassword
}

// Item represents a post or page. Posts and pages share the same table,
// differentiated by Kind. Hierarchy fields are only meaningful for pages.
type Item struct {
	ID          uuid.UUID     `json:"id"`
	Kind        ContentKind   `json:"kind"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Body        string        `json:"body"`
	BodyFormat  BodyFormat    `json:"body_format"`
	Excerpt     string        `json:"excerpt"`
	Status      ContentStatus `json:"status"`
	AuthorID    uuid.UUID     `json:"author_id"`
	WordCount   int           `json:"word_count"`
	ReadingTime int           `json:"reading_time"`
	Revision    int           `json:"revision"`

	IsLocked bool       `json:"is_locked"`
	LockedBy *uuid.UUID `json:"locked_by,omitempty"`
	LockedAt *time.Time `json:"locked_at,omitempty"`

	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Depth    int        `json:"depth"`
	Path     string     `json:"path"`

	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	IsSystem     bool       `json:"is_system"`

	TemplateID   string     `json:"template_id"`
	Visibility   Visibility `json:"visibility"`
	PasswordHash string     `json:"-"`
	CustomCSS    string     `json:"custom_css,omitempty"`
	IsFeatured   bool       `json:"is_featured"`
	IsPinned     bool       `json:"is_pinned"`
	SortOrder    int        `json:"sort_order"`

	SeriesID       *uuid.UUID  `json:"series_id,omitempty"`
	SeriesPosition int         `json:"series_position"`
	CategoryIDs    []uuid.UUID `json:"category_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsPublished returns true if the item is in published status.
func (c *Item) IsPublished() bool {
	return c.Status == StatusPublished
}

// IsDeleted returns true if the item has been soft-deleted.
func (c *Item) IsDeleted() bool {
	return c.DeletedAt != nil
}

// LockHeldBy reports whether holder currently owns the item's lock.
func (c *Item) LockHeldBy(holder uuid.UUID) bool {
	return c.IsLocked && c.LockedBy != nil && *c.LockedBy == holder
}

// Clone returns a deep copy so callers can mutate without aliasing pointers.
func (c *Item) Clone() *Item {
	if c == nil {
		return nil
	}
	out := *c
	out.LockedBy = cloneUUID(c.LockedBy)
	out.LockedAt = cloneTime(c.LockedAt)
	out.ParentID = cloneUUID(c.ParentID)
	out.ScheduledFor = cloneTime(c.ScheduledFor)
	out.PublishedAt = cloneTime(c.PublishedAt)
	out.DeletedAt = cloneTime(c.DeletedAt)
	out.SeriesID = cloneUUID(c.SeriesID)
	if c.CategoryIDs != nil {
		out.CategoryIDs = append([]uuid.UUID(nil), c.CategoryIDs...)
	}
	return &out
}

// PathUpdate carries a recomputed hierarchy position for one page.
type PathUpdate struct {
	ID       uuid.UUID
	ParentID *uuid.UUID
	Depth    int
	Path     string
}

// Revision stores an immutable snapshot of an item's text fields before an edit.
// Number is the item's revision counter at the time of the captured state.
type Revision struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Excerpt   string    `json:"excerpt"`
	Note      string    `json:"note"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ContentStats aggregates item counts per status for one kind.
type ContentStats struct {
	Kind     ContentKind    `json:"kind"`
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
	Deleted  int            `json:"deleted"`
	Locked   int            `json:"locked"`
}

func cloneUUID(u *uuid.UUID) *uuid.UUID {
	if u == nil {
		return nil
	}
	v := *u
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
