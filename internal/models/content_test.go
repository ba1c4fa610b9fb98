package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestItemIsPublished verifies that IsPublished returns true only for
// the "published" status.
func TestItemIsPublished(t *testing.T) {
	tests := []struct {
		name   string
		status ContentStatus
		want   bool
	}{
		{name: "published", status: StatusPublished, want: true},
		{name: "draft", status: StatusDraft, want: false},
		{name: "scheduled", status: StatusScheduled, want: false},
		{name: "archived", status: StatusArchived, want: false},
		{name: "empty status", status: ContentStatus(""), want: false},
		{name: "uppercase PUBLISHED", status: ContentStatus("PUBLISHED"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Item{Status: tt.status}
			if got := c.IsPublished(); got != tt.want {
				t.Errorf("Item{Status: %q}.IsPublished() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestContentStatusValid(t *testing.T) {
	for _, s := range []ContentStatus{StatusDraft, StatusPublished, StatusScheduled, StatusArchived} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []ContentStatus{"", "deleted", "Draft"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestContentKind(t *testing.T) {
	tests := []struct {
		kind         ContentKind
		valid        bool
		hierarchical bool
	}{
		{KindPage, true, true},
		{KindPost, true, false},
		{ContentKind("media"), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if tt.kind.Valid() != tt.valid {
				t.Errorf("Valid() = %v, want %v", tt.kind.Valid(), tt.valid)
			}
			if tt.kind.Hierarchical() != tt.hierarchical {
				t.Errorf("Hierarchical() = %v, want %v", tt.kind.Hierarchical(), tt.hierarchical)
			}
		})
	}
}

func TestItemLockHeldBy(t *testing.T) {
	holder := uuid.New()
	other := uuid.New()
	now := time.Now()

	unlocked := &Item{}
	if unlocked.LockHeldBy(holder) {
		t.Error("unlocked item should not report a holder")
	}

	locked := &Item{IsLocked: true, LockedBy: &holder, LockedAt: &now}
	if !locked.LockHeldBy(holder) {
		t.Error("expected holder to own the lock")
	}
	if locked.LockHeldBy(other) {
		t.Error("other actor must not own the lock")
	}
}

// TestItemClone ensures pointer fields are not shared between copies.
func TestItemClone(t *testing.T) {
	parent := uuid.New()
	now := time.Now()
	orig := &Item{
		ID:          uuid.New(),
		ParentID:    &parent,
		PublishedAt: &now,
		CategoryIDs: []uuid.UUID{uuid.New()},
	}

	cp := orig.Clone()
	*cp.ParentID = uuid.New()
	*cp.PublishedAt = now.Add(time.Hour)
	cp.CategoryIDs[0] = uuid.New()

	if *orig.ParentID != parent {
		t.Error("clone shares ParentID pointer with original")
	}
	if !orig.PublishedAt.Equal(now) {
		t.Error("clone shares PublishedAt pointer with original")
	}
	if orig.CategoryIDs[0] == cp.CategoryIDs[0] {
		t.Error("clone shares CategoryIDs backing array with original")
	}

	var nilItem *Item
	if nilItem.Clone() != nil {
		t.Error("Clone of nil should be nil")
	}
}

func TestVisibilityValid(t *testing.T) {
	for _, v := range []Visibility{VisibilityPublic, VisibilityPrivate, VisibilityPassword} {
		if !v.Valid() {
			t.Errorf("%q should be valid", v)
		}
	}
	if Visibility("secret").Valid() {
		t.Error("unknown visibility should be invalid")
	}
}
