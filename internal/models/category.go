// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// TermKind separates blog categories from series in the shared terms table.
type TermKind string

const (
	TermCategory TermKind = "category"
	TermSeries   TermKind = "series"
)

// Valid reports whether k is a known term kind.
func (k TermKind) Valid() bool {
	return k == TermCategory || k == TermSeries
}

// Term is a flat blog taxonomy entry. Posts can belong to many categories
// and to at most one series, where SeriesPosition orders them.
type Term struct {
	ID          uuid.UUID `json:"id"`
	Kind        TermKind  `json:"kind"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Virtual field populated by store list methods.
	PostCount int `json:"post_count"`
}
