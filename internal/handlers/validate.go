// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"unicode/utf8"

	"pressroom/internal/lifecycle"
)

// Payload limits checked before a request reaches the engine.
const (
	maxTitleLen       = 300
	maxSlugLen        = 300
	maxBodyLen        = 100_000
	maxExcerptLen     = 1_000
	maxCSSLen         = 50_000
	maxNoteLen        = 500
	maxTemplateIDLen  = 100
	maxPasswordBytes  = 72
	maxTermNameLen    = 100
	maxTermDescLen    = 1_000
	maxRequestBodyLen = 1 << 20
)

// fieldCheck is one length rule for a request field.
type fieldCheck struct {
	value   string
	limit   int
	message string
}

func firstTooLong(checks ...fieldCheck) string {
	for _, c := range checks {
		if utf8.RuneCountInString(c.value) > c.limit {
			return c.message
		}
	}
	return ""
}

// validateCreate checks the sizes of a create payload and returns the
// first problem found.
func validateCreate(in lifecycle.CreateInput) string {
	if len(in.Password) > maxPasswordBytes {
		return "Password is too long (max 72 bytes)."
	}
	return firstTooLong(
		fieldCheck{in.Title, maxTitleLen, "Title is too long (max 300 characters)."},
		fieldCheck{in.Slug, maxSlugLen, "Slug is too long (max 300 characters)."},
		fieldCheck{in.Body, maxBodyLen, "Body is too long (max 100,000 characters)."},
		fieldCheck{in.Excerpt, maxExcerptLen, "Excerpt is too long (max 1,000 characters)."},
		fieldCheck{in.CustomCSS, maxCSSLen, "Custom CSS is too long (max 50,000 characters)."},
		fieldCheck{in.TemplateID, maxTemplateIDLen, "Template id is too long (max 100 characters)."},
	)
}

// validateUpdate checks the sizes of the fields present in a partial update.
func validateUpdate(in lifecycle.UpdateInput) string {
	if in.Password != nil && len(*in.Password) > maxPasswordBytes {
		return "Password is too long (max 72 bytes)."
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return firstTooLong(
		fieldCheck{deref(in.Title), maxTitleLen, "Title is too long (max 300 characters)."},
		fieldCheck{deref(in.Slug), maxSlugLen, "Slug is too long (max 300 characters)."},
		fieldCheck{deref(in.Body), maxBodyLen, "Body is too long (max 100,000 characters)."},
		fieldCheck{deref(in.Excerpt), maxExcerptLen, "Excerpt is too long (max 1,000 characters)."},
		fieldCheck{deref(in.CustomCSS), maxCSSLen, "Custom CSS is too long (max 50,000 characters)."},
		fieldCheck{deref(in.TemplateID), maxTemplateIDLen, "Template id is too long (max 100 characters)."},
		fieldCheck{in.Note, maxNoteLen, "Revision note is too long (max 500 characters)."},
	)
}

// validateTerm checks term form inputs.
func validateTerm(name, description string) string {
	return firstTooLong(
		fieldCheck{name, maxTermNameLen, "Name is too long (max 100 characters)."},
		fieldCheck{description, maxTermDescLen, "Description is too long (max 1,000 characters)."},
	)
}
