// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sanitize strips unsafe markup, script and CSS from user-supplied
// fields before they are stored, and derives plain-text metrics (word
// count, reading time, excerpt) from the cleaned body. All functions are
// pure and safe for concurrent use.
package sanitize

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"pressroom/internal/markdown"
	"pressroom/internal/models"
)

var (
	// ugc allows the formatting tags an editor produces, no scripts or styles.
	ugc = bluemonday.UGCPolicy()
	// strict removes every tag; used for titles and excerpts.
	strict = bluemonday.StrictPolicy()
	// spaced removes every tag but keeps a word break where a tag stood.
	spaced = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

	whitespace = regexp.MustCompile(`\s+`)

	// unsafeCSS matches constructs that execute code or pull remote resources.
	unsafeCSS = regexp.MustCompile(`(?i)(expression\s*\(|javascript\s*:|vbscript\s*:|behavior\s*:|-moz-binding|@import[^;]*;?|url\s*\(\s*['"]?\s*(javascript|vbscript|data)\s*:[^)]*\))`)
	// styleBreakout matches attempts to close the surrounding <style> element.
	styleBreakout = regexp.MustCompile(`(?i)</?\s*style[^>]*>|<!--|-->|<\s*/?\s*script[^>]*>`)
)

// HTML returns s with only safe user-generated-content markup kept.
func HTML(s string) string {
	return strings.TrimSpace(ugc.Sanitize(s))
}

// Text strips all markup from s and returns a single-line plain string.
// Entities are decoded so "Rock &amp; Roll" is stored as "Rock & Roll".
func Text(s string) string {
	out := html.UnescapeString(strict.Sanitize(s))
	return strings.TrimSpace(whitespace.ReplaceAllString(out, " "))
}

// CSS removes executable or remote-loading constructs from a custom
// stylesheet fragment.
func CSS(s string) string {
	out := styleBreakout.ReplaceAllString(s, "")
	out = unsafeCSS.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Body cleans a body for storage and returns the rendered HTML used for
// metrics. HTML bodies are sanitized in place. Markdown bodies keep their
// Markdown, with every raw HTML span inside them sanitized, and their
// rendered output is sanitized again.
func Body(format models.BodyFormat, body string) (stored, rendered string, err error) {
	switch format {
	case models.BodyFormatHTML:
		clean := HTML(body)
		return clean, clean, nil
	case models.BodyFormatMarkdown, "":
		clean := strings.TrimSpace(markdown.CleanRawHTML(body, ugc.Sanitize))
		out, err := markdown.ToHTML(clean)
		if err != nil {
			return "", "", fmt.Errorf("render markdown: %w", err)
		}
		return clean, HTML(out), nil
	default:
		return "", "", fmt.Errorf("unknown body format %q", format)
	}
}

// PlainText converts sanitized HTML into whitespace-collapsed text.
func PlainText(renderedHTML string) string {
	out := html.UnescapeString(spaced.Sanitize(renderedHTML))
	return strings.TrimSpace(whitespace.ReplaceAllString(out, " "))
}

// WordCount counts whitespace-separated words in plain text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// ReadingTime returns whole minutes needed at wpm words per minute.
// Any non-empty text takes at least one minute.
func ReadingTime(words, wpm int) int {
	if words <= 0 {
		return 0
	}
	if wpm <= 0 {
		wpm = 200
	}
	return int(math.Ceil(float64(words) / float64(wpm)))
}

// Excerpt cuts plain text to at most limit runes on a word boundary,
// appending "..." when truncated.
func Excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:limit])
	if runes[limit] == ' ' {
		return strings.TrimRight(cut, " ,.;:") + "..."
	}
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}
