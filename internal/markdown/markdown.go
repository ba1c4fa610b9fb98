// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package markdown converts Markdown source text into HTML using goldmark.
// Raw HTML is passed through on render; CleanRawHTML lets callers filter
// the raw HTML embedded in the source itself before it is stored.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// md is the configured goldmark instance, reused across calls.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,         // tables, strikethrough, autolinks, task lists
		extension.Typographer, // smart quotes and dashes
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithUnsafe(),
	),
)

// ToHTML converts Markdown source into HTML.
func ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// span is a byte range of the source.
type span struct{ start, stop int }

// CleanRawHTML rewrites every raw HTML span in source (HTML blocks and
// inline tags) through clean and leaves the Markdown around them as
// authored. Code spans and fenced code are not raw HTML and stay intact.
func CleanRawHTML(source string, clean func(string) string) string {
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	var spans []span
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.RawHTML:
			// An inline tag is cleaned whole even when it wraps lines.
			if node.Segments.Len() > 0 {
				first, last := node.Segments.At(0), node.Segments.At(node.Segments.Len()-1)
				spans = append(spans, span{first.Start, last.Stop})
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			lines := node.Lines()
			segs := make([]text.Segment, 0, lines.Len()+1)
			for i := 0; i < lines.Len(); i++ {
				segs = append(segs, lines.At(i))
			}
			if node.HasClosure() {
				segs = append(segs, node.ClosureLine)
			}
			spans = append(spans, merge(segs)...)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if len(spans) == 0 {
		return source
	}

	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for _, sp := range spans {
		if sp.start < pos || sp.stop > len(src) || sp.start > sp.stop {
			continue
		}
		b.Write(src[pos:sp.start])
		b.WriteString(clean(string(src[sp.start:sp.stop])))
		pos = sp.stop
	}
	b.Write(src[pos:])
	return b.String()
}

// merge joins adjacent line segments. Lines separated by container
// markers such as "> " stay apart so the markers are not cleaned away.
func merge(segs []text.Segment) []span {
	var out []span
	for _, seg := range segs {
		if n := len(out); n > 0 && out[n-1].stop == seg.Start {
			out[n-1].stop = seg.Stop
			continue
		}
		out = append(out, span{seg.Start, seg.Stop})
	}
	return out
}
