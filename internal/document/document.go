// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document parses Markdown into ordered sections and reassembles it
// without losing a byte of the original text.
// Implements: prd001-document-model (R1-R4);
//
//	docs/ARCHITECTURE § Document Model.
package document

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrEmptyDocument is returned by Parse for input with no content at all.
// Any non-empty input parses successfully (R1.2).
var ErrEmptyDocument = errors.New("document is empty")

// headingPattern matches an ATX heading line: one to six # characters
// followed by whitespace.
var headingPattern = regexp.MustCompile(`^(#{1,6})[ \t]+(.*)$`)

// Section is one heading plus its body, the unit of independent enrichment.
// OriginalBody is never mutated after Parse; all enrichment writes go to
// EnrichedBody (R2.1).
type Section struct {
	// Heading is the heading text without the # prefix. Empty for the
	// preamble section.
	Heading string

	// RawHeadingLine is the exact heading line from the input, without its
	// trailing newline. Empty for the preamble section.
	RawHeadingLine string

	// Level is the heading level (1-6), or 0 for the preamble.
	Level int

	// OriginalBody is the exact input text between this heading line and the
	// next heading, including whitespace runs and the trailing newline.
	OriginalBody string

	// EnrichedBody starts as a copy of OriginalBody and only grows.
	EnrichedBody string

	// headingNewline records whether the heading line was followed by a
	// newline in the input.
	headingNewline bool
}

// Document is an ordered sequence of sections parsed from one Markdown input.
type Document struct {
	Sections []*Section
}

// Parse splits raw Markdown on ATX heading lines, preserving heading level
// and exact body text. Text before the first heading becomes a preamble
// section with level 0 and no heading (R1.3). The only failure is empty
// input. Section bodies are exact substrings of raw, so an unenriched
// document serializes back to raw byte for byte.
func Parse(raw string) (*Document, error) {
	if raw == "" {
		return nil, ErrEmptyDocument
	}

	doc := &Document{}

	// Locate heading lines by byte offset.
	type headingPos struct {
		lineStart, lineEnd int // lineEnd excludes the newline
		level              int
		text               string
	}
	var headings []headingPos

	offset := 0
	for offset <= len(raw) {
		lineEnd := strings.IndexByte(raw[offset:], '\n')
		end := len(raw)
		if lineEnd >= 0 {
			end = offset + lineEnd
		}
		line := raw[offset:end]
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			headings = append(headings, headingPos{
				lineStart: offset,
				lineEnd:   end,
				level:     len(m[1]),
				text:      strings.TrimSpace(m[2]),
			})
		}
		if lineEnd < 0 {
			break
		}
		offset = end + 1
	}

	if len(headings) == 0 {
		sec := &Section{OriginalBody: raw, EnrichedBody: raw}
		doc.Sections = append(doc.Sections, sec)
		return doc, nil
	}

	if headings[0].lineStart > 0 {
		body := raw[:headings[0].lineStart]
		doc.Sections = append(doc.Sections, &Section{
			OriginalBody: body,
			EnrichedBody: body,
		})
	}

	for i, h := range headings {
		bodyStart := h.lineEnd
		hasNewline := bodyStart < len(raw)
		if hasNewline {
			bodyStart++ // skip the newline after the heading line
		}
		bodyEnd := len(raw)
		if i+1 < len(headings) {
			bodyEnd = headings[i+1].lineStart
		}
		body := raw[bodyStart:bodyEnd]
		doc.Sections = append(doc.Sections, &Section{
			Heading:        h.text,
			RawHeadingLine: raw[h.lineStart:h.lineEnd],
			Level:          h.level,
			OriginalBody:   body,
			EnrichedBody:   body,
			headingNewline: hasNewline,
		})
	}

	return doc, nil
}

// Serialize reassembles the document in original order, each section as its
// unchanged heading line plus EnrichedBody. For an unenriched document the
// output equals the Parse input byte for byte; enrichment only ever adds
// bytes (R3.1, R3.2).
func (d *Document) Serialize() string {
	var b strings.Builder
	for i, sec := range d.Sections {
		var sb strings.Builder
		if sec.RawHeadingLine != "" {
			sb.WriteString(sec.RawHeadingLine)
			if sec.headingNewline || sec.EnrichedBody != "" {
				sb.WriteString("\n")
			}
		}
		sb.WriteString(sec.EnrichedBody)

		text := sb.String()
		// A following heading must start on its own line. Only enrichment
		// that dropped a trailing newline can trigger this.
		if i+1 < len(d.Sections) && !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		b.WriteString(text)
	}
	return b.String()
}

// Topic returns the text that best names what the section is about: the
// heading when present, otherwise the first non-empty body line.
func (s *Section) Topic() string {
	if s.Heading != "" {
		return s.Heading
	}
	for _, line := range strings.Split(s.OriginalBody, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// ID derives a stable document identifier from the input file path,
// consistent across runs so memory persists per document (R4.1).
func ID(path string) string {
	clean := filepath.Clean(path)
	sum := sha256.Sum256([]byte(clean))
	return fmt.Sprintf("%x", sum[:8])
}
