// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"strings"
	"testing"
)

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse("")
	if err != ErrEmptyDocument {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestParseSectioning(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		headings []string
		levels   []int
	}{
		{
			name:     "no headings at all",
			input:    "just some text\nover two lines\n",
			headings: []string{""},
			levels:   []int{0},
		},
		{
			name:     "preamble before first heading",
			input:    "intro text\n\n## First\nbody\n",
			headings: []string{"", "First"},
			levels:   []int{0, 2},
		},
		{
			name:     "mixed heading levels",
			input:    "# Title\nintro\n## Sub\nbody\n### Deep\nmore\n",
			headings: []string{"Title", "Sub", "Deep"},
			levels:   []int{1, 2, 3},
		},
		{
			name:     "heading without trailing newline",
			input:    "## Only",
			headings: []string{"Only"},
			levels:   []int{2},
		},
		{
			name:     "hash without space is not a heading",
			input:    "#nohashtag\ntext\n",
			headings: []string{""},
			levels:   []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if len(doc.Sections) != len(tt.headings) {
				t.Fatalf("got %d sections, want %d", len(doc.Sections), len(tt.headings))
			}
			for i, sec := range doc.Sections {
				if sec.Heading != tt.headings[i] {
					t.Errorf("section %d heading = %q, want %q", i, sec.Heading, tt.headings[i])
				}
				if sec.Level != tt.levels[i] {
					t.Errorf("section %d level = %d, want %d", i, sec.Level, tt.levels[i])
				}
				if sec.EnrichedBody != sec.OriginalBody {
					t.Errorf("section %d enriched body differs from original before enrichment", i)
				}
			}
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	inputs := []string{
		"# One\n\ntext\n\n## Two\nmore text\n",
		"no headings here",
		"preamble\n# H\nbody",
		"## A\n## B\n",
		"## A",
		"\n\n## Spaced\n\n\nbody with   runs\t\n\n",
		"# Fin\ntrailing heading\n### Last",
	}

	for _, input := range inputs {
		doc, err := Parse(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		got := doc.Serialize()
		if got != input {
			t.Errorf("round trip mismatch:\n input %q\noutput %q", input, got)
		}
	}
}

func TestSerializePreservesOriginalAfterEnrichment(t *testing.T) {
	input := "intro paragraph\n\n## Topic\nShort text about X.\n\n## Other\nMore text.\n"
	doc, err := Parse(input)
	if err != nil {
		t.Fatal(err)
	}

	for _, sec := range doc.Sections {
		sec.EnrichedBody = sec.EnrichedBody + "Appended enrichment.\n"
	}

	out := doc.Serialize()
	for i, sec := range doc.Sections {
		if !strings.Contains(out, sec.OriginalBody) {
			t.Errorf("section %d original body lost after enrichment", i)
		}
	}

	// Original relative order must survive.
	last := -1
	for i, sec := range doc.Sections {
		idx := strings.Index(out, sec.OriginalBody)
		if idx < last {
			t.Errorf("section %d original body out of order", i)
		}
		last = idx
	}
}

func TestSerializeInsertsNewlineBeforeNextHeading(t *testing.T) {
	doc, err := Parse("## A\nbody\n## B\ntail\n")
	if err != nil {
		t.Fatal(err)
	}
	// Simulate an append that dropped the trailing newline.
	doc.Sections[0].EnrichedBody = strings.TrimSuffix(doc.Sections[0].EnrichedBody, "\n") + " extra"

	out := doc.Serialize()
	if !strings.Contains(out, "body extra\n## B") {
		t.Errorf("heading merged into body line: %q", out)
	}
}

func TestTopic(t *testing.T) {
	doc, err := Parse("first line\nsecond\n## Named\nbody\n")
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Sections[0].Topic(); got != "first line" {
		t.Errorf("preamble topic = %q, want first line", got)
	}
	if got := doc.Sections[1].Topic(); got != "Named" {
		t.Errorf("heading topic = %q, want Named", got)
	}
}

func TestIDStable(t *testing.T) {
	a := ID("docs/input.md")
	b := ID("docs//input.md") // cleaned to the same path
	if a != b {
		t.Errorf("ID not stable across equivalent paths: %q vs %q", a, b)
	}
	if a == ID("docs/other.md") {
		t.Error("different paths should produce different IDs")
	}
	if len(a) != 16 {
		t.Errorf("ID length = %d, want 16", len(a))
	}
}
