// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"reflect"
	"testing"
)

func TestTopics(t *testing.T) {
	tests := []struct {
		name    string
		heading string
		body    string
		want    []string
	}{
		{
			name:    "heading first then body phrases",
			heading: "History",
			body:    "The Roman Empire shaped European law.",
			want:    []string{"History", "The Roman Empire", "European"},
		},
		{
			name:    "sentence-initial word is not a topic",
			heading: "",
			body:    "Many people keep cats. Paris hosts museums.",
			want:    nil,
		},
		{
			name:    "duplicates collapse case-insensitively",
			heading: "Paris",
			body:    "We visited paris and PARIS again.",
			want:    []string{"Paris"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Topics(tt.heading, tt.body, 10)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Topics = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopicsRespectsMax(t *testing.T) {
	got := Topics("Heading", "The Roman Empire met the Han Dynasty near the Silk Road.", 2)
	if len(got) != 2 {
		t.Errorf("got %v, want 2 topics", got)
	}
}

func TestClaims(t *testing.T) {
	text := "The tower is 330 metres tall and was finished in 1889.\n" +
		"> **Correction:** ignored line with is and 42.\n" +
		"Short one.\n" +
		"These animals are found across most of the southern hemisphere."

	got := Claims(text, 10)
	want := []string{
		"The tower is 330 metres tall and was finished in 1889.",
		"These animals are found across most of the southern hemisphere.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Claims = %v, want %v", got, want)
	}
}

func TestClaimsRespectsMax(t *testing.T) {
	text := "Alpha systems are widely deployed in production today. " +
		"Beta systems are widely deployed in production today. " +
		"Gamma systems are widely deployed in production today."
	if got := Claims(text, 2); len(got) != 2 {
		t.Errorf("got %d claims, want 2", len(got))
	}
}

func TestCapitalizedPhrasesRuns(t *testing.T) {
	got := capitalizedPhrases("He joined the United Nations Security Council in Geneva.")
	want := []string{"United Nations Security Council", "Geneva"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("phrases = %v, want %v", got, want)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One two. Three four! Five six? Seven")
	want := []string{"One two.", "Three four!", "Five six?", "Seven"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sentences = %v, want %v", got, want)
	}
}

func TestWrapFirstOccurrence(t *testing.T) {
	tests := []struct {
		name string
		text string
		term string
		want string
		ok   bool
	}{
		{
			name: "plain wrap",
			text: "Cats are mammals and mammals rule.",
			term: "mammals",
			want: "Cats are [mammals](u) and mammals rule.",
			ok:   true,
		},
		{
			name: "skips existing link text",
			text: "Cats are [mammals](x) and mammals rule.",
			term: "mammals",
			want: "Cats are [mammals](x) and [mammals](u) rule.",
			ok:   true,
		},
		{
			name: "skips heading lines",
			text: "### mammals\nmammals rule.",
			term: "mammals",
			want: "### mammals\n[mammals](u) rule.",
			ok:   true,
		},
		{
			name: "word boundary respected",
			text: "catalogue of cat facts.",
			term: "cat",
			want: "catalogue of [cat](u) facts.",
			ok:   true,
		},
		{
			name: "absent term",
			text: "nothing here.",
			term: "mammals",
			want: "nothing here.",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := wrapFirstOccurrence(tt.text, tt.term, "u")
			if ok != tt.ok || got != tt.want {
				t.Errorf("got %q (ok=%v), want %q (ok=%v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestInsideLink(t *testing.T) {
	if !insideLink("see [term") {
		t.Error("open bracket should mark link text")
	}
	if !insideLink("see [term](https://exa") {
		t.Error("open URL should mark link")
	}
	if insideLink("see [term](url) and ") {
		t.Error("closed link should not mark following text")
	}
}
