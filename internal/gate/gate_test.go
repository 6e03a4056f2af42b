// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pdiddy/enrichdoc/internal/embedding"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

func testGate() *Gate {
	return New(embedding.NewHashEmbedder(256), types.GateConfig{Threshold: 0.5})
}

func TestEvaluateNoOp(t *testing.T) {
	g := testGate()
	res, err := g.Evaluate(context.Background(), "Cats are mammals.", "Cats are mammals.")
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Accept || res.Text != "Cats are mammals." {
		t.Errorf("no-op candidate: %+v", res)
	}
}

func TestEvaluateAcceptsOnTopicAddition(t *testing.T) {
	g := testGate()
	original := "Cats are mammals and cats hunt mice."
	candidate := original + " Domestic cats are small carnivorous mammals that hunt mice."

	res, err := g.Evaluate(context.Background(), original, candidate)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Accept {
		t.Errorf("decision = %s (similarity %f), want accept", res.Decision, res.Similarity)
	}
	if res.Text != candidate {
		t.Errorf("accepted text altered: %q", res.Text)
	}
}

func TestEvaluateTruncatesOffTopicAddition(t *testing.T) {
	g := testGate()
	original := "Cats are mammals."
	candidate := original + " Tectonic plates drift across the asthenosphere, reshaping continents over millions of years of geologic upheaval."

	res, err := g.Evaluate(context.Background(), original, candidate)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Truncate {
		t.Errorf("decision = %s (similarity %f), want truncate", res.Decision, res.Similarity)
	}
	if res.Text != original {
		t.Errorf("truncation must revert to the original, got %q", res.Text)
	}
}

func TestEvaluateRejectsRewrite(t *testing.T) {
	g := testGate()
	res, err := g.Evaluate(context.Background(), "Cats are mammals.", "Dogs are mammals.")
	if err == nil {
		t.Fatal("rewrite must fail")
	}
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Errorf("error %v should be an IntegrityError", err)
	}
	if res.Decision != Reject || res.Text != "Cats are mammals." {
		t.Errorf("reject result must carry the original: %+v", res)
	}
}

func TestEvaluateRejectsDeletion(t *testing.T) {
	g := testGate()
	original := "First sentence.\nSecond sentence.\n"
	candidate := "First sentence.\n"

	_, err := g.Evaluate(context.Background(), original, candidate)
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Errorf("deletion should be an IntegrityError, got %v", err)
	}
}

func TestEvaluateAllowsInterleavedCorrection(t *testing.T) {
	g := testGate()
	original := "Cats are reptiles and very popular pets.\nThey are kept worldwide.\n"
	candidate := "Cats are reptiles and very popular pets.\n> **Correction:** Cats are mammals, not reptiles; cats are popular pets worldwide.\nThey are kept worldwide.\n"

	res, err := g.Evaluate(context.Background(), original, candidate)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Accept {
		t.Errorf("decision = %s (similarity %f), want accept", res.Decision, res.Similarity)
	}
}

func TestEvaluateAcceptsLinkMarkup(t *testing.T) {
	g := testGate()
	original := "Cats are mammals and popular pets."
	candidate := "Cats are [mammals](https://en.wikipedia.org/wiki/Mammal) and popular pets."

	res, err := g.Evaluate(context.Background(), original, candidate)
	if err != nil {
		t.Fatal(err)
	}
	if res.Decision != Accept {
		t.Errorf("link wrapping should pass containment, got %s", res.Decision)
	}
	if res.Text != candidate {
		t.Errorf("links must survive gating: %q", res.Text)
	}
}

func TestEvaluateRejectsLinkTextChange(t *testing.T) {
	g := testGate()
	original := "Cats are mammals."
	candidate := "Cats are [furry beasts](https://en.wikipedia.org/wiki/Mammal)."

	_, err := g.Evaluate(context.Background(), original, candidate)
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Errorf("changed link text should be an IntegrityError, got %v", err)
	}
}

func TestEvaluateEmbeddingFailurePropagates(t *testing.T) {
	g := New(failingEmbedder{}, types.GateConfig{})
	_, err := g.Evaluate(context.Background(), "Cats are mammals.", "Cats are mammals. More about cats.")
	if !errors.Is(err, embedding.ErrUnavailable) {
		t.Errorf("embedding failure should propagate, got %v", err)
	}
}

func TestStripLinks(t *testing.T) {
	got := stripLinks("See [cats](https://example.org/cat) and [dogs](https://example.org/dog).")
	want := "See cats and dogs."
	if got != want {
		t.Errorf("stripLinks = %q, want %q", got, want)
	}
}

func TestAddedPortion(t *testing.T) {
	tests := []struct {
		name      string
		original  string
		candidate string
		added     string
		ok        bool
	}{
		{name: "pure suffix", original: "a b.", candidate: "a b. c d.", added: "c d.", ok: true},
		{name: "prefix addition", original: "a b.", candidate: "Intro. a b.", added: "Intro.", ok: true},
		{name: "identical", original: "a b.", candidate: "a b.", added: "", ok: true},
		{name: "lost text", original: "a b.", candidate: "c d.", ok: false},
		{name: "empty original", original: "", candidate: "anything", added: "anything", ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, ok := addedPortion(tt.original, tt.candidate)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && strings.TrimSpace(added) != tt.added {
				t.Errorf("added = %q, want %q", added, tt.added)
			}
		})
	}
}

// failingEmbedder always reports the service as unavailable.
type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) (embedding.Vector, error) {
	return nil, embedding.ErrUnavailable
}
func (failingEmbedder) Dims() int    { return 0 }
func (failingEmbedder) Name() string { return "failing" }
