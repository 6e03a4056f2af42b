// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gate validates proposed enrichment text against the section it
// came from: additions must stay on topic and original text must survive
// intact. This is the structural backstop for the never-shorten rule; the
// role prompts only encourage it, the gate enforces it.
// Implements: prd004-consistency-gate (R1-R3);
//
//	docs/ARCHITECTURE § Consistency Gate.
package gate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/enrichdoc/internal/embedding"
	"github.com/pdiddy/enrichdoc/pkg/types"
)

// Decision is the gate's verdict on a candidate.
type Decision string

const (
	// Accept passes the candidate through unchanged.
	Accept Decision = "accept"

	// Truncate discards the addition as off-topic and reverts to the
	// original text; the original itself was preserved correctly.
	Truncate Decision = "truncate"

	// Reject means the candidate violated the preservation contract:
	// original text was removed or rewritten.
	Reject Decision = "reject"
)

const defaultThreshold = 0.75

// IntegrityError reports a candidate that is not a superset of its input.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "integrity violation: " + e.Reason
}

// Result carries the verdict and the text the caller should keep.
type Result struct {
	Decision   Decision
	Text       string
	Similarity float64
}

// Gate evaluates candidates with an embedder and a similarity threshold.
type Gate struct {
	embedder  embedding.Embedder
	threshold float64
}

// New creates a gate, filling the default threshold for an unset config.
func New(embedder embedding.Embedder, cfg types.GateConfig) *Gate {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Gate{embedder: embedder, threshold: threshold}
}

// Evaluate compares candidate against the text the stage started from.
//
// The added portion is the candidate minus the original. Containment is
// checked on link-normalized text ([term](url) reads as term), so the link
// stage's in-place wrapping passes while any other in-place mutation fails.
// Interleaved additions are allowed at line granularity: every original
// line must appear unbroken and in order.
//
// An empty addition is a legitimate no-op, accepted without an embedding
// call. An off-topic addition truncates back to the original. A candidate
// that lost original text rejects with *IntegrityError. An embedding
// failure is returned as-is so the caller can degrade the stage.
func (g *Gate) Evaluate(ctx context.Context, original, candidate string) (Result, error) {
	if candidate == original {
		return Result{Decision: Accept, Text: original, Similarity: 1}, nil
	}

	added, ok := addedPortion(stripLinks(original), stripLinks(candidate))
	if !ok {
		return Result{Decision: Reject, Text: original},
			&IntegrityError{Reason: "candidate does not contain the original text"}
	}
	if strings.TrimSpace(added) == "" {
		// Markup-only change (links) or whitespace shuffle.
		return Result{Decision: Accept, Text: candidate, Similarity: 1}, nil
	}

	origVec, err := g.embedder.Embed(ctx, original)
	if err != nil {
		return Result{}, fmt.Errorf("embedding original: %w", err)
	}
	addedVec, err := g.embedder.Embed(ctx, added)
	if err != nil {
		return Result{}, fmt.Errorf("embedding addition: %w", err)
	}

	sim := embedding.Cosine(origVec, addedVec)
	if sim >= g.threshold {
		return Result{Decision: Accept, Text: candidate, Similarity: sim}, nil
	}
	return Result{Decision: Truncate, Text: original, Similarity: sim}, nil
}

// linkPattern matches inline Markdown links without nesting.
var linkPattern = regexp.MustCompile(`\[([^\[\]\n]+)\]\(([^()\s]+)\)`)

// stripLinks reduces [term](url) to term so containment checks see the
// text a reader sees.
func stripLinks(text string) string {
	return linkPattern.ReplaceAllString(text, "$1")
}

// addedPortion returns the text present in candidate but not in original,
// or ok=false when the original does not survive in the candidate.
//
// Fast path: the original is a contiguous substring (pure accretion).
// Slow path: line-level interleaving, for corrections inserted after a
// claim line.
func addedPortion(original, candidate string) (string, bool) {
	if original == "" {
		return candidate, true
	}

	if idx := strings.Index(candidate, original); idx >= 0 {
		before := candidate[:idx]
		after := candidate[idx+len(original):]
		return strings.TrimSpace(before + "\n" + after), true
	}

	return addedLines(original, candidate)
}

// addedLines matches original lines against candidate lines in order.
// Blank original lines are not anchors; every non-blank original line must
// appear verbatim. Unmatched candidate lines form the addition.
func addedLines(original, candidate string) (string, bool) {
	origLines := nonBlankLines(original)
	candLines := strings.Split(candidate, "\n")

	var added []string
	oi := 0
	for _, line := range candLines {
		if oi < len(origLines) && strings.TrimSpace(line) == origLines[oi] {
			oi++
			continue
		}
		if strings.TrimSpace(line) != "" {
			added = append(added, line)
		}
	}
	if oi < len(origLines) {
		return "", false
	}
	return strings.Join(added, "\n"), true
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}
