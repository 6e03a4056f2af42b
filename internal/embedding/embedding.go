// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding generates vector embeddings for similarity comparisons.
// Implements: prd002-section-memory R4, prd004-consistency-gate R2;
//
//	docs/ARCHITECTURE § Embedding.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pdiddy/enrichdoc/pkg/types"
)

// ErrUnavailable wraps failures of the external embedding service. Callers
// treat it as a degradable condition, not a fatal one.
var ErrUnavailable = errors.New("embedding service unavailable")

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text. Embed is deterministic
// for identical input and model version.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
	Name() string
}

// New creates an embedder from configuration. Per the Strategy pattern,
// each provider is a separate implementation.
func New(cfg types.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaEmbedder(cfg), nil
	case "hash":
		return NewHashEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (use \"ollama\" or \"hash\")", cfg.Provider)
	}
}

// Cosine computes the cosine similarity between two vectors. Mismatched or
// zero-norm vectors yield 0.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
