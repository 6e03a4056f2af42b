// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const defaultHashDims = 256

// HashEmbedder produces deterministic bag-of-words vectors by hashing
// tokens into a fixed number of buckets. It needs no external service and
// backs tests and offline runs. Texts sharing vocabulary score high on
// cosine similarity; disjoint texts score near zero.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder with the given dimensionality
// (default 256).
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = defaultHashDims
	}
	return &HashEmbedder{dims: dims}
}

// Name returns the embedder identifier.
func (e *HashEmbedder) Name() string { return "hash" }

// Dims returns the embedding dimensionality.
func (e *HashEmbedder) Dims() int { return e.dims }

// Embed hashes each token of text into a bucket and counts occurrences.
// It never fails.
func (e *HashEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	vec := make(Vector, e.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dims]++
	}
	return vec, nil
}

// tokenize lowercases text and splits it on non-alphanumeric runes.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
