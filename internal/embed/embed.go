// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embed turns text into fixed-length feature vectors for similarity
// search. The embedder is a local hash-based model: no network, no weights,
// deterministic output. Chunks and queries must go through the same Embedder
// instance for their similarities to mean anything.
package embed

import (
	"hash/fnv"
	"math"
	"strings"
)

// DefaultDimension is the embedding width used in production. Tests construct
// smaller embedders.
const DefaultDimension = 384

// Embedder produces a fixed-length vector for a piece of text.
type Embedder interface {
	Embed(text string) ([]float32, error)
	Dimension() int
}

// HashEmbedder maps words and bigrams to vector positions by hashing.
// Earlier words weigh more; the output is L2-normalized so that cosine
// similarity reduces to a dot product.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder returns an embedder of the given dimension. Non-positive
// dimensions fall back to DefaultDimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{dim: dim}
}

// Dimension returns the width of vectors this embedder produces.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed produces the feature vector for text. Empty or whitespace-only text
// yields a zero vector.
func (e *HashEmbedder) Embed(text string) ([]float32, error) {
	words := strings.Fields(strings.ToLower(text))
	vec := make([]float32, e.dim)

	for pos, word := range words {
		h := hashWord(word)

		// Three feature slots per word, progressively weaker.
		idx1 := int(h % uint64(e.dim))
		idx2 := int((h >> 16) % uint64(e.dim))
		idx3 := int((h >> 32) % uint64(e.dim))

		w := float32(1.0 / (float64(pos) + 1.0))
		vec[idx1] += w
		vec[idx2] += w * 0.7
		vec[idx3] += w * 0.5
	}

	for i := 0; i+1 < len(words); i++ {
		h := hashWord(words[i] + " " + words[i+1])
		vec[int(h%uint64(e.dim))] += 0.8
	}

	normalize(vec)
	return vec, nil
}

func hashWord(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// normalize scales v to unit length in place. A zero vector stays zero.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	mag := math.Sqrt(sum)
	if mag == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / mag)
	}
}
