package dedup

import (
	"math"
	"strings"
)

// Similarity scores how alike two texts are, on [0,1].
type Similarity interface {
	Score(a, b string) float64
}

// Embedder maps a text into a similarity vector space. Pluggable; an
// external model typically backs it.
type Embedder interface {
	Embed(text string) []float64
}

// EmbeddingSimilarity computes cosine similarity between embeddings.
type EmbeddingSimilarity struct {
	Embedder Embedder
}

// Score embeds both texts and returns their cosine similarity, clamped
// to [0,1].
func (s EmbeddingSimilarity) Score(a, b string) float64 {
	va := s.Embedder.Embed(a)
	vb := s.Embedder.Embed(b)
	sim := Cosine(va, vb)
	if sim < 0 {
		return 0
	}
	return sim
}

// Cosine returns the cosine similarity of two vectors. Mismatched or
// zero-magnitude vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TokenOverlap is the fallback when no embedding model is available:
// the Jaccard overlap ratio of lowercase token sets.
type TokenOverlap struct{}

// Score returns |A ∩ B| / |A ∪ B| over the two texts' token sets.
func (TokenOverlap) Score(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}

	union := len(ta) + len(tb) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:\"'()[]")
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}
