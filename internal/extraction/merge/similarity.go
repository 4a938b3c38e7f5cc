package merge

import (
	"context"
	"math"

	"github.com/specvital/worker/internal/domain/extraction"
)

// CosineSimilarity returns the cosine similarity of a and b in [-1, 1].
// Mismatched dimensions or a zero vector yield 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SimilarityIndex is a brute-force nearest-neighbor index over embedding
// vectors, used by the string deduplication pass. A flat scan is
// appropriate at the scale of a single extraction's field values; it
// trades index-build complexity for a straightforward, auditable
// nearest-neighbor query.
type SimilarityIndex struct {
	items      []string
	vectors    [][]float64
	embedder   extraction.Embedder
}

// NewSimilarityIndex returns an empty index backed by embedder.
func NewSimilarityIndex(embedder extraction.Embedder) *SimilarityIndex {
	return &SimilarityIndex{embedder: embedder}
}

// Insert embeds and adds s to the index unconditionally.
func (idx *SimilarityIndex) Insert(ctx context.Context, s string) error {
	vec, err := idx.embed(ctx, s)
	if err != nil {
		return err
	}
	idx.items = append(idx.items, s)
	idx.vectors = append(idx.vectors, vec)
	return nil
}

// NearestSimilarity returns the cosine similarity of s against the closest
// item already in the index, and false if the index is empty.
func (idx *SimilarityIndex) NearestSimilarity(ctx context.Context, s string) (float64, bool, error) {
	if len(idx.vectors) == 0 {
		return 0, false, nil
	}
	vec, err := idx.embed(ctx, s)
	if err != nil {
		return 0, false, err
	}

	best := -2.0
	for _, v := range idx.vectors {
		if sim := CosineSimilarity(vec, v); sim > best {
			best = sim
		}
	}
	return best, true, nil
}

func (idx *SimilarityIndex) embed(ctx context.Context, s string) ([]float64, error) {
	vecs, err := idx.embedder.Embed(ctx, []string{s})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	return vecs[0], nil
}

// DedupStrings drops subsequent strings whose nearest-neighbor similarity
// to an already-kept string exceeds threshold, preserving first-seen
// order. Cosine similarity is the defined metric: drop-if-greater-than,
// never greater-or-equal, so at a threshold of 1.0 even identical
// embeddings (similarity exactly 1.0) are kept, floating-point rounding
// aside.
func DedupStrings(ctx context.Context, embedder extraction.Embedder, values []string, threshold float64) ([]string, error) {
	if len(values) <= 1 {
		return values, nil
	}
	idx := NewSimilarityIndex(embedder)

	kept := make([]string, 0, len(values))
	for _, v := range values {
		sim, ok, err := idx.NearestSimilarity(ctx, v)
		if err != nil {
			return nil, err
		}
		if ok && sim > threshold {
			continue
		}
		if err := idx.Insert(ctx, v); err != nil {
			return nil, err
		}
		kept = append(kept, v)
	}
	return kept, nil
}
