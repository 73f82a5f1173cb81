package retrieval

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrVectorDimensionMismatch indicates a dimension mismatch.
var ErrVectorDimensionMismatch = errors.New("vector dimension mismatch")

// vectorStore is an immutable brute-force cosine index.
type vectorStore struct {
	dimension int
	docs      []Document
	vectors   [][]float32
}

type vectorResult struct {
	doc      Document
	distance float32
}

func newVectorStore(docs []Document, vectors [][]float32) (*vectorStore, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("have %d documents but %d vectors", len(docs), len(vectors))
	}

	s := &vectorStore{
		docs:    docs,
		vectors: make([][]float32, len(vectors)),
	}

	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("empty vector for document %s", docs[i].ID)
		}
		if s.dimension == 0 {
			s.dimension = len(v)
		}
		if len(v) != s.dimension {
			return nil, fmt.Errorf("%w: expected %d, got %d for document %s",
				ErrVectorDimensionMismatch, s.dimension, len(v), docs[i].ID)
		}
		s.vectors[i] = normalizeVector(v)
	}

	return s, nil
}

// search returns the k nearest documents by cosine distance. Ties keep
// document order.
func (s *vectorStore) search(query []float32, k int) ([]vectorResult, error) {
	if len(s.docs) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: index has %d, query has %d", ErrVectorDimensionMismatch, s.dimension, len(query))
	}

	q := normalizeVector(query)
	results := make([]vectorResult, len(s.docs))
	for i, v := range s.vectors {
		results[i] = vectorResult{doc: s.docs[i], distance: cosineDistance(q, v)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].distance < results[j].distance
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// relevance converts a cosine distance into a score in [0, 1].
func relevance(distance float32) float64 {
	return math.Max(0, math.Min(1, float64(1-distance)))
}

// cosineDistance computes cosine distance between two normalized vectors.
func cosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 1.0
	}

	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}

	// Clamp to [-1, 1] range due to floating point errors
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}

	return 1 - dot
}

// normalizeVector returns a unit vector.
func normalizeVector(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)

	if norm == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, x := range v {
		normalized[i] = float32(float64(x) / norm)
	}

	return normalized
}
