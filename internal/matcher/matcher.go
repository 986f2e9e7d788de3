// Package matcher finds the identity whose stored face embedding is close enough
// to a query embedding.
package matcher

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrEmptyQuery is returned when the query embedding has no dimensions.
	ErrEmptyQuery = errors.New("query embedding is empty")

	// ErrEmbeddingLengthMismatch is returned when two embeddings have different lengths.
	ErrEmbeddingLengthMismatch = errors.New("embedding length mismatch")
)

// Candidate is anything that carries a face embedding. An empty embedding means
// the candidate is not enrolled and is never compared.
type Candidate interface {
	FaceEmbedding() []float32
}

// Distance computes the Euclidean distance between two embeddings.
func Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrEmbeddingLengthMismatch, len(a), len(b))
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum), nil
}

// Match scans candidates in order and returns the first one whose embedding is
// strictly closer than threshold to query. The scan stops at the first hit, so
// the result is not necessarily the closest candidate.
func Match[T Candidate](query []float32, candidates []T, threshold float64) (T, bool, error) {
	var zero T
	if len(query) == 0 {
		return zero, false, ErrEmptyQuery
	}

	for i, c := range candidates {
		emb := c.FaceEmbedding()
		if len(emb) == 0 {
			continue
		}

		dist, err := Distance(query, emb)
		if err != nil {
			return zero, false, fmt.Errorf("candidate %d: %w", i, err)
		}
		if dist < threshold {
			return c, true, nil
		}
	}

	return zero, false, nil
}
