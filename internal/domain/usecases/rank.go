package usecases

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// CosineSimilarity returns dot(a, b) / (|a| * |b|). It fails with
// entities.ErrDegenerateVector for empty, mismatched, or zero-norm input.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: dimension mismatch %d vs %d", entities.ErrDegenerateVector, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: empty vector", entities.ErrDegenerateVector)
	}

	var dot, normA, normB float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		normA += va * va
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("%w: zero magnitude", entities.ErrDegenerateVector)
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return 0, fmt.Errorf("%w: non-finite components", entities.ErrDegenerateVector)
	}
	return score, nil
}

// Rank scores every candidate against query and orders them by descending
// similarity, ties by ascending index. Degenerate candidates score 0 instead
// of aborting the ranking. This is a linear scan with no index.
func Rank(query []float32, candidates [][]float32) []entities.Ranked {
	ranked := make([]entities.Ranked, len(candidates))
	for i, c := range candidates {
		score, err := CosineSimilarity(query, c)
		if err != nil {
			score = 0
		}
		ranked[i] = entities.Ranked{Score: score, Index: i}
	}

	slices.SortStableFunc(ranked, func(a, b entities.Ranked) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}
