package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/datacat/internal/models"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.QueryType
	}{
		{"uuid", "550e8400-e29b-41d4-a716-446655440000", models.QueryExactID},
		{"quoted title", `"North Sea Wave Buoy"`, models.QueryExactTitle},
		{"single-quoted title", `'North Sea Wave Buoy'`, models.QueryExactTitle},
		{"short", "rainfall data", models.QueryShort},
		{"normal", "rainfall data for the south west coast", models.QueryNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyQuery(tt.query))
		})
	}
}

// TestMergeRRFOrdering reproduces the worked RRF example: semantic
// ranks [A rank1, B rank2], keyword ranks [B rank1, C rank2], rrfK=60.
// Each list is enumerated independently from rank 1, so B accumulates
// 1/62 (semantic rank 2) + 1/61 (keyword rank 1) ≈ 0.032522, A scores
// 1/61 ≈ 0.016393, and C (keyword-only, rank 2) scores 1/62 ≈ 0.016129
// — so B ranks first, A second, C third.
func TestMergeRRFOrdering(t *testing.T) {
	s := &Service{rrfK: 60}

	semantic := []models.SearchResult{
		{Dataset: &models.Dataset{Identifier: "A", Title: "A"}},
		{Dataset: &models.Dataset{Identifier: "B", Title: "B"}},
	}
	keyword := []*models.Dataset{
		{Identifier: "B", Title: "B"},
		{Identifier: "C", Title: "C"},
	}

	merged := s.mergeRRF(semantic, keyword, 1.0, 1.0)
	byID := make(map[string]models.MergedResult, len(merged))
	for _, m := range merged {
		byID[m.Identifier] = m
	}

	assert.InDelta(t, 1.0/61.0, byID["A"].Score, 0.000001)
	assert.InDelta(t, 1.0/62.0+1.0/61.0, byID["B"].Score, 0.000001)
	assert.InDelta(t, 1.0/62.0, byID["C"].Score, 0.000001)

	sorted := append([]models.MergedResult(nil), merged...)
	sortByScoreDesc(sorted)
	assert.Equal(t, []string{"B", "A", "C"}, []string{sorted[0].Identifier, sorted[1].Identifier, sorted[2].Identifier})
}

func sortByScoreDesc(results []models.MergedResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func TestApplyExactBoost(t *testing.T) {
	s := &Service{exactBoost: 10.0}

	results := []models.MergedResult{
		{Identifier: "exact", Title: "North Sea Wave Buoy", Score: 0.5},
		{Identifier: "partial", Title: "North Sea Wave Buoy Archive", Score: 0.5},
		{Identifier: "keyword-only", Title: "Unrelated", Keywords: []string{"north sea wave buoy"}, Score: 0.5},
		{Identifier: "none", Title: "Completely unrelated title", Score: 0.5},
	}

	s.applyExactBoost(results, "North Sea Wave Buoy")

	// exact title match: score + boost = 0.5 + 10.0 = 10.5
	assert.InDelta(t, 10.5, results[0].Score, 0.0001)
	assert.True(t, results[0].IsExactMatch)

	// partial title match: score + boost*0.5 = 0.5 + 5.0 = 5.5
	assert.InDelta(t, 5.5, results[1].Score, 0.0001)
	assert.True(t, results[1].IsExactMatch)

	// exact keyword match: score + boost*0.3 = 0.5 + 3.0 = 3.5
	assert.InDelta(t, 3.5, results[2].Score, 0.0001)
	assert.True(t, results[2].IsExactMatch)

	// no match: unchanged
	assert.InDelta(t, 0.5, results[3].Score, 0.0001)
	assert.False(t, results[3].IsExactMatch)
}

func TestIsQuoted(t *testing.T) {
	assert.True(t, isQuoted(`"hello"`))
	assert.True(t, isQuoted(`'hello'`))
	assert.False(t, isQuoted(`"mismatched'`))
	assert.False(t, isQuoted(`a`))
	assert.False(t, isQuoted(``))
}
