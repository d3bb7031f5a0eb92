package retrieve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atalaya-security/riskguard/internal/index"
)

func rec(id string, vec ...float32) index.EmbeddingRecord {
	return index.EmbeddingRecord{ID: id, Vector: vec}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scale invariant", []float32{1, 2}, []float32{2, 4}, 1},
		{"zero left", []float32{0, 0}, []float32{1, 0}, 0},
		{"zero right", []float32{1, 0}, []float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	// Shorter vector bounds the comparison; no panic, components past
	// its length are ignored on both sides.
	got := cosineSimilarity([]float32{1, 0, 5}, []float32{1, 0})
	assert.InDelta(t, 1, got, 1e-9)
}

func TestRankCandidates(t *testing.T) {
	records := []index.EmbeddingRecord{
		rec("far", 0, 1),
		rec("near", 1, 0),
		rec("mid", 1, 1),
	}

	ranked := rankCandidates([]float32{1, 0}, records)
	require.Len(t, ranked, 3)
	assert.Equal(t, "near", ranked[0].rec.ID)
	assert.Equal(t, "mid", ranked[1].rec.ID)
	assert.Equal(t, "far", ranked[2].rec.ID)
	for i, cand := range ranked {
		assert.Equal(t, i, cand.rank)
	}
	assert.InDelta(t, 1, ranked[0].score, 1e-9)
	assert.InDelta(t, 0, ranked[2].score, 1e-9)
}

func TestRankCandidatesStableOnTies(t *testing.T) {
	records := []index.EmbeddingRecord{
		rec("first", 1, 0),
		rec("second", 2, 0),
	}

	ranked := rankCandidates([]float32{1, 0}, records)
	assert.Equal(t, "first", ranked[0].rec.ID)
	assert.Equal(t, "second", ranked[1].rec.ID)
}

func TestSelectMMRPureRelevance(t *testing.T) {
	// lambda=1 reduces to top-k by score.
	ranked := rankCandidates([]float32{1, 0}, []index.EmbeddingRecord{
		rec("a", 1, 0),
		rec("b", 0.9, 0.1),
		rec("c", 0, 1),
	})

	picked := selectMMR(ranked, 2, 1.0)
	require.Len(t, picked, 2)
	assert.Equal(t, "a", picked[0].rec.ID)
	assert.Equal(t, "b", picked[1].rec.ID)
}

func TestSelectMMRDiversity(t *testing.T) {
	// "b" is nearly a duplicate of "a"; with diversity weighting the
	// orthogonal "c" is preferred for the second slot.
	ranked := rankCandidates([]float32{1, 0}, []index.EmbeddingRecord{
		rec("a", 1, 0),
		rec("b", 0.99, 0.01),
		rec("c", 0, 1),
	})

	picked := selectMMR(ranked, 2, 0.3)
	require.Len(t, picked, 2)
	assert.Equal(t, "a", picked[0].rec.ID)
	assert.Equal(t, "c", picked[1].rec.ID)
}

func TestSelectMMRPureDiversity(t *testing.T) {
	// lambda=0 ignores relevance after the first pick: the top-ranked
	// candidate seeds the selection, then the least redundant one wins.
	ranked := rankCandidates([]float32{1, 0}, []index.EmbeddingRecord{
		rec("a", 1, 0),
		rec("b", 0.99, 0.01),
		rec("c", 0, 1),
	})

	picked := selectMMR(ranked, 3, 0.0)
	require.Len(t, picked, 3)
	assert.Equal(t, "a", picked[0].rec.ID)
	assert.Equal(t, "c", picked[1].rec.ID)
	assert.Equal(t, "b", picked[2].rec.ID)
}

func TestSelectMMRTieBreakKeepsBetterRank(t *testing.T) {
	// Equal vectors score identically; the earlier-ranked candidate wins.
	ranked := rankCandidates([]float32{1, 0}, []index.EmbeddingRecord{
		rec("first", 1, 0),
		rec("second", 1, 0),
		rec("third", 1, 0),
	})

	picked := selectMMR(ranked, 2, 1.0)
	require.Len(t, picked, 2)
	assert.Equal(t, "first", picked[0].rec.ID)
	assert.Equal(t, "second", picked[1].rec.ID)
}

func TestSelectMMRBounds(t *testing.T) {
	ranked := rankCandidates([]float32{1, 0}, []index.EmbeddingRecord{
		rec("a", 1, 0),
		rec("b", 0, 1),
	})

	assert.Len(t, selectMMR(ranked, 10, 0.7), 2)
	assert.Nil(t, selectMMR(ranked, 0, 0.7))
	assert.Nil(t, selectMMR(nil, 3, 0.7))
}
