package retrieve

import (
	"math"
	"sort"

	"github.com/atalaya-security/riskguard/internal/index"
)

// candidate pairs a record with its query similarity and its original
// similarity rank (0-based), which breaks ties during MMR selection.
type candidate struct {
	rec   index.EmbeddingRecord
	score float64
	rank  int
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Zero vectors compare as zero similarity.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankCandidates scores every record against the query vector and returns
// them sorted by descending similarity, annotated with their rank.
func rankCandidates(queryVec []float32, records []index.EmbeddingRecord) []candidate {
	cands := make([]candidate, len(records))
	for i, rec := range records {
		cands[i] = candidate{rec: rec, score: cosineSimilarity(queryVec, rec.Vector)}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
	for i := range cands {
		cands[i].rank = i
	}
	return cands
}

// selectMMR picks k candidates maximizing
//
//	lambda*relevance - (1-lambda)*maxSimilarityToSelected
//
// so lambda=1 degenerates to pure top-k by relevance and lambda=0
// maximizes inter-result diversity. Candidates must arrive sorted by
// descending relevance; ties are broken by that original order.
func selectMMR(cands []candidate, k int, lambda float64) []candidate {
	if k >= len(cands) {
		k = len(cands)
	}
	if k <= 0 {
		return nil
	}

	selected := make([]candidate, 0, k)
	remaining := append([]candidate(nil), cands...)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			redundancy := 0.0
			for _, sel := range selected {
				if sim := cosineSimilarity(cand.rec.Vector, sel.rec.Vector); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*cand.score - (1-lambda)*redundancy
			// Strict comparison keeps the earlier (better-ranked)
			// candidate on ties.
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
