package retrieve

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atalaya-security/riskguard/internal/domain"
	"github.com/atalaya-security/riskguard/internal/index"
)

type fakeSource struct {
	snap *index.Snapshot
}

func (f *fakeSource) Snapshot() *index.Snapshot { return f.snap }

// fakeQueryEmbedder maps known queries to fixed vectors.
type fakeQueryEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeQueryEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{1, 0, 0}, nil
}

func snapshotWith(records ...index.EmbeddingRecord) *index.Snapshot {
	return &index.Snapshot{Collection: "test", Records: records}
}

func record(id string, docType domain.DocumentType, content string, keywords []string, vec ...float32) index.EmbeddingRecord {
	return index.EmbeddingRecord{
		ID:      id,
		Vector:  vec,
		Content: content,
		Metadata: domain.ChunkMetadata{
			Filename:     id + ".txt",
			DocumentType: docType,
			Keywords:     keywords,
			Language:     "en",
		},
	}
}

func TestRetrieverSearchSimilarity(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(
		record("threats", domain.DocTypeRiskMethodology, "threat catalog", nil, 1, 0, 0),
		record("controls", domain.DocTypeSecurityPrinciples, "control catalog", nil, 0.5, 0.5, 0),
		record("unrelated", domain.DocTypeGeneral, "unrelated notes", nil, 0, 0, 1),
	)}
	r := New(source, &fakeQueryEmbedder{}, Config{SearchType: SearchTypeSimilarity, K: 2})

	outcome := r.Search(context.Background(), "threat analysis", 5, nil)
	require.NoError(t, outcome.Err)
	assert.False(t, outcome.Degraded)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "threat catalog", outcome.Results[0].Content)
	assert.Equal(t, 1, outcome.Results[0].RelevanceRank)
	assert.Equal(t, 2, outcome.Results[1].RelevanceRank)
	assert.Greater(t, outcome.Results[0].Score, outcome.Results[1].Score)
}

func TestRetrieverSearchThreshold(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(
		record("near", domain.DocTypeGeneral, "near", nil, 1, 0, 0),
		record("mid", domain.DocTypeGeneral, "mid", nil, 0.7, 0.7, 0),
		record("far", domain.DocTypeGeneral, "far", nil, 0, 1, 0),
	)}
	r := New(source, &fakeQueryEmbedder{}, Config{
		SearchType:     SearchTypeThreshold,
		K:              5,
		ScoreThreshold: 0.5,
	})

	outcome := r.Search(context.Background(), "q", 5, nil)
	require.NoError(t, outcome.Err)
	require.Len(t, outcome.Results, 2)
	for _, res := range outcome.Results {
		assert.GreaterOrEqual(t, res.Score, 0.5)
	}
}

func TestRetrieverSearchMMRAvoidsDuplicates(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(
		record("a", domain.DocTypeGeneral, "a", nil, 1, 0, 0),
		record("a2", domain.DocTypeGeneral, "a2", nil, 0.99, 0.01, 0),
		record("b", domain.DocTypeGeneral, "b", nil, 0, 1, 0),
	)}
	r := New(source, &fakeQueryEmbedder{}, Config{
		SearchType: SearchTypeMMR,
		K:          2,
		FetchK:     3,
		LambdaMult: 0.3,
	})

	outcome := r.Search(context.Background(), "q", 5, nil)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "a", outcome.Results[0].Content)
	assert.Equal(t, "b", outcome.Results[1].Content)
}

func TestRetrieverSearchAppliesFilter(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(
		record("method", domain.DocTypeRiskMethodology, "methodology", nil, 1, 0, 0),
		record("general", domain.DocTypeGeneral, "general", nil, 0.9, 0.1, 0),
	)}
	r := New(source, &fakeQueryEmbedder{}, Config{SearchType: SearchTypeSimilarity, K: 5})

	outcome := r.Search(context.Background(), "q", 5, domain.DocumentTypeFilter(string(domain.DocTypeGeneral)))
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "general", outcome.Results[0].Content)
	assert.Equal(t, 1, outcome.Results[0].RelevanceRank)
}

func TestRetrieverSearchTruncatesToMaxResults(t *testing.T) {
	var records []index.EmbeddingRecord
	for i := 0; i < 10; i++ {
		records = append(records, record(fmt.Sprintf("doc%d", i), domain.DocTypeGeneral, fmt.Sprintf("doc %d", i), nil, 1, float32(i)*0.01, 0))
	}
	source := &fakeSource{snap: snapshotWith(records...)}
	r := New(source, &fakeQueryEmbedder{}, Config{SearchType: SearchTypeSimilarity, K: 8})

	outcome := r.Search(context.Background(), "q", 3, nil)
	assert.Len(t, outcome.Results, 3)

	// Non-positive max falls back to the default of 5.
	outcome = r.Search(context.Background(), "q", 0, nil)
	assert.Len(t, outcome.Results, 5)
}

func TestRetrieverSearchNoSnapshot(t *testing.T) {
	r := New(&fakeSource{}, &fakeQueryEmbedder{}, DefaultConfig())

	outcome := r.Search(context.Background(), "q", 5, nil)
	assert.True(t, outcome.Degraded)
	assert.ErrorIs(t, outcome.Err, domain.ErrNotReady)
	assert.Empty(t, outcome.Results)
}

func TestRetrieverSearchEmbedFailureDegrades(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(
		record("a", domain.DocTypeGeneral, "a", nil, 1, 0, 0),
	)}
	embedder := &fakeQueryEmbedder{err: fmt.Errorf("provider down")}
	r := New(source, embedder, DefaultConfig())

	outcome := r.Search(context.Background(), "q", 5, nil)
	assert.True(t, outcome.Degraded)
	require.Error(t, outcome.Err)
	assert.ErrorIs(t, outcome.Err, domain.ErrRetrievalUnavailable)
	assert.Empty(t, outcome.Results)
}

func TestRetrieverSearchCancelledContext(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(
		record("a", domain.DocTypeGeneral, "a", nil, 1, 0, 0),
	)}
	embedder := &fakeQueryEmbedder{err: context.Canceled}
	r := New(source, embedder, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := r.Search(ctx, "q", 5, nil)
	assert.True(t, outcome.Degraded)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
}

func TestRetrieverSearchByKeywords(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(
		record("tagged", domain.DocTypeGeneral, "no mention in body", []string{"MAGERIT"}, 1, 0, 0),
		record("inline", domain.DocTypeGeneral, "the magerit methodology applies here", nil, 0.9, 0.1, 0),
		record("neither", domain.DocTypeGeneral, "unrelated content", nil, 0.8, 0.2, 0),
	)}
	r := New(source, &fakeQueryEmbedder{}, Config{SearchType: SearchTypeSimilarity, K: 10})

	outcome := r.SearchByKeywords(context.Background(), "q", []string{"magerit"}, 5)
	require.NoError(t, outcome.Err)
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, "no mention in body", outcome.Results[0].Content)
	assert.Equal(t, []string{"magerit"}, outcome.Results[0].MatchedKeywords)
	assert.Equal(t, 1, outcome.Results[0].RelevanceRank)
	assert.Equal(t, 2, outcome.Results[1].RelevanceRank)
}

func TestRetrieverSearchByKeywordsMaxResults(t *testing.T) {
	var records []index.EmbeddingRecord
	for i := 0; i < 6; i++ {
		records = append(records, record(fmt.Sprintf("doc%d", i), domain.DocTypeGeneral, "threat landscape", nil, 1, float32(i)*0.01, 0))
	}
	source := &fakeSource{snap: snapshotWith(records...)}
	r := New(source, &fakeQueryEmbedder{}, Config{SearchType: SearchTypeSimilarity, K: 12})

	outcome := r.SearchByKeywords(context.Background(), "q", []string{"threat"}, 2)
	assert.Len(t, outcome.Results, 2)
}

func TestRetrieverSearchByKeywordsDegraded(t *testing.T) {
	r := New(&fakeSource{}, &fakeQueryEmbedder{}, DefaultConfig())

	outcome := r.SearchByKeywords(context.Background(), "q", []string{"threat"}, 5)
	assert.True(t, outcome.Degraded)
	assert.ErrorIs(t, outcome.Err, domain.ErrNotReady)
}

func TestRetrieverStats(t *testing.T) {
	source := &fakeSource{snap: snapshotWith(
		record("a", domain.DocTypeGeneral, "a", nil, 1, 0, 0),
	)}
	r := New(source, &fakeQueryEmbedder{}, Config{SearchType: SearchTypeSimilarity, K: 1})

	r.Search(context.Background(), "threat modeling basics", 5, nil)
	r.Search(context.Background(), "threat catalog", 5, nil)

	stats := r.Stats()
	assert.Equal(t, 2, stats.TotalSearches)
	assert.InDelta(t, 1, stats.AvgResultsPerSearch, 1e-9)
	assert.Equal(t, 2, stats.TopSearchTerms["threat"])
	assert.Equal(t, 1, stats.TopSearchTerms["modeling"])
	// Short terms are not tracked.
	assert.NotContains(t, stats.TopSearchTerms, "q")

	r.ResetStats()
	stats = r.Stats()
	assert.Equal(t, 0, stats.TotalSearches)
	assert.Empty(t, stats.TopSearchTerms)
}

func TestConfigNormalized(t *testing.T) {
	cfg := Config{SearchType: "bogus", K: 0, FetchK: 0, LambdaMult: 3}.normalized()
	assert.Equal(t, SearchTypeMMR, cfg.SearchType)
	assert.Equal(t, 8, cfg.K)
	assert.Equal(t, 16, cfg.FetchK)
	assert.InDelta(t, 0.7, cfg.LambdaMult, 1e-9)

	kept := Config{SearchType: SearchTypeThreshold, K: 3, FetchK: 9, LambdaMult: 0.5, ScoreThreshold: 0.4}.normalized()
	assert.Equal(t, SearchTypeThreshold, kept.SearchType)
	assert.Equal(t, 3, kept.K)
	assert.Equal(t, 9, kept.FetchK)
}
