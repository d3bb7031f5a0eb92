package retrieve

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/atalaya-security/riskguard/internal/domain"
	"github.com/atalaya-security/riskguard/internal/index"
)

// SearchType selects the retrieval strategy.
type SearchType string

const (
	SearchTypeSimilarity SearchType = "similarity"
	SearchTypeThreshold  SearchType = "similarity_score_threshold"
	SearchTypeMMR        SearchType = "mmr"
)

// Config tunes the retrieval strategy.
type Config struct {
	SearchType     SearchType
	K              int
	FetchK         int
	LambdaMult     float64
	ScoreThreshold float64
}

// DefaultConfig returns the retrieval parameters tuned for security
// context lookups: MMR balancing relevance against diversity.
func DefaultConfig() Config {
	return Config{
		SearchType:     SearchTypeMMR,
		K:              8,
		FetchK:         16,
		LambdaMult:     0.7,
		ScoreThreshold: 0.3,
	}
}

func (c Config) normalized() Config {
	switch c.SearchType {
	case SearchTypeSimilarity, SearchTypeThreshold, SearchTypeMMR:
	default:
		c.SearchType = SearchTypeMMR
	}
	if c.K <= 0 {
		c.K = 8
	}
	if c.FetchK < c.K {
		c.FetchK = 2 * c.K
	}
	if c.LambdaMult < 0 || c.LambdaMult > 1 {
		c.LambdaMult = 0.7
	}
	return c
}

// QueryEmbedder embeds query strings.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SnapshotSource serves the current index snapshot; nil means no index.
type SnapshotSource interface {
	Snapshot() *index.Snapshot
}

// Outcome distinguishes empty success from degraded-due-to-error. A
// degraded outcome carries the triggering error but still yields an empty
// result list so callers can proceed without context.
type Outcome struct {
	Results  []domain.SearchResult
	Degraded bool
	Err      error
}

// Retriever performs diversity-aware similarity search against an index
// snapshot.
type Retriever struct {
	source   SnapshotSource
	embedder QueryEmbedder

	mu  sync.RWMutex
	cfg Config

	stats *searchStats
}

// New binds a retriever to a snapshot source and a query embedder.
func New(source SnapshotSource, embedder QueryEmbedder, cfg Config) *Retriever {
	return &Retriever{
		source:   source,
		embedder: embedder,
		cfg:      cfg.normalized(),
		stats:    newSearchStats(),
	}
}

// Configure replaces the retrieval parameters.
func (r *Retriever) Configure(cfg Config) {
	r.mu.Lock()
	r.cfg = cfg.normalized()
	r.mu.Unlock()
}

func (r *Retriever) config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Search embeds the query, runs the configured strategy, applies the
// metadata filter, and truncates to maxResults. Provider failures degrade
// to an empty result list rather than propagating; the outcome records the
// cause.
func (r *Retriever) Search(ctx context.Context, query string, maxResults int, filter domain.Filter) Outcome {
	if maxResults <= 0 {
		maxResults = 5
	}

	outcome := r.search(ctx, query, maxResults, filter)
	r.stats.record(query, len(outcome.Results))
	return outcome
}

func (r *Retriever) search(ctx context.Context, query string, maxResults int, filter domain.Filter) Outcome {
	snap := r.source.Snapshot()
	if snap == nil {
		return Outcome{Degraded: true, Err: domain.ErrNotReady}
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			// Abandoned request: discard, never return partial results.
			return Outcome{Degraded: true, Err: ctx.Err()}
		}
		log.Printf("retrieve: query embedding failed, degrading to no context: %v", err)
		return Outcome{
			Degraded: true,
			Err:      domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalUnavailable, "embedding provider unavailable", err),
		}
	}

	cfg := r.config()
	ranked := rankCandidates(queryVec, snap.Records)

	var picked []candidate
	switch cfg.SearchType {
	case SearchTypeSimilarity:
		picked = headOf(ranked, cfg.K)
	case SearchTypeThreshold:
		for _, cand := range ranked {
			if cand.score < cfg.ScoreThreshold {
				break
			}
			picked = append(picked, cand)
			if len(picked) == cfg.K {
				break
			}
		}
	case SearchTypeMMR:
		picked = selectMMR(headOf(ranked, cfg.FetchK), cfg.K, cfg.LambdaMult)
	}

	results := make([]domain.SearchResult, 0, maxResults)
	for _, cand := range picked {
		if filter != nil && !filter.Matches(cand.rec.Metadata) {
			continue
		}
		results = append(results, domain.SearchResult{
			Content:       cand.rec.Content,
			Metadata:      cand.rec.Metadata,
			RelevanceRank: len(results) + 1,
			Score:         cand.score,
		})
		if len(results) == maxResults {
			break
		}
	}
	return Outcome{Results: results}
}

// SearchByKeywords runs a similarity search with an enlarged candidate set
// and keeps only results whose keyword list or raw text contains at least
// one required keyword, attaching the matched subset.
func (r *Retriever) SearchByKeywords(ctx context.Context, query string, requiredKeywords []string, maxResults int) Outcome {
	if maxResults <= 0 {
		maxResults = 5
	}

	initial := r.search(ctx, query, 2*maxResults, nil)
	if initial.Degraded {
		r.stats.record(query, 0)
		return initial
	}

	var filtered []domain.SearchResult
	for _, res := range initial.Results {
		matched := matchKeywords(res, requiredKeywords)
		if len(matched) == 0 {
			continue
		}
		res.MatchedKeywords = matched
		res.RelevanceRank = len(filtered) + 1
		filtered = append(filtered, res)
		if len(filtered) == maxResults {
			break
		}
	}

	r.stats.record(query, len(filtered))
	return Outcome{Results: filtered}
}

// Stats returns a read-only view of the retrieval counters.
func (r *Retriever) Stats() RetrieverStats {
	return r.stats.snapshot()
}

// ResetStats clears the retrieval counters.
func (r *Retriever) ResetStats() {
	r.stats.reset()
}

func matchKeywords(res domain.SearchResult, required []string) []string {
	content := strings.ToLower(res.Content)

	var matched []string
	for _, kw := range required {
		needle := strings.ToLower(kw)
		found := strings.Contains(content, needle)
		if !found {
			for _, have := range res.Metadata.Keywords {
				if strings.EqualFold(have, needle) {
					found = true
					break
				}
			}
		}
		if found {
			matched = append(matched, kw)
		}
	}
	return matched
}

func headOf(cands []candidate, n int) []candidate {
	if n > len(cands) {
		n = len(cands)
	}
	return cands[:n]
}
