package retrieve

import (
	"sort"
	"strings"
	"sync"
)

const (
	minTermLength = 3
	topTermsLimit = 10
)

// searchStats tracks process-lifetime retrieval counters.
type searchStats struct {
	mu            sync.Mutex
	totalSearches int
	avgResults    float64
	termFreq      map[string]int
}

func newSearchStats() *searchStats {
	return &searchStats{termFreq: make(map[string]int)}
}

func (s *searchStats) record(query string, resultCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalSearches++
	s.avgResults += (float64(resultCount) - s.avgResults) / float64(s.totalSearches)

	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) > minTermLength {
			s.termFreq[word]++
		}
	}
}

func (s *searchStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSearches = 0
	s.avgResults = 0
	s.termFreq = make(map[string]int)
}

// RetrieverStats is a read-only view of the retrieval counters.
type RetrieverStats struct {
	TotalSearches       int            `json:"total_searches"`
	AvgResultsPerSearch float64        `json:"avg_results_per_search"`
	TopSearchTerms      map[string]int `json:"top_search_terms"`
}

func (s *searchStats) snapshot() RetrieverStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	type termCount struct {
		term  string
		count int
	}
	terms := make([]termCount, 0, len(s.termFreq))
	for term, count := range s.termFreq {
		terms = append(terms, termCount{term, count})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].term < terms[j].term
	})
	if len(terms) > topTermsLimit {
		terms = terms[:topTermsLimit]
	}

	top := make(map[string]int, len(terms))
	for _, tc := range terms {
		top[tc.term] = tc.count
	}

	return RetrieverStats{
		TotalSearches:       s.totalSearches,
		AvgResultsPerSearch: s.avgResults,
		TopSearchTerms:      top,
	}
}
