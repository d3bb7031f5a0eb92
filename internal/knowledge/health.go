package knowledge

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/atalaya-security/riskguard/internal/index"
	"github.com/atalaya-security/riskguard/internal/retrieve"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Health is the aggregate health report.
type Health struct {
	Status       string          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
	Components   map[string]bool `json:"components"`
	TestSearchOK bool            `json:"test_search_successful"`
	Error        string          `json:"error,omitempty"`
}

// HealthCheck probes every component and runs one live test query. Status
// is degraded when any component check fails or the test query returns no
// results; unhealthy only when the check itself errors. A Ready service
// that degrades transitions to the Degraded state.
func (s *Service) HealthCheck(ctx context.Context) Health {
	health := Health{
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]bool),
	}

	defer func() {
		if r := recover(); r != nil {
			health.Status = StatusUnhealthy
			health.Error = fmt.Sprint(r)
			log.Printf("knowledge: health check panicked: %v", r)
		}
	}()

	state := s.State()
	initialized := state == StateReady || state == StateDegraded

	_, docsErr := os.Stat(s.loader.DocsDir())

	health.Components["initialized"] = initialized
	health.Components["docs_accessible"] = docsErr == nil
	health.Components["embedder"] = s.embedder != nil
	health.Components["vector_store"] = s.idx.Snapshot() != nil
	health.Components["snapshot_persisted"] = s.idx.SnapshotPersisted(ctx)

	s.mu.RLock()
	health.Components["retriever"] = s.retriever != nil
	s.mu.RUnlock()

	if initialized {
		outcome, err := s.SearchRelevantContext(ctx, "test", 1, nil)
		health.TestSearchOK = err == nil && !outcome.Degraded && len(outcome.Results) > 0
	}

	health.Status = StatusHealthy
	for _, ok := range health.Components {
		if !ok {
			health.Status = StatusDegraded
			break
		}
	}
	if !health.TestSearchOK {
		health.Status = StatusDegraded
	}

	if health.Status == StatusDegraded && state == StateReady {
		s.mu.Lock()
		s.state = StateDegraded
		s.mu.Unlock()
		log.Printf("knowledge: health check degraded the service")
	}

	return health
}

// ServiceStats merges orchestrator, index, and retriever statistics into
// one read-only snapshot.
type ServiceStats struct {
	State              State                   `json:"state"`
	DocumentsLoaded    int                     `json:"documents_loaded"`
	ChunksCreated      int                     `json:"chunks_created"`
	InitializationSecs float64                 `json:"initialization_seconds"`
	RetrievalCalls     int                     `json:"retrieval_calls"`
	LastSearch         *LastSearch             `json:"last_search,omitempty"`
	Index              index.Stats             `json:"index"`
	Retriever          retrieve.RetrieverStats `json:"retriever"`
}

// Stats returns the merged statistics snapshot.
func (s *Service) Stats() ServiceStats {
	s.stats.mu.Lock()
	stats := ServiceStats{
		State:              s.State(),
		DocumentsLoaded:    s.stats.documentsLoaded,
		ChunksCreated:      s.stats.chunksCreated,
		InitializationSecs: s.stats.initSeconds,
		RetrievalCalls:     s.stats.retrievalCalls,
		LastSearch:         s.stats.lastSearch,
	}
	s.stats.mu.Unlock()

	stats.Index = s.idx.Stats()

	s.mu.RLock()
	if s.retriever != nil {
		stats.Retriever = s.retriever.Stats()
	}
	s.mu.RUnlock()

	return stats
}
