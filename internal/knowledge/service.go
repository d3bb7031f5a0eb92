// Package knowledge orchestrates the retrieval subsystem: document
// ingestion, the vector index, and the retriever, behind a single search
// contract.
package knowledge

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/atalaya-security/riskguard/internal/domain"
	"github.com/atalaya-security/riskguard/internal/index"
	"github.com/atalaya-security/riskguard/internal/ingest"
	"github.com/atalaya-security/riskguard/internal/retrieve"
	"github.com/atalaya-security/riskguard/internal/telemetry"
)

// State is the orchestrator lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateDegraded      State = "degraded"
)

// Options tunes the orchestrated components.
type Options struct {
	SplitConfig     ingest.SplitConfig
	RetrieverConfig retrieve.Config
}

// DefaultOptions returns the component defaults.
func DefaultOptions() Options {
	return Options{
		SplitConfig:     ingest.DefaultSplitConfig(),
		RetrieverConfig: retrieve.DefaultConfig(),
	}
}

// Embedder is the full embedding surface the orchestrator wires together.
type Embedder interface {
	index.Embedder
	retrieve.QueryEmbedder
}

// Service owns the lifecycle of the retrieval subsystem. It is an
// explicitly constructed instance passed to whatever serves requests;
// there is no package-level singleton.
type Service struct {
	loader   *ingest.Loader
	idx      *index.Index
	embedder Embedder
	opts     Options

	mu        sync.RWMutex
	state     State
	lastErr   error
	retriever *retrieve.Retriever

	stats serviceStats
}

type serviceStats struct {
	mu              sync.Mutex
	documentsLoaded int
	chunksCreated   int
	initSeconds     float64
	retrievalCalls  int
	lastSearch      *LastSearch
}

// LastSearch records the most recent query for diagnostics.
type LastSearch struct {
	Query        string    `json:"query"`
	ResultsCount int       `json:"results_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// New constructs the orchestrator. Nothing is initialized until
// Initialize is called.
func New(loader *ingest.Loader, idx *index.Index, embedder Embedder, opts Options) *Service {
	return &Service{
		loader:   loader,
		idx:      idx,
		embedder: embedder,
		opts:     opts,
		state:    StateUninitialized,
	}
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error that aborted the last initialization, if any.
func (s *Service) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Initialize bootstraps the subsystem in dependency order: embedder,
// snapshot (loaded or built), then the retriever. A failed first
// initialization leaves the service Uninitialized with the triggering
// error preserved. A failed re-initialization of a service that was
// already serving keeps the previous state and retriever, so the last
// good snapshot stays searchable.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateInitializing {
		s.mu.Unlock()
		return domain.NewDomainError(domain.ErrCodeInternalError, "initialization already in progress")
	}
	prevState := s.state
	prevRetriever := s.retriever
	s.state = StateInitializing
	s.lastErr = nil
	s.mu.Unlock()

	start := time.Now()
	err := s.initialize(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		if prevState == StateReady || prevState == StateDegraded {
			s.state = prevState
			s.retriever = prevRetriever
			log.Printf("knowledge: rebuild failed, keeping previous index: %v", err)
			return err
		}
		s.state = StateUninitialized
		s.retriever = nil
		log.Printf("knowledge: initialization failed: %v", err)
		return err
	}

	s.state = StateReady
	elapsed := time.Since(start).Seconds()
	s.stats.mu.Lock()
	s.stats.initSeconds = elapsed
	s.stats.mu.Unlock()
	log.Printf("knowledge: ready in %.2fs", elapsed)
	return nil
}

func (s *Service) initialize(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Initialize", telemetry.SpanAttributes{
		Collection: s.idx.Collection(),
		Operation:  "initialize",
	})
	defer span.End()

	if s.embedder == nil {
		return domain.ErrMissingAPIKey
	}

	snap, err := s.idx.Load(ctx)
	if err != nil {
		return err
	}

	if snap == nil || s.idx.ShouldRebuild(s.loader.DocsDir()) {
		if err := s.rebuild(ctx); err != nil {
			return err
		}
	} else {
		log.Printf("knowledge: reusing persisted index (%d records)", len(snap.Records))
		s.stats.mu.Lock()
		s.stats.chunksCreated = len(snap.Records)
		s.stats.mu.Unlock()
	}

	retriever := retrieve.New(s.idx, s.embedder, s.opts.RetrieverConfig)

	s.mu.Lock()
	s.retriever = retriever
	s.mu.Unlock()
	return nil
}

func (s *Service) rebuild(ctx context.Context) error {
	documents, err := s.loader.LoadAll(ctx)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		return domain.ErrNoDocuments
	}

	chunks := ingest.SplitDocuments(documents, s.opts.SplitConfig)
	if len(chunks) == 0 {
		return domain.ErrNoChunks
	}

	if _, err := s.idx.Build(ctx, chunks); err != nil {
		return err
	}

	s.stats.mu.Lock()
	s.stats.documentsLoaded = len(documents)
	s.stats.chunksCreated = len(chunks)
	s.stats.mu.Unlock()
	return nil
}

func (s *Service) boundRetriever() (*retrieve.Retriever, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady && s.state != StateDegraded {
		return nil, domain.ErrNotReady
	}
	return s.retriever, nil
}

// SearchRelevantContext retrieves ranked context for a query, optionally
// restricted to specific document types. Callers receive a distinct
// NotReady error before initialization; after that, provider failures
// degrade to an empty outcome rather than an error.
func (s *Service) SearchRelevantContext(ctx context.Context, query string, maxChunks int, documentTypes []string) (retrieve.Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.SearchRelevantContext", telemetry.SpanAttributes{
		Collection: s.idx.Collection(),
		Query:      query,
		Operation:  "search",
	})
	defer span.End()

	retriever, err := s.boundRetriever()
	if err != nil {
		return retrieve.Outcome{}, err
	}

	outcome := retriever.Search(ctx, query, maxChunks, domain.DocumentTypeFilter(documentTypes...))
	s.recordSearch(query, len(outcome.Results))
	return outcome, nil
}

// methodologyKeywords maps a framework name to the terms that anchor its
// content in the corpus.
var methodologyKeywords = map[string][]string{
	"MAGERIT":  {"magerit", "asset", "threat", "vulnerability", "impact", "risk"},
	"OCTAVE":   {"octave", "asset", "threat", "vulnerability"},
	"ISO27001": {"iso", "27001", "isms", "control", "annex"},
	"NIST":     {"nist", "framework", "cybersecurity", "function"},
}

// SearchByMethodology retrieves context scoped to one security framework,
// using keyword-assisted re-ranking.
func (s *Service) SearchByMethodology(ctx context.Context, query, methodology string, maxResults int) (retrieve.Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.SearchByMethodology", telemetry.SpanAttributes{
		Collection: s.idx.Collection(),
		Query:      query,
		Operation:  "methodology_search",
	})
	defer span.End()

	retriever, err := s.boundRetriever()
	if err != nil {
		return retrieve.Outcome{}, err
	}

	keywords, ok := methodologyKeywords[strings.ToUpper(methodology)]
	if !ok {
		keywords = []string{strings.ToLower(methodology)}
	}

	outcome := retriever.SearchByKeywords(ctx, query+" "+methodology, keywords, maxResults)
	s.recordSearch(query, len(outcome.Results))
	return outcome, nil
}

// FormatContextForPrompt renders results as the delimited knowledge block.
func (s *Service) FormatContextForPrompt(results []domain.SearchResult) string {
	return retrieve.FormatForPrompt(results)
}

// DocumentTypesAvailable lists the document types present in the index.
func (s *Service) DocumentTypesAvailable() []string {
	stats := s.idx.Stats()
	types := make([]string, 0, len(stats.DocumentTypes))
	for t := range stats.DocumentTypes {
		types = append(types, string(t))
	}
	return types
}

// NeedsReindex reports whether source documents changed after the current
// snapshot was built. Used by the background reindex worker.
func (s *Service) NeedsReindex() bool {
	if s.State() != StateReady {
		return false
	}
	return s.idx.ShouldRebuild(s.loader.DocsDir())
}

// Cleanup drops the persisted index and returns the service to
// Uninitialized, resetting all statistics.
func (s *Service) Cleanup(ctx context.Context) error {
	if err := s.idx.Drop(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = StateUninitialized
	s.lastErr = nil
	if s.retriever != nil {
		s.retriever.ResetStats()
	}
	s.retriever = nil
	s.mu.Unlock()

	s.stats.mu.Lock()
	s.stats.documentsLoaded = 0
	s.stats.chunksCreated = 0
	s.stats.initSeconds = 0
	s.stats.retrievalCalls = 0
	s.stats.lastSearch = nil
	s.stats.mu.Unlock()

	log.Printf("knowledge: cleaned up")
	return nil
}

// Reinitialize rebuilds the subsystem, optionally dropping the persisted
// index first to force a full reindex.
func (s *Service) Reinitialize(ctx context.Context, forceReindex bool) error {
	if forceReindex {
		if err := s.Cleanup(ctx); err != nil {
			return err
		}
	}
	return s.Initialize(ctx)
}

func (s *Service) recordSearch(query string, resultCount int) {
	truncated := query
	if runes := []rune(query); len(runes) > 50 {
		truncated = string(runes[:50])
	}
	s.stats.mu.Lock()
	s.stats.retrievalCalls++
	s.stats.lastSearch = &LastSearch{
		Query:        truncated,
		ResultsCount: resultCount,
		Timestamp:    time.Now().UTC(),
	}
	s.stats.mu.Unlock()
}
