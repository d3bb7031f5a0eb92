package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atalaya-security/riskguard/internal/api"
	"github.com/atalaya-security/riskguard/internal/domain"
	"github.com/atalaya-security/riskguard/internal/knowledge"
	"github.com/atalaya-security/riskguard/internal/retrieve"
)

type KnowledgeService interface {
	SearchRelevantContext(ctx context.Context, query string, maxChunks int, documentTypes []string) (retrieve.Outcome, error)
	SearchByMethodology(ctx context.Context, query, methodology string, maxResults int) (retrieve.Outcome, error)
	HealthCheck(ctx context.Context) knowledge.Health
	Stats() knowledge.ServiceStats
	Reinitialize(ctx context.Context, forceReindex bool) error
	DocumentTypesAvailable() []string
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type SearchRequest struct {
	Query         string   `json:"query"`
	MaxResults    int      `json:"max_results"`
	DocumentTypes []string `json:"document_types"`
	Methodology   string   `json:"methodology"`
}

type SearchResponse struct {
	Results  []domain.SearchResult `json:"results"`
	Count    int                   `json:"count"`
	Degraded bool                  `json:"degraded"`
}

func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	for _, dt := range req.DocumentTypes {
		if !domain.IsValidDocumentType(domain.DocumentType(dt)) {
			api.Error(w, http.StatusBadRequest, "invalid document type: "+dt)
			return
		}
	}

	var (
		outcome retrieve.Outcome
		err     error
	)
	if req.Methodology != "" {
		outcome, err = h.svc.SearchByMethodology(r.Context(), req.Query, req.Methodology, req.MaxResults)
	} else {
		outcome, err = h.svc.SearchRelevantContext(r.Context(), req.Query, req.MaxResults, req.DocumentTypes)
	}
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := outcome.Results
	if results == nil {
		results = []domain.SearchResult{}
	}

	api.Success(w, http.StatusOK, SearchResponse{
		Results:  results,
		Count:    len(results),
		Degraded: outcome.Degraded,
	})
}

func (h *KnowledgeHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.svc.HealthCheck(r.Context())

	status := http.StatusOK
	if health.Status == knowledge.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	api.JSON(w, status, health)
}

func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.svc.Stats())
}

type ReindexRequest struct {
	Force bool `json:"force"`
}

type ReindexResponse struct {
	Status        string   `json:"status"`
	DocumentTypes []string `json:"document_types"`
}

func (h *KnowledgeHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	var req ReindexRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if err := h.svc.Reinitialize(r.Context(), req.Force); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ReindexResponse{
		Status:        "reindexed",
		DocumentTypes: h.svc.DocumentTypesAvailable(),
	})
}
