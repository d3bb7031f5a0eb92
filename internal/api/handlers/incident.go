package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atalaya-security/riskguard/internal/analyzer"
	"github.com/atalaya-security/riskguard/internal/api"
)

type AnalysisService interface {
	Analyze(ctx context.Context, req analyzer.Request) (*analyzer.Analysis, error)
	AnalysisTypes() map[string]analyzer.TypeInfo
	DefaultAnalysisType() string
}

type IncidentHandler struct {
	svc AnalysisService
}

func NewIncidentHandler(svc AnalysisService) *IncidentHandler {
	return &IncidentHandler{svc: svc}
}

type AnalyzeRequest struct {
	Description  string `json:"description"`
	AnalysisType string `json:"analysis_type"`
}

func (h *IncidentHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Description == "" {
		api.Error(w, http.StatusBadRequest, "description is required")
		return
	}

	analysis, err := h.svc.Analyze(r.Context(), analyzer.Request{
		Description:  req.Description,
		AnalysisType: req.AnalysisType,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, analysis)
}

type AnalysisTypesResponse struct {
	Types   map[string]analyzer.TypeInfo `json:"types"`
	Default string                       `json:"default"`
}

func (h *IncidentHandler) AnalysisTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, AnalysisTypesResponse{
		Types:   h.svc.AnalysisTypes(),
		Default: h.svc.DefaultAnalysisType(),
	})
}
