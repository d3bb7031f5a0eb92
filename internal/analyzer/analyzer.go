// Package analyzer runs AI-assisted incident analysis, enriched with
// context retrieved from the security knowledge base when it is available.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atalaya-security/riskguard/internal/domain"
	"github.com/atalaya-security/riskguard/internal/openai"
	"github.com/atalaya-security/riskguard/internal/retrieve"
	"github.com/atalaya-security/riskguard/internal/telemetry"
)

// Completer runs a chat completion.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ContextProvider serves knowledge-base context for analysis prompts.
type ContextProvider interface {
	SearchRelevantContext(ctx context.Context, query string, maxChunks int, documentTypes []string) (retrieve.Outcome, error)
	FormatContextForPrompt(results []domain.SearchResult) string
}

// Request is an incident submitted for analysis.
type Request struct {
	Description  string `json:"description"`
	AnalysisType string `json:"analysis_type,omitempty"`
}

// Verdict is the structured result extracted from the model completion.
type Verdict struct {
	RiskLevel       string   `json:"risk_level"`
	Vulnerabilities []string `json:"vulnerabilities"`
	Impacts         []string `json:"impacts"`
	Controls        []string `json:"controls"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Analysis is the full analysis output returned to callers.
type Analysis struct {
	ID           string    `json:"id"`
	AnalysisType string    `json:"analysis_type"`
	Verdict      Verdict   `json:"verdict"`
	ContextUsed  bool      `json:"context_used"`
	Degraded     bool      `json:"degraded"`
	Timestamp    time.Time `json:"timestamp"`
}

// TypeInfo describes one available analysis configuration.
type TypeInfo struct {
	DetailLevel string `json:"detail_level"`
	MaxChunks   int    `json:"max_chunks"`
}

// analysisTypes maps each supported type to its retrieval depth.
var analysisTypes = map[string]TypeInfo{
	"quick":    {DetailLevel: "basic", MaxChunks: 2},
	"standard": {DetailLevel: "detailed", MaxChunks: 5},
	"expert":   {DetailLevel: "expert", MaxChunks: 8},
}

const defaultAnalysisType = "standard"

// Service analyzes incident descriptions with knowledge-base enrichment.
type Service struct {
	chat      Completer
	knowledge ContextProvider
}

// NewService creates the analysis service. knowledge may be nil, in which
// case every analysis runs without context enrichment.
func NewService(chat Completer, knowledge ContextProvider) *Service {
	return &Service{chat: chat, knowledge: knowledge}
}

// AnalysisTypes lists the supported analysis configurations.
func (s *Service) AnalysisTypes() map[string]TypeInfo {
	out := make(map[string]TypeInfo, len(analysisTypes))
	for k, v := range analysisTypes {
		out[k] = v
	}
	return out
}

// DefaultAnalysisType returns the type used when a request omits one.
func (s *Service) DefaultAnalysisType() string {
	return defaultAnalysisType
}

// Analyze runs the incident through the completion model. Retrieval
// failures degrade to analysis without context; they never fail the
// analysis itself.
func (s *Service) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "incident description cannot be empty")
	}
	if s.chat == nil {
		return nil, domain.ErrMissingAPIKey
	}

	analysisType := req.AnalysisType
	info, ok := analysisTypes[analysisType]
	if !ok {
		analysisType = defaultAnalysisType
		info = analysisTypes[analysisType]
	}

	ctx, span := telemetry.StartSpan(ctx, "AnalyzerService.Analyze", telemetry.SpanAttributes{
		AnalysisType: analysisType,
		Operation:    "analyze",
	})
	defer span.End()

	contextBlock, degraded := s.retrieveContext(ctx, description, info.MaxChunks)

	content, err := s.chat.Complete(ctx, systemPrompt(info.DetailLevel), userPrompt(description, contextBlock))
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "completion failed", err)
	}

	verdict, parseErr := parseVerdict(content)
	if parseErr != nil {
		log.Printf("analyzer: completion did not parse, using fallback verdict: %v", parseErr)
		verdict = fallbackVerdict()
	}

	return &Analysis{
		ID:           uuid.NewString(),
		AnalysisType: analysisType,
		Verdict:      verdict,
		ContextUsed:  contextBlock != "",
		Degraded:     degraded,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// retrieveContext fetches and formats knowledge context. A NotReady or
// degraded retrieval yields no context and marks the analysis degraded.
func (s *Service) retrieveContext(ctx context.Context, query string, maxChunks int) (string, bool) {
	if s.knowledge == nil {
		return "", false
	}

	outcome, err := s.knowledge.SearchRelevantContext(ctx, query, maxChunks, nil)
	if err != nil {
		if !errors.Is(err, domain.ErrNotReady) {
			log.Printf("analyzer: context retrieval failed: %v", err)
		}
		return "", true
	}
	if outcome.Degraded {
		return "", true
	}
	return s.knowledge.FormatContextForPrompt(outcome.Results), false
}

func parseVerdict(content string) (Verdict, error) {
	raw, err := openai.ExtractJSON(content)
	if err != nil {
		return Verdict{}, err
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return Verdict{}, err
	}
	if len(verdict.Vulnerabilities) == 0 && len(verdict.Impacts) == 0 && len(verdict.Controls) == 0 {
		return Verdict{}, errors.New("verdict missing required sections")
	}
	if verdict.RiskLevel == "" {
		verdict.RiskLevel = "unknown"
	}
	return verdict, nil
}

// fallbackVerdict is returned when the model output cannot be parsed, so
// the caller still receives a reviewable structure.
func fallbackVerdict() Verdict {
	return Verdict{
		RiskLevel:       "unknown",
		Vulnerabilities: []string{"The incident requires manual review; automated extraction failed."},
		Impacts:         []string{"Impact could not be determined automatically."},
		Controls:        []string{"Escalate to a security analyst for manual assessment."},
	}
}
