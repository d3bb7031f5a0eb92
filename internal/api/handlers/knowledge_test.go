package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atalaya-security/riskguard/internal/domain"
	"github.com/atalaya-security/riskguard/internal/knowledge"
	"github.com/atalaya-security/riskguard/internal/retrieve"
)

// MockKnowledgeService mocks the knowledge orchestrator
type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) SearchRelevantContext(ctx context.Context, query string, maxChunks int, documentTypes []string) (retrieve.Outcome, error) {
	args := m.Called(ctx, query, maxChunks, documentTypes)
	return args.Get(0).(retrieve.Outcome), args.Error(1)
}

func (m *MockKnowledgeService) SearchByMethodology(ctx context.Context, query, methodology string, maxResults int) (retrieve.Outcome, error) {
	args := m.Called(ctx, query, methodology, maxResults)
	return args.Get(0).(retrieve.Outcome), args.Error(1)
}

func (m *MockKnowledgeService) HealthCheck(ctx context.Context) knowledge.Health {
	args := m.Called(ctx)
	return args.Get(0).(knowledge.Health)
}

func (m *MockKnowledgeService) Stats() knowledge.ServiceStats {
	args := m.Called()
	return args.Get(0).(knowledge.ServiceStats)
}

func (m *MockKnowledgeService) Reinitialize(ctx context.Context, forceReindex bool) error {
	args := m.Called(ctx, forceReindex)
	return args.Error(0)
}

func (m *MockKnowledgeService) DocumentTypesAvailable() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

func searchHit(content string) domain.SearchResult {
	return domain.SearchResult{
		Content:       content,
		Metadata:      domain.ChunkMetadata{Filename: "doc.txt", DocumentType: domain.DocTypeGeneral},
		RelevanceRank: 1,
		Score:         0.9,
	}
}

func TestKnowledgeSearch(t *testing.T) {
	svc := new(MockKnowledgeService)
	outcome := retrieve.Outcome{Results: []domain.SearchResult{searchHit("threat guidance")}}
	svc.On("SearchRelevantContext", mock.Anything, "threats", 5, []string{"general"}).Return(outcome, nil).Once()

	body := bytes.NewBufferString(`{"query": "threats", "max_results": 5, "document_types": ["general"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rag/search", body)
	rec := httptest.NewRecorder()

	NewKnowledgeHandler(svc).Search(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got SearchResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Equal(t, 1, got.Count)
	assert.False(t, got.Degraded)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "threat guidance", got.Results[0].Content)
	svc.AssertExpectations(t)
}

func TestKnowledgeSearchByMethodology(t *testing.T) {
	svc := new(MockKnowledgeService)
	outcome := retrieve.Outcome{Results: []domain.SearchResult{searchHit("magerit guidance")}}
	svc.On("SearchByMethodology", mock.Anything, "asset valuation", "MAGERIT", 3).Return(outcome, nil).Once()

	body := bytes.NewBufferString(`{"query": "asset valuation", "methodology": "MAGERIT", "max_results": 3}`)
	req := httptest.NewRequest(http.MethodPost, "/api/rag/search", body)
	rec := httptest.NewRecorder()

	NewKnowledgeHandler(svc).Search(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
	svc.AssertNotCalled(t, "SearchRelevantContext")
}

func TestKnowledgeSearchValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid body", "{not json", "invalid request body"},
		{"missing query", `{"max_results": 5}`, "query is required"},
		{"bad document type", `{"query": "x", "document_types": ["bogus"]}`, "invalid document type: bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/rag/search", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			NewKnowledgeHandler(new(MockKnowledgeService)).Search(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeEnvelope(t, rec).Error)
		})
	}
}

func TestKnowledgeSearchNotReady(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("SearchRelevantContext", mock.Anything, "threats", 0, mock.Anything).Return(retrieve.Outcome{}, domain.ErrNotReady).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/rag/search", bytes.NewBufferString(`{"query": "threats"}`))
	rec := httptest.NewRecorder()

	NewKnowledgeHandler(svc).Search(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestKnowledgeSearchDegradedOutcome(t *testing.T) {
	svc := new(MockKnowledgeService)
	outcome := retrieve.Outcome{Degraded: true, Err: domain.ErrRetrievalUnavailable}
	svc.On("SearchRelevantContext", mock.Anything, "threats", 0, mock.Anything).Return(outcome, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/rag/search", bytes.NewBufferString(`{"query": "threats"}`))
	rec := httptest.NewRecorder()

	NewKnowledgeHandler(svc).Search(rec, req)

	// Degraded searches still answer 200 with an empty result list.
	assert.Equal(t, http.StatusOK, rec.Code)
	var got SearchResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.True(t, got.Degraded)
	assert.Equal(t, 0, got.Count)
	assert.NotNil(t, got.Results)
}

func TestKnowledgeHealth(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		wantStatus int
	}{
		{"healthy", knowledge.StatusHealthy, http.StatusOK},
		{"degraded", knowledge.StatusDegraded, http.StatusOK},
		{"unhealthy", knowledge.StatusUnhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockKnowledgeService)
			svc.On("HealthCheck", mock.Anything).Return(knowledge.Health{
				Status:       tt.status,
				Components:   map[string]bool{"initialized": tt.status == knowledge.StatusHealthy},
				TestSearchOK: tt.status == knowledge.StatusHealthy,
			}).Once()

			req := httptest.NewRequest(http.MethodGet, "/api/rag/health", nil)
			rec := httptest.NewRecorder()

			NewKnowledgeHandler(svc).Health(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var got knowledge.Health
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.status, got.Status)
		})
	}
}

func TestKnowledgeStats(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("Stats").Return(knowledge.ServiceStats{
		State:          knowledge.StateReady,
		ChunksCreated:  42,
		RetrievalCalls: 7,
	}).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/rag/stats", nil)
	rec := httptest.NewRecorder()

	NewKnowledgeHandler(svc).Stats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got knowledge.ServiceStats
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Equal(t, knowledge.StateReady, got.State)
	assert.Equal(t, 42, got.ChunksCreated)
}

func TestKnowledgeReindex(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("Reinitialize", mock.Anything, true).Return(nil).Once()
	svc.On("DocumentTypesAvailable").Return([]string{"general"}).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/rag/reindex", bytes.NewBufferString(`{"force": true}`))
	rec := httptest.NewRecorder()

	NewKnowledgeHandler(svc).Reindex(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got ReindexResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &got))
	assert.Equal(t, "reindexed", got.Status)
	assert.Equal(t, []string{"general"}, got.DocumentTypes)
	svc.AssertExpectations(t)
}

func TestKnowledgeReindexEmptyBody(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("Reinitialize", mock.Anything, false).Return(nil).Once()
	svc.On("DocumentTypesAvailable").Return([]string{}).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/rag/reindex", nil)
	rec := httptest.NewRecorder()

	NewKnowledgeHandler(svc).Reindex(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestKnowledgeReindexFailure(t *testing.T) {
	svc := new(MockKnowledgeService)
	svc.On("Reinitialize", mock.Anything, false).Return(domain.ErrNoDocuments).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/rag/reindex", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	NewKnowledgeHandler(svc).Reindex(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	svc.AssertNotCalled(t, "DocumentTypesAvailable")
}
