package openai

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingAPI mocks the provider surface
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func newMockedClient(api EmbeddingAPI, batchSize int) *Client {
	return &Client{
		api:        api,
		model:      "test-model",
		dimensions: 3,
		batchSize:  batchSize,
		maxRetries: 2,
		timeout:    time.Second,
	}
}

func vectorsFor(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	client := newMockedClient(new(MockEmbeddingAPI), 10)

	_, err := client.EmbedTexts(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedTextsSingleBatch(t *testing.T) {
	api := new(MockEmbeddingAPI)
	texts := []string{"one", "two"}
	api.On("CreateEmbeddings", mock.Anything, texts).Return(vectorsFor(texts), nil).Once()

	client := newMockedClient(api, 10)
	vectors, err := client.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	api.AssertExpectations(t)
}

func TestEmbedTextsSplitsBatches(t *testing.T) {
	api := new(MockEmbeddingAPI)
	api.On("CreateEmbeddings", mock.Anything, []string{"a", "b"}).Return(vectorsFor([]string{"a", "b"}), nil).Once()
	api.On("CreateEmbeddings", mock.Anything, []string{"c"}).Return(vectorsFor([]string{"c"}), nil).Once()

	client := newMockedClient(api, 2)
	vectors, err := client.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	api.AssertExpectations(t)
}

func TestEmbedTextsWrongDimensions(t *testing.T) {
	api := new(MockEmbeddingAPI)
	api.On("CreateEmbeddings", mock.Anything, mock.Anything).Return([][]float32{{1, 2}}, nil).Once()

	client := newMockedClient(api, 10)
	_, err := client.EmbedTexts(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestEmbedTextsRetriesTransientError(t *testing.T) {
	api := new(MockEmbeddingAPI)
	rateLimited := &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}
	api.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(nil, rateLimited).Once()
	api.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(vectorsFor([]string{"a"}), nil).Once()

	client := newMockedClient(api, 10)
	vectors, err := client.EmbedTexts(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Len(t, vectors, 1)
	api.AssertExpectations(t)
}

func TestEmbedTextsDoesNotRetryPermanentError(t *testing.T) {
	api := new(MockEmbeddingAPI)
	badRequest := &openai.APIError{HTTPStatusCode: http.StatusBadRequest}
	api.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(nil, badRequest).Once()

	client := newMockedClient(api, 10)
	_, err := client.EmbedTexts(context.Background(), []string{"a"})
	require.Error(t, err)
	api.AssertNumberOfCalls(t, "CreateEmbeddings", 1)
}

func TestEmbedTextsExhaustsRetries(t *testing.T) {
	api := new(MockEmbeddingAPI)
	unavailable := &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable}
	api.On("CreateEmbeddings", mock.Anything, mock.Anything).Return(nil, unavailable).Twice()

	client := newMockedClient(api, 10)
	_, err := client.EmbedTexts(context.Background(), []string{"a"})
	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	api.AssertNumberOfCalls(t, "CreateEmbeddings", 2)
}

func TestEmbedQuery(t *testing.T) {
	api := new(MockEmbeddingAPI)
	api.On("CreateEmbeddings", mock.Anything, []string{"query text"}).Return(vectorsFor([]string{"query text"}), nil).Once()

	client := newMockedClient(api, 10)
	vec, err := client.EmbedQuery(context.Background(), "query text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)

	_, err = client.EmbedQuery(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestNewClientWithConfigDefaults(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "sk-test"})
	assert.Equal(t, string(DefaultEmbeddingModel), client.Model())
	assert.Equal(t, DefaultEmbeddingDimensions, client.Dimensions())
	assert.Equal(t, DefaultBatchSize, client.batchSize)
	assert.Equal(t, DefaultMaxRetries, client.maxRetries)
	assert.Equal(t, DefaultRequestTimeout, client.timeout)
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNoAPIKey)

	t.Setenv("OPENAI_API_KEY", "sk-test")
	client, err := NewClientFromEnv()
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"rate limited", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusInternalServerError}, true},
		{"bad gateway", &openai.APIError{HTTPStatusCode: http.StatusBadGateway}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, false},
		{"unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, false},
		{"network", &openai.RequestError{Err: errors.New("connection refused")}, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
