package openai

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultBatchSize is the maximum number of inputs sent per embedding request
	DefaultBatchSize = 100
	// DefaultMaxRetries bounds retry attempts on transient provider errors
	DefaultMaxRetries = 3
	// DefaultRequestTimeout bounds every provider call
	DefaultRequestTimeout = 30 * time.Second
)

var (
	// ErrEmptyInput is returned when there is no text to embed
	ErrEmptyInput = errors.New("no text to embed")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the provider surface for embedding generation.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Client wraps the OpenAI embeddings API with batching, retry, and
// dimension validation.
type Client struct {
	api        EmbeddingAPI
	model      string
	dimensions int
	batchSize  int
	maxRetries int
	timeout    time.Duration
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create one embedding per input.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, errors.New("embedding count does not match input count")
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	BatchSize           int
	MaxRetries          int
	RequestTimeout      time.Duration
}

// NewClient creates a new embedding client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new embedding client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, model),
		model:      string(model),
		dimensions: dimensions,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		timeout:    timeout,
	}
}

// NewClientFromEnv creates a new embedding client using OPENAI_API_KEY.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Model returns the embedding model identifier.
func (c *Client) Model() string {
	return c.model
}

// Dimensions returns the expected embedding dimensionality.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// EmbedTexts generates one embedding per input, batched to the provider
// limit and retried with backoff on transient errors.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		vectors, err := c.api.CreateEmbeddings(callCtx, texts)
		cancel()
		if err != nil {
			lastErr = err
			if IsTransient(err) && ctx.Err() == nil {
				continue
			}
			return nil, err
		}

		for _, v := range vectors {
			if len(v) != c.dimensions {
				return nil, ErrWrongDimensions
			}
		}
		return vectors, nil
	}
	return nil, lastErr
}

// IsTransient reports whether a provider error is worth retrying:
// rate limits, server-side failures, and timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	// Network-level failures without an API status are treated as transient.
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr)
}
