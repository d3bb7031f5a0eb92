package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultAnalysisModel is the primary model for incident analysis
	DefaultAnalysisModel = openai.GPT4
	// DefaultFallbackModel is used when the primary model call fails
	DefaultFallbackModel = openai.GPT3Dot5Turbo
)

// ChatAPI defines the provider surface for chat completions.
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatClient runs completions against a primary model with automatic
// fallback to a secondary model on failure.
type ChatClient struct {
	api           ChatAPI
	primaryModel  string
	fallbackModel string
	temperature   float32
	maxTokens     int
}

// ChatConfig configures the completion client.
type ChatConfig struct {
	APIKey        string
	PrimaryModel  string
	FallbackModel string
	Temperature   float32
	MaxTokens     int
}

// NewChatClient creates a completion client from configuration.
func NewChatClient(cfg ChatConfig) *ChatClient {
	primary := cfg.PrimaryModel
	if primary == "" {
		primary = DefaultAnalysisModel
	}
	fallback := cfg.FallbackModel
	if fallback == "" {
		fallback = DefaultFallbackModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &ChatClient{
		api:           openai.NewClient(cfg.APIKey),
		primaryModel:  primary,
		fallbackModel: fallback,
		temperature:   cfg.Temperature,
		maxTokens:     maxTokens,
	}
}

// Complete runs the prompt against the primary model, falling back to the
// secondary model when the primary call fails.
func (c *ChatClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	content, err := c.complete(ctx, c.primaryModel, systemPrompt, userPrompt)
	if err == nil {
		return content, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	log.Printf("openai: primary model %s failed, falling back to %s: %v", c.primaryModel, c.fallbackModel, err)
	content, fbErr := c.complete(ctx, c.fallbackModel, systemPrompt, userPrompt)
	if fbErr != nil {
		return "", fmt.Errorf("primary model failed (%v); fallback model failed: %w", err, fbErr)
	}
	return content, nil
}

func (c *ChatClient) complete(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractJSON pulls the first complete JSON object out of a completion,
// tolerating markdown fences and surrounding prose.
func ExtractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.IndexByte(content, '{')
	if start < 0 {
		return "", errors.New("no JSON object in completion")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return content[start : i+1], nil
				}
			}
		}
	}
	return "", errors.New("unterminated JSON object in completion")
}
