// Package openai answers chat turns through the chat completions API.
// Any OpenAI-compatible server works via BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/chatbot/internal/adapters/driven/llm/httpjson"
	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults applied to an empty Config.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second
)

// Config selects the endpoint and model. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string        // DefaultBaseURL when empty
	Model   string        // DefaultModel when empty
	Timeout time.Duration // DefaultTimeout when zero
}

// LLMService is a driven.LLMService backed by the OpenAI API.
type LLMService struct {
	api   *httpjson.Client
	model string
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewLLMService fails without an API key. It does not contact the server;
// use Ping for that.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	api := httpjson.New("openai", orDefault(cfg.BaseURL, DefaultBaseURL), timeoutOrDefault(cfg.Timeout))
	api.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	return &LLMService{api: api, model: orDefault(cfg.Model, DefaultModel)}, nil
}

// Chat sends the whole thread, system prompt included, and returns the
// first choice.
func (s *LLMService) Chat(ctx context.Context, messages []domain.Message, opts driven.ChatOptions) (string, error) {
	req := completionRequest{
		Model:       s.model,
		Messages:    make([]completionMessage, 0, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, completionMessage{Role: msg.Role.String(), Content: msg.Content})
	}

	var resp completionResponse
	if err := s.api.Post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no response choices returned")
	}

	logger.Debug("openai: %s used %d prompt + %d completion tokens",
		s.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

func (s *LLMService) ModelName() string { return s.model }

// Ping lists models, which checks the key without spending tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.api.Get(ctx, "/models", nil); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (s *LLMService) Close() error { return nil }

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}
