// Package anthropic answers chat turns through the Anthropic messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/chatbot/internal/adapters/driven/llm/httpjson"
	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults applied to an empty Config.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// Config selects the endpoint and model. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService is a driven.LLMService backed by the Anthropic API.
type LLMService struct {
	api   *httpjson.Client
	model string
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []turnMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
}

type turnMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewLLMService fails without an API key. Empty Config fields take the
// package defaults.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	api := httpjson.New("anthropic", cfg.BaseURL, cfg.Timeout)
	api.Header.Set("x-api-key", cfg.APIKey)
	api.Header.Set("anthropic-version", anthropicVersion)
	return &LLMService{api: api, model: cfg.Model}, nil
}

// buildRequest lifts system messages into the top-level system field; the
// messages list only takes user and assistant turns.
func (s *LLMService) buildRequest(messages []domain.Message, opts driven.ChatOptions) messagesRequest {
	req := messagesRequest{
		Model:       s.model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	var system []string
	for _, msg := range messages {
		if msg.Role == domain.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		req.Messages = append(req.Messages, turnMessage{Role: msg.Role.String(), Content: msg.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

// Chat returns the text blocks of the reply joined together.
func (s *LLMService) Chat(ctx context.Context, messages []domain.Message, opts driven.ChatOptions) (string, error) {
	var resp messagesResponse
	if err := s.api.Post(ctx, "/v1/messages", s.buildRequest(messages, opts), &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", errors.New("anthropic: no response content returned")
	}

	var reply strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	logger.Debug("anthropic: %s stopped with %s after %d output tokens",
		s.model, resp.StopReason, resp.Usage.OutputTokens)
	return reply.String(), nil
}

func (s *LLMService) ModelName() string { return s.model }

// Ping lists models, which checks the key without spending tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	if err := s.api.Get(ctx, "/v1/models", nil); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func (s *LLMService) Close() error { return nil }
