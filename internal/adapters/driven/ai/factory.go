// Package ai provides factory functions for creating LLM service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	anthropicllm "github.com/custodia-labs/chatbot/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/chatbot/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/chatbot/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/chatbot/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// pingTimeout bounds the connectivity check made before a service is used.
const pingTimeout = 5 * time.Second

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
// Returns nil, nil when no provider is configured.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'chatbot settings llm' to fix", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'chatbot settings llm' to fix",
			domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateLLMService creates the LLM service for the configured provider,
// throttled when RequestsPerMinute is set. Returns nil if the provider is
// not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.LLMService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderOpenAI:
		svc, err = openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderAnthropic:
		svc, err = anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderGemini:
		svc, err = geminillm.NewLLMService(context.Background(), geminillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if settings.RequestsPerMinute > 0 {
		logger.Debug("ai: limiting %s to %d requests per minute", settings.Provider, settings.RequestsPerMinute)
		svc = NewRateLimited(svc, settings.RequestsPerMinute)
	}
	return svc, nil
}
