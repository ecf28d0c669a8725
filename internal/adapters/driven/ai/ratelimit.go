package ai

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
)

// RateLimited throttles Chat calls of the wrapped service. Ping and the
// other methods pass straight through.
type RateLimited struct {
	driven.LLMService
	limiter *rate.Limiter
}

// NewRateLimited allows perMinute chat requests per minute with no burst.
func NewRateLimited(svc driven.LLMService, perMinute int) *RateLimited {
	return &RateLimited{
		LLMService: svc,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Chat waits for a token, then forwards the request.
func (r *RateLimited) Chat(ctx context.Context, messages []domain.Message, opts driven.ChatOptions) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit: %w", err)
	}
	return r.LLMService.Chat(ctx, messages, opts)
}
