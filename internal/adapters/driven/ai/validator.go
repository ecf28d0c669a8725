package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator builds a throwaway LLM client from the settings and pings
// it. The client is closed before ValidateLLM returns.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator returns a validator that gives the provider
// pingTimeout to answer.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	svc, err := CreateLLMService(config)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return svc.Ping(ctx)
}
