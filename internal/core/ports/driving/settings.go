package driving

import "github.com/custodia-labs/chatbot/internal/core/domain"

// SettingsService reads and edits the LLM and checkpoint settings.
type SettingsService interface {
	// Get returns the effective settings with defaults filled in.
	Get() (*domain.AppSettings, error)
	Save(settings *domain.AppSettings) error

	// SetLLMProvider fails with a missing key for providers that need one.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error
	SetCheckpointBackend(backend domain.CheckpointBackend) error
	SetRedis(redis domain.RedisSettings) error

	// Validate checks the stored settings offline; ValidateLLMConfig also
	// contacts the provider.
	Validate() error
	ValidateLLMConfig() error
}
