package driven

import "github.com/custodia-labs/chatbot/internal/core/domain"

// AIConfigValidator checks LLM settings against the live provider before
// they are trusted for chat turns.
type AIConfigValidator interface {
	// ValidateLLM sends a minimal request with the given settings. Settings
	// without a provider are not an error.
	ValidateLLM(config *domain.LLMSettings) error
}
