package services

import (
	"fmt"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService maps domain.AppSettings onto flat ConfigStore keys.
// Missing or unrecognised values read back as the defaults.
type SettingsService struct {
	store     driven.ConfigStore
	validator driven.AIConfigValidator
}

// NewSettingsService returns a service over store. validator may be nil,
// in which case ValidateLLMConfig always succeeds.
func NewSettingsService(store driven.ConfigStore, validator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{store: store, validator: validator}
}

// entry is one key to persist. Secrets are skipped when empty so that a
// blank prompt never erases a stored credential.
type entry struct {
	key    string
	value  any
	secret bool
}

func (s *SettingsService) write(entries ...entry) error {
	for _, e := range entries {
		if e.secret && e.value == "" {
			continue
		}
		if err := s.store.Set(e.key, e.value); err != nil {
			return fmt.Errorf("save %s: %w", e.key, err)
		}
	}
	return nil
}

func (s *SettingsService) Get() (*domain.AppSettings, error) {
	def := domain.DefaultAppSettings()
	provider := domain.AIProvider(s.str(domain.KeyLLMProvider, ""))
	if !provider.IsValid() {
		provider = def.LLM.Provider
	}
	backend := domain.CheckpointBackend(s.str(domain.KeyCheckpointBackend, ""))
	if !backend.IsValid() {
		backend = def.Checkpoint.Backend
	}

	return &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider:          provider,
			Model:             s.str(domain.KeyLLMModel, provider.DefaultModel()),
			BaseURL:           s.store.GetString(domain.KeyLLMBaseURL),
			APIKey:            s.store.GetString(domain.KeyLLMAPIKey),
			RequestsPerMinute: s.store.GetInt(domain.KeyLLMRequestsPerMinute),
		},
		Checkpoint: domain.CheckpointSettings{
			Backend:    backend,
			SQLitePath: s.store.GetString(domain.KeyCheckpointSQLitePath),
			Redis: domain.RedisSettings{
				Host:     s.str(domain.KeyRedisHost, def.Checkpoint.Redis.Host),
				Port:     s.num(domain.KeyRedisPort, def.Checkpoint.Redis.Port),
				DB:       s.store.GetInt(domain.KeyRedisDB),
				Password: s.store.GetString(domain.KeyRedisPassword),
			},
		},
	}, nil
}

// Save writes every field of settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	llm, cp := settings.LLM, settings.Checkpoint
	if err := s.write(
		entry{key: domain.KeyLLMProvider, value: llm.Provider.String()},
		entry{key: domain.KeyLLMModel, value: llm.Model},
		entry{key: domain.KeyLLMBaseURL, value: llm.BaseURL},
		entry{key: domain.KeyLLMAPIKey, value: llm.APIKey, secret: true},
		entry{key: domain.KeyLLMRequestsPerMinute, value: llm.RequestsPerMinute},
		entry{key: domain.KeyCheckpointBackend, value: cp.Backend.String()},
		entry{key: domain.KeyCheckpointSQLitePath, value: cp.SQLitePath},
	); err != nil {
		return err
	}
	return s.writeRedis(cp.Redis)
}

func (s *SettingsService) writeRedis(r domain.RedisSettings) error {
	return s.write(
		entry{key: domain.KeyRedisHost, value: r.Host},
		entry{key: domain.KeyRedisPort, value: r.Port},
		entry{key: domain.KeyRedisDB, value: r.DB},
		entry{key: domain.KeyRedisPassword, value: r.Password, secret: true},
	)
}

// SetLLMProvider switches provider. An empty model selects the provider's
// default. Local providers keep their base URL, defaulting to Ollama's;
// cloud providers have it cleared.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if model == "" {
		model = provider.DefaultModel()
	}
	baseURL := ""
	if provider.IsLocal() {
		baseURL = settings.LLM.BaseURL
		if baseURL == "" {
			baseURL = domain.DefaultOllamaURL
		}
	}
	settings.LLM = domain.LLMSettings{
		Provider:          provider,
		Model:             model,
		BaseURL:           baseURL,
		APIKey:            apiKey,
		RequestsPerMinute: settings.LLM.RequestsPerMinute,
	}
	return s.Save(settings)
}

func (s *SettingsService) SetCheckpointBackend(backend domain.CheckpointBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid checkpoint backend: %s", backend)
	}
	return s.write(entry{key: domain.KeyCheckpointBackend, value: backend.String()})
}

// SetRedis stores the connection settings. Empty host and zero port take
// the defaults.
func (s *SettingsService) SetRedis(redis domain.RedisSettings) error {
	switch {
	case redis.Port < 0 || redis.Port > 65535:
		return fmt.Errorf("%w: redis port %d out of range", domain.ErrInvalidInput, redis.Port)
	case redis.DB < 0:
		return fmt.Errorf("%w: redis db %d is negative", domain.ErrInvalidInput, redis.DB)
	}
	if redis.Host == "" {
		redis.Host = domain.DefaultRedisHost
	}
	if redis.Port == 0 {
		redis.Port = domain.DefaultRedisPort
	}
	return s.writeRedis(redis)
}

// Validate reports whether a chat session could start with the stored
// settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured (missing API key?)",
			settings.LLM.Provider.Description())
	}
	return nil
}

// ValidateLLMConfig pings the provider with the stored LLM settings.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.validator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.validator.ValidateLLM(&settings.LLM)
}

func (s *SettingsService) str(key, def string) string {
	if v := s.store.GetString(key); v != "" {
		return v
	}
	return def
}

func (s *SettingsService) num(key string, def int) int {
	if v := s.store.GetInt(key); v != 0 {
		return v
	}
	return def
}
