package domain

import (
	"net"
	"strconv"
)

const unknownDescription = "Unknown"

// AIProvider names the service that answers chat turns.
type AIProvider string

const (
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderGemini    AIProvider = "gemini"
	AIProviderOllama    AIProvider = "ollama"
)

type providerInfo struct {
	description string
	model       string
	local       bool
}

// providers is in menu order.
var providers = []struct {
	id AIProvider
	providerInfo
}{
	{AIProviderOpenAI, providerInfo{"OpenAI (cloud)", "gpt-4o-mini", false}},
	{AIProviderAnthropic, providerInfo{"Anthropic (cloud)", "claude-3-5-sonnet-latest", false}},
	{AIProviderGemini, providerInfo{"Gemini (cloud)", "gemini-2.0-flash", false}},
	{AIProviderOllama, providerInfo{"Ollama (local)", "llama3.2", true}},
}

func (p AIProvider) info() (providerInfo, bool) {
	for _, e := range providers {
		if e.id == p {
			return e.providerInfo, true
		}
	}
	return providerInfo{description: unknownDescription}, false
}

// AllAIProviders returns every supported provider in menu order.
func AllAIProviders() []AIProvider {
	out := make([]AIProvider, len(providers))
	for i, e := range providers {
		out[i] = e.id
	}
	return out
}

func (p AIProvider) IsValid() bool {
	_, ok := p.info()
	return ok
}

// RequiresAPIKey is true for every hosted provider.
func (p AIProvider) RequiresAPIKey() bool {
	info, ok := p.info()
	return ok && !info.local
}

func (p AIProvider) IsLocal() bool {
	info, _ := p.info()
	return info.local
}

func (p AIProvider) String() string { return string(p) }

// Description is the menu label, e.g. "OpenAI (cloud)".
func (p AIProvider) Description() string {
	info, _ := p.info()
	return info.description
}

// DefaultModel is the model used when none is configured, or "" for an
// unknown provider.
func (p AIProvider) DefaultModel() string {
	info, _ := p.info()
	return info.model
}

// LLMSettings configures the chat model.
type LLMSettings struct {
	Provider AIProvider
	Model    string
	// BaseURL overrides the provider endpoint. Required in practice for
	// Ollama, optional for OpenAI-compatible gateways.
	BaseURL string
	APIKey  string
	// RequestsPerMinute throttles LLM calls; zero disables throttling.
	RequestsPerMinute int
}

// IsConfigured reports whether a turn could be attempted: the provider is
// known and has a key if it needs one.
func (l LLMSettings) IsConfigured() bool {
	return l.Provider.IsValid() && (!l.Provider.RequiresAPIKey() || l.APIKey != "")
}

// CheckpointBackend selects where conversation checkpoints are stored.
type CheckpointBackend string

const (
	// CheckpointBackendRedis uses the devcontainer cache service.
	CheckpointBackendRedis CheckpointBackend = "redis"
	// CheckpointBackendSQLite uses a local database file.
	CheckpointBackendSQLite CheckpointBackend = "sqlite"
	// CheckpointBackendMemory keeps checkpoints for the life of the process.
	CheckpointBackendMemory CheckpointBackend = "memory"
)

var backendDescriptions = map[CheckpointBackend]string{
	CheckpointBackendRedis:  "Redis (cache service)",
	CheckpointBackendSQLite: "SQLite (local file)",
	CheckpointBackendMemory: "Memory (not persisted)",
}

// AllCheckpointBackends returns every supported backend in menu order.
func AllCheckpointBackends() []CheckpointBackend {
	return []CheckpointBackend{CheckpointBackendRedis, CheckpointBackendSQLite, CheckpointBackendMemory}
}

func (b CheckpointBackend) IsValid() bool {
	_, ok := backendDescriptions[b]
	return ok
}

// IsPersistent reports whether checkpoints survive a restart.
func (b CheckpointBackend) IsPersistent() bool {
	return b.IsValid() && b != CheckpointBackendMemory
}

func (b CheckpointBackend) String() string { return string(b) }

func (b CheckpointBackend) Description() string {
	if d, ok := backendDescriptions[b]; ok {
		return d
	}
	return unknownDescription
}

// Defaults matching the devcontainer cache service and a stock Ollama.
const (
	DefaultRedisHost = "localhost"
	DefaultRedisPort = 6379
	DefaultOllamaURL = "http://localhost:11434"
)

// RedisSettings is the connection used by the redis backend.
type RedisSettings struct {
	Host     string
	Port     int
	DB       int
	Password string
}

// Addr returns host:port with defaults filled in for empty fields.
func (r RedisSettings) Addr() string {
	host, port := r.Host, r.Port
	if host == "" {
		host = DefaultRedisHost
	}
	if port <= 0 {
		port = DefaultRedisPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// CheckpointSettings configures checkpoint storage.
type CheckpointSettings struct {
	Backend CheckpointBackend
	Redis   RedisSettings
	// SQLitePath is the database file; empty means the data directory.
	SQLitePath string
}

// AppSettings is everything the settings service persists.
type AppSettings struct {
	LLM        LLMSettings
	Checkpoint CheckpointSettings
}

// DefaultAppSettings targets OpenAI's gpt-4o-mini, which still needs an
// API key, and the Redis cache service.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		LLM: LLMSettings{
			Provider: AIProviderOpenAI,
			Model:    AIProviderOpenAI.DefaultModel(),
		},
		Checkpoint: CheckpointSettings{
			Backend: CheckpointBackendRedis,
			Redis:   RedisSettings{Host: DefaultRedisHost, Port: DefaultRedisPort},
		},
	}
}
