// Package env overlays environment variables, including those from a .env
// file, on top of a persistent driven.ConfigStore.
//
// Every key can be set as CHATBOT_<KEY> with dots replaced by underscores
// (CHATBOT_LLM_MODEL). The conventional provider variables are honoured
// too: OPENAI_API_KEY and OPENAI_MODEL apply while the provider is openai,
// ANTHROPIC_*, GEMINI_* and OLLAMA_* likewise, and REDIS_HOST, REDIS_PORT,
// REDIS_DB and REDIS_PASSWORD always apply.
package env

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// Ensure Overlay implements the interface.
var _ driven.ConfigStore = (*Overlay)(nil)

// EnvPrefix prefixes the generic per-key variables.
const EnvPrefix = "CHATBOT"

const (
	keyProvider = domain.KeyLLMProvider
	keyModel    = domain.KeyLLMModel
	keyAPIKey   = domain.KeyLLMAPIKey
	keyBaseURL  = domain.KeyLLMBaseURL
)

// aliases are conventional variable names that always apply to a key.
var aliases = map[string]string{
	domain.KeyRedisHost:     "REDIS_HOST",
	domain.KeyRedisPort:     "REDIS_PORT",
	domain.KeyRedisDB:       "REDIS_DB",
	domain.KeyRedisPassword: "REDIS_PASSWORD",
}

// providerVars are conventional variables that apply only while their
// provider is selected. Keyed by provider, then by llm.* key.
var providerVars = map[string]map[string]string{
	"openai":    {keyAPIKey: "OPENAI_API_KEY", keyModel: "OPENAI_MODEL", keyBaseURL: "OPENAI_BASE_URL"},
	"anthropic": {keyAPIKey: "ANTHROPIC_API_KEY", keyModel: "ANTHROPIC_MODEL"},
	"gemini":    {keyAPIKey: "GEMINI_API_KEY", keyModel: "GEMINI_MODEL"},
	"ollama":    {keyModel: "OLLAMA_MODEL", keyBaseURL: "OLLAMA_HOST"},
}

// Overlay reads environment values first and falls back to the wrapped
// store. Writes always go to the wrapped store.
type Overlay struct {
	base driven.ConfigStore
	v    *viper.Viper
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set win. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		err := godotenv.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		logger.Debug("env: loaded %s", path)
	}
	return nil
}

// NewOverlay wraps base with environment lookups.
func NewOverlay(base driven.ConfigStore) *Overlay {
	v := viper.New()
	for _, key := range domain.SettingKeys() {
		names := []string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
		if alias, ok := aliases[key]; ok {
			names = append(names, alias)
		}
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	for provider, vars := range providerVars {
		for key, name := range vars {
			_ = v.BindEnv(providerKey(provider, key), name)
		}
	}

	return &Overlay{base: base, v: v}
}

func providerKey(provider, key string) string {
	return "provider." + provider + "." + key
}

// lookup returns the environment value for key, if any. Provider
// variables follow the selected provider, or the default one when none
// is stored.
func (o *Overlay) lookup(key string) (string, bool) {
	if o.v.IsSet(key) {
		return o.v.GetString(key), true
	}
	if !strings.HasPrefix(key, "llm.") || key == keyProvider {
		return "", false
	}
	provider, _ := o.Get(keyProvider)
	name, _ := provider.(string)
	if name == "" {
		name = domain.DefaultAppSettings().LLM.Provider.String()
	}
	if pk := providerKey(name, key); o.v.IsSet(pk) {
		return o.v.GetString(pk), true
	}
	return "", false
}

// Source reports whether key currently comes from the environment.
func (o *Overlay) Source(key string) string {
	if _, ok := o.lookup(key); ok {
		return "env"
	}
	if _, ok := o.base.Get(key); ok {
		return "file"
	}
	return "default"
}

// Get retrieves a configuration value, environment first.
func (o *Overlay) Get(key string) (any, bool) {
	if val, ok := o.lookup(key); ok {
		return val, true
	}
	return o.base.Get(key)
}

// GetString retrieves a string configuration value.
func (o *Overlay) GetString(key string) string {
	if val, ok := o.lookup(key); ok {
		return val
	}
	return o.base.GetString(key)
}

// GetInt retrieves an integer configuration value.
func (o *Overlay) GetInt(key string) int {
	if val, ok := o.lookup(key); ok {
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			logger.Warn("env: ignoring non-numeric value for %s", key)
			return o.base.GetInt(key)
		}
		return n
	}
	return o.base.GetInt(key)
}

// Set persists a value to the wrapped store. A value that is overridden by
// the environment is still written, with a warning.
func (o *Overlay) Set(key string, value any) error {
	if _, ok := o.lookup(key); ok {
		logger.Warn("env: %s is set in the environment and overrides the saved value", key)
	}
	return o.base.Set(key, value)
}

// Path returns the wrapped store's path.
func (o *Overlay) Path() string { return o.base.Path() }
