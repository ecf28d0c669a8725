package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatbot/internal/core/domain"
)

var errNoSettings = errors.New("settings service not configured")

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the LLM provider and checkpoint storage.

Settings are stored in config.toml inside the configuration directory.
Environment variables (and a .env file) override stored values.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Choose the LLM provider, model and API key",
	RunE:  runSettingsLLM,
}

var settingsCheckpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Choose where checkpoints are stored",
	Long: `Select where conversation checkpoints are stored.

Available backends:
  redis  - The cache service of the devcontainer (default)
  sqlite - A local database file
  memory - Kept for the life of the process only`,
	RunE: runSettingsCheckpoint,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsLLMCmd, settingsCheckpointCmd)
	rootCmd.AddCommand(settingsCmd)
}

// row prints "  label: value", flagging values that came from the
// environment when key is set.
func row(cmd *cobra.Command, label, value, key string) {
	note := ""
	if key != "" && configSource != nil && configSource.Source(key) == "env" {
		note = " (env)"
	}
	cmd.Printf("  %s: %s%s\n", label, value, note)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	llm, cp := settings.LLM, settings.Checkpoint

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[LLM]")
	row(cmd, "Provider", llm.Provider.Description(), domain.KeyLLMProvider)
	row(cmd, "Model", llm.Model, domain.KeyLLMModel)
	if llm.Provider.IsLocal() || llm.BaseURL != "" {
		row(cmd, "Base URL", llm.BaseURL, domain.KeyLLMBaseURL)
	}
	if llm.Provider.RequiresAPIKey() {
		if llm.APIKey == "" {
			row(cmd, "API Key", "(not set)", "")
		} else {
			row(cmd, "API Key", maskSecret(llm.APIKey), domain.KeyLLMAPIKey)
		}
	}
	if llm.RequestsPerMinute > 0 {
		row(cmd, "Rate limit", fmt.Sprintf("%d requests/minute", llm.RequestsPerMinute), domain.KeyLLMRequestsPerMinute)
	}
	if llm.IsConfigured() {
		row(cmd, "Status", "configured", "")
	} else {
		row(cmd, "Status", "not configured", "")
	}
	cmd.Println()

	cmd.Println("[Checkpoint]")
	row(cmd, "Backend", cp.Backend.Description(), domain.KeyCheckpointBackend)
	if activeBackend != "" && activeBackend != cp.Backend {
		row(cmd, "In use", activeBackend.Description()+" (--backend)", "")
	}
	switch cp.Backend {
	case domain.CheckpointBackendRedis:
		row(cmd, "Redis", fmt.Sprintf("%s db %d", cp.Redis.Addr(), cp.Redis.DB), domain.KeyRedisHost)
	case domain.CheckpointBackendSQLite:
		row(cmd, "Database", orDefault(cp.SQLitePath, "(default data directory)"), domain.KeyCheckpointSQLitePath)
	case domain.CheckpointBackendMemory:
		cmd.Println("  Checkpoints are lost when the process exits.")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'chatbot settings llm' to fix configuration issues.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	p := newPrompter(cmd)

	providers := domain.AllAIProviders()
	names := make([]string, len(providers))
	for i, pr := range providers {
		names[i] = pr.Description()
	}
	provider := providers[p.choose("Select LLM Provider", names)]
	model := p.text("Enter model name", provider.DefaultModel())

	var apiKey string
	if provider.RequiresAPIKey() {
		if apiKey = p.secret("Enter API key"); apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func runSettingsCheckpoint(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	p := newPrompter(cmd)

	backends := domain.AllCheckpointBackends()
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Description()
	}
	backend := backends[p.choose("Select Checkpoint Backend", names)]

	if err := settingsService.SetCheckpointBackend(backend); err != nil {
		return fmt.Errorf("failed to set checkpoint backend: %w", err)
	}

	if backend == domain.CheckpointBackendRedis {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		cur := settings.Checkpoint.Redis
		redis := domain.RedisSettings{
			Host:     p.text("Redis host", orDefault(cur.Host, domain.DefaultRedisHost)),
			Port:     p.number("Redis port", cur.Port),
			DB:       p.number("Redis database", cur.DB),
			Password: cur.Password,
		}
		if err := settingsService.SetRedis(redis); err != nil {
			return fmt.Errorf("failed to configure redis: %w", err)
		}
		cmd.Printf("Redis: %s db %d\n", redis.Addr(), redis.DB)
	}

	cmd.Printf("Checkpoint backend set to: %s\n", backend.Description())
	if backend == domain.CheckpointBackendRedis {
		cmd.Println("Run 'chatbot env wait' to check the cache is reachable.")
	}
	return nil
}
