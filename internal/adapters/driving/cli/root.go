// Package cli implements the chatbot command line interface using cobra.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driving"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Options carries the global flags into the service factory.
type Options struct {
	// Verbose enables debug logging.
	Verbose bool

	// ConfigDir overrides the configuration directory (default ~/.chatbot).
	ConfigDir string

	// Backend overrides the configured checkpoint backend for this run.
	Backend domain.CheckpointBackend

	// ValidateLLM is set for commands that talk to the model; the factory
	// then checks the provider is reachable before the command runs.
	ValidateLLM bool
}

// annotationLLM marks commands that send messages to the model.
const annotationLLM = "chatbot/llm"

var llmAnnotation = map[string]string{annotationLLM: "true"}

// ConfigSource reports where a setting's value comes from
// ("env", "file" or "default").
type ConfigSource interface {
	Source(key string) string
}

// Services bundles the ports the commands drive.
type Services struct {
	Chat        driving.ChatService
	Settings    driving.SettingsService
	Environment driving.EnvironmentService

	// Config is optional; settings show annotates values with it.
	Config ConfigSource

	// Backend is the checkpoint backend in use.
	Backend domain.CheckpointBackend

	// Close releases the services. May be nil.
	Close func() error
}

// ServiceFactory builds the services once global flags are parsed.
type ServiceFactory func(ctx context.Context, opts Options) (*Services, error)

var (
	chatService        driving.ChatService
	settingsService    driving.SettingsService
	environmentService driving.EnvironmentService
	configSource       ConfigSource
	activeBackend      domain.CheckpointBackend
	closeServices      func() error

	serviceFactory ServiceFactory
	globalOpts     Options
	backendFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "chatbot",
	Short: "Terminal chatbot with persistent conversation threads",
	Long: `chatbot is a conversational assistant for the terminal.

Every turn is checkpointed to Redis, SQLite or memory, so conversations can
be resumed, inspected and forked by thread ID. Running chatbot without a
subcommand starts an interactive chat.`,
	SilenceUsage:      true,
	Annotations:       llmAnnotation,
	PersistentPreRunE: setup,
	RunE:              runChat,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&globalOpts.ConfigDir, "config-dir", "", "Configuration directory (default ~/.chatbot)")
	flags.StringVar(&backendFlag, "backend", "", "Checkpoint backend for this run (redis, sqlite, memory)")
	rootCmd.Flags().StringVarP(&chatThread, "thread", "t", "", "Resume an existing thread")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServiceFactory installs the factory run before every command.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
}

// SetServices installs ready-made services.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	chatService = s.Chat
	settingsService = s.Settings
	environmentService = s.Environment
	configSource = s.Config
	activeBackend = s.Backend
	closeServices = s.Close
}

// Execute runs the root command and releases the services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if cerr := teardown(); err == nil {
		err = cerr
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(globalOpts.Verbose)

	if backendFlag != "" {
		backend := domain.CheckpointBackend(backendFlag)
		if !backend.IsValid() {
			return fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidInput, backendFlag)
		}
		globalOpts.Backend = backend
	}

	if serviceFactory == nil || cmd == versionCmd {
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	opts := globalOpts
	opts.ValidateLLM = cmd.Annotations[annotationLLM] == "true"
	svcs, err := serviceFactory(ctx, opts)
	if err != nil {
		return err
	}
	SetServices(svcs)
	return nil
}

func teardown() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close services: %w", err)
	}
	return nil
}
