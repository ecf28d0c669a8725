package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/chatbot/internal/adapters/driven/ai"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/config/env"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/config/file"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/devenv"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/process"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/cli"
	"github.com/custodia-labs/chatbot/internal/core/domain"
	"github.com/custodia-labs/chatbot/internal/core/ports/driven"
	"github.com/custodia-labs/chatbot/internal/core/services"
	"github.com/custodia-labs/chatbot/internal/logger"
)

// dotEnvFile is read from the working directory before configuration loads.
const dotEnvFile = ".env"

// buildServices wires the adapters into the core services for one command.
func buildServices(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	if err := env.LoadDotEnv(dotEnvFile); err != nil {
		return nil, fmt.Errorf("load %s: %w", dotEnvFile, err)
	}

	fileStore, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	config := env.NewOverlay(fileStore)
	settingsService := services.NewSettingsService(config, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	backend := settings.Checkpoint.Backend
	if opts.Backend != "" {
		backend = opts.Backend
	}
	logger.Debug("checkpoint backend: %s", backend)

	saver, err := openSaver(backend, settings.Checkpoint)
	if err != nil {
		return nil, err
	}

	prompts, err := file.NewPromptStore(promptDir(opts.ConfigDir))
	if err != nil {
		saver.Close()
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	go func() {
		if err := prompts.Watch(watchCtx, nil); err != nil {
			logger.Debug("prompt watcher stopped: %v", err)
		}
	}()

	llm := openLLM(&settings.LLM, opts.ValidateLLM)

	chat, err := services.NewChatService(saver, llm, prompts)
	if err != nil {
		stopWatch()
		closeAll(saver, llm)
		return nil, err
	}

	self, err := os.Executable()
	if err != nil {
		self = "chatbot"
	}
	environment := services.NewEnvironmentService(
		devenv.NewLoader(), process.NewExecutor(), saver, ".", self)

	return &cli.Services{
		Chat:        chat,
		Settings:    settingsService,
		Environment: environment,
		Config:      config,
		Backend:     backend,
		Close: func() error {
			stopWatch()
			return closeAll(saver, llm)
		},
	}, nil
}

// openSaver opens the checkpoint saver for backend.
func openSaver(backend domain.CheckpointBackend, cfg domain.CheckpointSettings) (driven.CheckpointSaver, error) {
	switch backend {
	case domain.CheckpointBackendRedis:
		return redis.NewCheckpointSaver(cfg.Redis), nil

	case domain.CheckpointBackendSQLite:
		saver, err := sqlite.NewCheckpointSaver(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrCheckpointUnavailable, err)
		}
		return saver, nil

	case domain.CheckpointBackendMemory:
		return memory.NewCheckpointSaver(), nil

	default:
		return nil, fmt.Errorf("%w: unknown checkpoint backend %q", domain.ErrInvalidInput, backend)
	}
}

// openLLM builds the LLM service. Failures leave the chat service without
// a model; Send then reports domain.ErrLLMUnavailable.
func openLLM(settings *domain.LLMSettings, validate bool) driven.LLMService {
	if !validate {
		svc, err := ai.CreateLLMService(settings)
		if err != nil || svc == nil {
			logger.Debug("LLM not available: %v", err)
			return nil
		}
		return svc
	}

	svc, err := ai.CreateAndValidateLLMService(settings)
	if err != nil {
		if settings.IsConfigured() {
			logger.Error("%v", err)
		} else {
			logger.Debug("LLM not configured: %v", err)
		}
		return nil
	}
	if svc == nil {
		return nil
	}
	return svc
}

func promptDir(configDir string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "prompts")
}

func closeAll(saver driven.CheckpointSaver, llm driven.LLMService) error {
	var errs []error
	if llm != nil {
		errs = append(errs, llm.Close())
	}
	if saver != nil {
		errs = append(errs, saver.Close())
	}
	return errors.Join(errs...)
}
