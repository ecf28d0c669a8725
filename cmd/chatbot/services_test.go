package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatbot/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/chatbot/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/chatbot/internal/adapters/driving/cli"
	"github.com/custodia-labs/chatbot/internal/core/domain"
)

func TestOpenSaver(t *testing.T) {
	dir := t.TempDir()
	cfg := domain.CheckpointSettings{
		SQLitePath: filepath.Join(dir, "checkpoints.db"),
		Redis:      domain.RedisSettings{Host: "localhost", Port: 6379},
	}

	t.Run("memory", func(t *testing.T) {
		saver, err := openSaver(domain.CheckpointBackendMemory, cfg)
		require.NoError(t, err)
		defer saver.Close()
		assert.IsType(t, &memory.CheckpointSaver{}, saver)
	})

	t.Run("sqlite", func(t *testing.T) {
		saver, err := openSaver(domain.CheckpointBackendSQLite, cfg)
		require.NoError(t, err)
		defer saver.Close()
		assert.IsType(t, &sqlite.CheckpointSaver{}, saver)
		assert.FileExists(t, cfg.SQLitePath)
	})

	t.Run("redis", func(t *testing.T) {
		saver, err := openSaver(domain.CheckpointBackendRedis, cfg)
		require.NoError(t, err)
		defer saver.Close()
		assert.IsType(t, &redis.CheckpointSaver{}, saver)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := openSaver(domain.CheckpointBackend("etcd"), cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestOpenLLM_NotConfigured(t *testing.T) {
	settings := &domain.LLMSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini"}

	assert.Nil(t, openLLM(settings, false))
	assert.Nil(t, openLLM(settings, true))
}

func TestPromptDir(t *testing.T) {
	assert.Empty(t, promptDir(""))
	assert.Equal(t, filepath.Join("cfg", "prompts"), promptDir("cfg"))
}

func TestBuildServices_MemoryBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CHATBOT_LLM_API_KEY", "")

	svcs, err := buildServices(context.Background(), cli.Options{
		ConfigDir: t.TempDir(),
		Backend:   domain.CheckpointBackendMemory,
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, svcs.Close()) }()

	assert.Equal(t, domain.CheckpointBackendMemory, svcs.Backend)
	require.NotNil(t, svcs.Chat)
	require.NotNil(t, svcs.Settings)
	require.NotNil(t, svcs.Environment)
	assert.Equal(t, "default", svcs.Config.Source("checkpoint.backend"))

	threads, err := svcs.Chat.Threads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, threads)

	err = svcs.Chat.Send(context.Background(), svcs.Chat.NewThread(), "hello", nil)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
