package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	_, err := NewConfigStore(filepath.Join(blocker, "sub"))

	assert.Error(t, err)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0600))

	_, err := NewConfigStore(dir)

	assert.Error(t, err)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("s", "hello"))
	require.NoError(t, store.Set("i", 42))
	require.NoError(t, store.Set("n", "17"))

	assert.Equal(t, "hello", store.GetString("s"))
	assert.Equal(t, "", store.GetString("i"), "wrong type")
	assert.Equal(t, 42, store.GetInt("i"))
	assert.Equal(t, 17, store.GetInt("n"))
	assert.Equal(t, 0, store.GetInt("s"))

	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_WritesTables(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("redis.port", 6380))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	assert.Contains(t, string(data), "[llm]")
	assert.Contains(t, string(data), "[redis]")
	assert.Contains(t, string(data), "provider = ")
	assert.Contains(t, string(data), "openai")
}

func TestConfigStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.provider", "anthropic"))
	require.NoError(t, store.Set("llm.requests_per_minute", 20))
	require.NoError(t, store.Set("checkpoint.backend", "redis"))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", reopened.GetString("llm.provider"))
	assert.Equal(t, 20, reopened.GetInt("llm.requests_per_minute"))
	assert.Equal(t, "redis", reopened.GetString("checkpoint.backend"))
}

func TestConfigStore_HandEditedFile(t *testing.T) {
	dir := t.TempDir()
	content := "[llm]\nprovider = \"ollama\"\nmodel = \"llama3.2\"\n\n[redis]\nhost = \"cache\"\nport = 6379\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store.GetString("llm.provider"))
	assert.Equal(t, "cache", store.GetString("redis.host"))
	assert.Equal(t, 6379, store.GetInt("redis.port"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("llm.api_key", "secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("k", "v"))
	assert.Equal(t, "v", store.GetString("k"))
}

func TestConfigStore_ReadsHandEditedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("a.b", "1"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("[a]\nb = '2'\n"), 0600))
	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "2", reopened.GetString("a.b"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, store.Set("counter", n))
			_ = store.GetInt("counter")
		}(i)
	}
	wg.Wait()
}

func TestNest(t *testing.T) {
	nested := nest(map[string]any{
		"llm.provider": "openai",
		"llm.model":    "gpt-4o-mini",
		"plain":        true,
		"plain.child":  1,
	})

	assert.Equal(t, map[string]any{"provider": "openai", "model": "gpt-4o-mini"}, nested["llm"])
	assert.Equal(t, true, nested["plain"])
	assert.Equal(t, map[string]any{
		"llm.provider": "openai",
		"llm.model":    "gpt-4o-mini",
		"plain":        true,
		"plain.child":  1,
	}, flatten(nested, ""))
}

func TestConfigStore_LeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("llm.model", "gpt-4o"))
	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())
}
