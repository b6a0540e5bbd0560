package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docqa", "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

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
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("generation.model", "gpt-4o-mini"))
	require.NoError(t, store.Set("chunking.window", int64(400)))
	require.NoError(t, store.Set("generation.temperature", 0.3))
	require.NoError(t, store.Set("server.debug", true))

	assert.Equal(t, "gpt-4o-mini", store.GetString("generation.model"))
	assert.Equal(t, 400, store.GetInt("chunking.window"))
	assert.Equal(t, 400.0, store.GetFloat("chunking.window"))
	assert.Equal(t, 0.3, store.GetFloat("generation.temperature"))
	assert.True(t, store.GetBool("server.debug"))

	assert.Empty(t, store.GetString("chunking.window"), "wrong type reads as zero value")
	assert.Zero(t, store.GetInt("generation.model"))
	assert.False(t, store.GetBool("missing"))
}

func TestConfigStore_Persistence_NestedTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("generation.model", "llama3.2"))
	require.NoError(t, store.Set("generation.backend", "local"))
	require.NoError(t, store.Set("chunking.window", 300))
	require.NoError(t, store.Set("verbose", true))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[generation]")
	assert.Contains(t, string(raw), "[chunking]")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", reloaded.GetString("generation.model"))
	assert.Equal(t, "local", reloaded.GetString("generation.backend"))
	assert.Equal(t, 300, reloaded.GetInt("chunking.window"))
	assert.True(t, reloaded.GetBool("verbose"))
	assert.Equal(t, []string{"chunking.window", "generation.backend", "generation.model", "verbose"}, reloaded.Keys())
}

func TestConfigStore_LeafAndTableClash(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("vector", "qdrant"))
	require.NoError(t, store.Set("vector.url", "http://q:6333"))

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "qdrant", reloaded.GetString("vector"))
	assert.Equal(t, "http://q:6333", reloaded.GetString("vector.url"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("generation.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), nil, 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(store.Path(), 0700))
	assert.Error(t, store.Save())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("k.n%d", n)
			assert.NoError(t, store.Set(key, n))
			_ = store.GetInt(key)
		}(i)
	}
	wg.Wait()
	assert.Len(t, store.Keys(), 20)
}

func TestNestMap(t *testing.T) {
	got := nestMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})
	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, got)

	assert.Equal(t, map[string]any{"a.b": 1, "x": 2}, flattenMap(map[string]any{"a": map[string]any{"b": 1}, "x": 2}, ""))
}

func TestConfigStore_SaveLeavesOnlyConfigFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("generation.model", "llama3.2"))
	require.NoError(t, store.Set("generation.max_tokens", 300))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config.toml", entries[0].Name())

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_LoadRejectsInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[generation\nmodel ="), 0600))

	_, err := NewConfigStore(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse ")
}
