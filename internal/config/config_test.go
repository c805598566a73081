package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/search"
	"github.com/Aman-CERP/amandocs/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// isolate points the user config at an empty temp dir and clears the
// environment overrides the tests use.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{"KEYWORD_ONLY", "EMBEDDINGS_PROVIDER", "QUERY_TIMEOUT", "INDEX_WORKERS", "LOG_LEVEL", "CACHE_BACKEND"} {
		t.Setenv(EnvPrefix+key, "")
	}
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "docs", cfg.Corpus.Root)
	assert.Contains(t, cfg.Corpus.Exclude, "node_modules")
	assert.Equal(t, ".amandocs", cfg.Index.Dir)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, search.DefaultConfig(), cfg.Search)
	assert.Equal(t, 1024, cfg.Capability.MinMemoryMB)
	assert.False(t, cfg.Capability.KeywordOnly)
	assert.Equal(t, 30*time.Second, cfg.Loader.Timeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_LayersUserThenProjectThenEnv(t *testing.T) {
	// Given: user and project configs that overlap
	isolate(t)
	writeFile(t, GetUserConfigPath(), `
search:
  default_limit: 5
  query_timeout: 3s
embeddings:
  provider: ollama
corpus:
  exclude: [archive]
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amandocs.yaml"), `
search:
  default_limit: 7
corpus:
  root: site/content
  exclude: [drafts/old*]
`)
	t.Setenv("AMANDOCS_KEYWORD_ONLY", "true")

	// When: loading
	cfg, err := Load(dir)

	// Then: later layers win and unset keys keep earlier values
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.DefaultLimit)
	assert.Equal(t, 3*time.Second, cfg.Search.QueryTimeout)
	assert.Equal(t, 0.1, cfg.Search.TitleBoost)
	assert.Equal(t, "ollama", cfg.Embeddings.Provider)
	assert.Equal(t, "site/content", cfg.Corpus.Root)
	assert.True(t, cfg.Capability.KeywordOnly)

	// And: exclusions accumulate
	assert.Contains(t, cfg.Corpus.Exclude, "node_modules")
	assert.Contains(t, cfg.Corpus.Exclude, "archive")
	assert.Contains(t, cfg.Corpus.Exclude, "drafts/old*")
}

func TestLoad_VectorSearchSettings(t *testing.T) {
	// Given: a project config tuning the HNSW preselection
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amandocs.yaml"), `
loader:
  vectors:
    hnsw_threshold: 200
    hnsw_ef_search: 128
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: the set keys apply and the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Loader.Vectors.HNSWThreshold)
	assert.Equal(t, 128, cfg.Loader.Vectors.EfSearch)
	assert.Equal(t, store.DefaultVectorSetConfig().M, cfg.Loader.Vectors.M)

	// And: the environment overrides the threshold
	t.Setenv("AMANDOCS_HNSW_THRESHOLD", "0")
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Loader.Vectors.HNSWThreshold)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amandocs.yml"), "index:\n  workers: 3\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Index.Workers)
}

func TestLoad_DotEnvIsBelowProcessEnv(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "AMANDOCS_INDEX_WORKERS=2\nAMANDOCS_LOG_LEVEL=debug\n")
	t.Setenv("AMANDOCS_LOG_LEVEL", "error")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Index.Workers)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestLoad_InvalidEnvValueIsSkipped(t *testing.T) {
	isolate(t)
	t.Setenv("AMANDOCS_QUERY_TIMEOUT", "soon")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Search.QueryTimeout)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
	}{
		{name: "syntax", content: "search: [unclosed", code: amanerrors.ErrCodeConfigInvalid},
		{name: "unknown key", content: "serach:\n  default_limit: 3\n", code: amanerrors.ErrCodeConfigInvalid},
		{name: "invalid backend", content: "cache:\n  backend: redis\n", code: amanerrors.ErrCodeConfigInvalid},
		{name: "invalid provider", content: "embeddings:\n  provider: word2vec\n", code: amanerrors.ErrCodeConfigInvalid},
		{name: "limit above max", content: "search:\n  default_limit: 500\n", code: amanerrors.ErrCodeConfigInvalid},
		{name: "log level", content: "logging:\n  level: loud\n", code: amanerrors.ErrCodeConfigInvalid},
		{name: "negative hnsw threshold", content: "loader:\n  vectors:\n    hnsw_threshold: -1\n", code: amanerrors.ErrCodeConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, ".amandocs.yaml"), tt.content)

			_, err := Load(dir)

			require.Error(t, err)
			assert.Equal(t, tt.code, amanerrors.GetCode(err))
		})
	}
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "index:\n  dir: build/index\n")

	cfg, err := LoadFile(dir, path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "build", "index"), cfg.IndexDir(dir))

	_, err = LoadFile(dir, filepath.Join(dir, "missing.yaml"))
	assert.Equal(t, amanerrors.ErrCodeConfigNotFound, amanerrors.GetCode(err))
}

func TestConfig_Paths(t *testing.T) {
	cfg := NewConfig()
	project := filepath.Join(string(filepath.Separator), "srv", "project")

	assert.Equal(t, filepath.Join(project, "docs"), cfg.CorpusDir(project))
	assert.Equal(t, filepath.Join(project, ".amandocs", "embeddings.db"), cfg.CachePath(project))

	cfg.Cache.Backend = "badger"
	assert.Equal(t, filepath.Join(project, ".amandocs", "embeddings.badger"), cfg.CachePath(project))

	cfg.Cache.Path = "/var/cache/amandocs"
	assert.Equal(t, "/var/cache/amandocs", cfg.CachePath(project))

	assert.Equal(t, uint64(1<<30), cfg.MinMemoryBytes())
}

func TestConfig_WriteYAMLRoundTrip(t *testing.T) {
	isolate(t)
	cfg := NewConfig()
	cfg.Search.DefaultLimit = 15

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".amandocs.yaml"), buf.String())
	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
