// Package config loads amandocs configuration.
//
// Values are layered in order of increasing precedence:
//  1. Defaults (NewConfig)
//  2. User config (~/.config/amandocs/config.yaml)
//  3. Project config (.amandocs.yaml in the project root)
//  4. A project .env file
//  5. Environment variables (AMANDOCS_*)
//
// The result is validated before it is returned.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amandocs/internal/capability"
	"github.com/Aman-CERP/amandocs/internal/corpus"
	"github.com/Aman-CERP/amandocs/internal/embed"
	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/index"
	"github.com/Aman-CERP/amandocs/internal/loader"
	"github.com/Aman-CERP/amandocs/internal/logging"
	"github.com/Aman-CERP/amandocs/internal/search"
	"github.com/Aman-CERP/amandocs/internal/store"
	"github.com/Aman-CERP/amandocs/internal/watcher"
)

// ProjectConfigNames are the project config files, in lookup order.
var ProjectConfigNames = watcher.ConfigFileNames

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AMANDOCS_"

// Config is the complete amandocs configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Corpus     CorpusConfig     `yaml:"corpus" json:"corpus"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Cache      CacheConfig      `yaml:"cache" json:"cache"`
	Embeddings embed.Config     `yaml:"embeddings" json:"embeddings"`
	Search     search.Config    `yaml:"search" json:"search"`
	Capability CapabilityConfig `yaml:"capability" json:"capability"`
	Loader     LoaderConfig     `yaml:"loader" json:"loader"`
	Watch      WatchConfig      `yaml:"watch" json:"watch"`
	Logging    logging.Config   `yaml:"logging" json:"logging"`
}

// CorpusConfig selects the documents to index.
type CorpusConfig struct {
	// Root is the documentation directory, relative to the project root.
	Root       string   `yaml:"root" json:"root"`
	Extensions []string `yaml:"extensions" json:"extensions"`
	// Exclude is appended to the default exclusions by every layer.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// IndexConfig configures index builds.
type IndexConfig struct {
	// Dir holds the artifact files, relative to the project root.
	Dir          string `yaml:"dir" json:"dir"`
	Workers      int    `yaml:"workers" json:"workers"`
	ExcerptChars int    `yaml:"excerpt_chars" json:"excerpt_chars"`
}

// CacheConfig configures the persistent embedding cache.
type CacheConfig struct {
	// Backend is sqlite, badger or memory.
	Backend string `yaml:"backend" json:"backend"`
	// Path defaults to a file inside the index directory.
	Path string `yaml:"path" json:"path"`
}

// CapabilityConfig tunes the semantic capability check.
type CapabilityConfig struct {
	KeywordOnly bool `yaml:"keyword_only" json:"keyword_only"`
	// MinMemoryMB is the least available memory for semantic mode.
	MinMemoryMB int `yaml:"min_memory_mb" json:"min_memory_mb"`
}

// LoaderConfig tunes the progressive loader.
type LoaderConfig struct {
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Vectors controls the similarity search over the loaded vectors file.
	Vectors store.VectorSetConfig `yaml:"vectors" json:"vectors"`
}

// WatchConfig tunes index --watch.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" json:"debounce"`
}

// NewConfig returns a Config with defaults applied.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Root:       "docs",
			Extensions: append([]string(nil), corpus.DefaultExtensions...),
			Exclude:    append([]string(nil), corpus.DefaultExclude...),
		},
		Index: IndexConfig{
			Dir:          ".amandocs",
			ExcerptChars: index.DefaultExcerptChars,
		},
		Cache: CacheConfig{
			Backend: store.CacheBackendSQLite,
		},
		Embeddings: embed.DefaultConfig(),
		Search:     search.DefaultConfig(),
		Capability: CapabilityConfig{
			MinMemoryMB: int(capability.DefaultMinMemory >> 20),
		},
		Loader: LoaderConfig{
			Timeout: loader.DefaultTimeout,
			Vectors: store.DefaultVectorSetConfig(),
		},
		Watch: WatchConfig{
			Debounce: watcher.DefaultOptions().DebounceWindow,
		},
		Logging: logging.DefaultConfig(),
	}
}

// GetUserConfigPath returns the user configuration file path:
// $XDG_CONFIG_HOME/amandocs/config.yaml or ~/.config/amandocs/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "amandocs", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "amandocs", "config.yaml")
	}
	return filepath.Join(home, ".config", "amandocs", "config.yaml")
}

// Load loads configuration for the project rooted at dir.
func Load(dir string) (*Config, error) {
	return load(dir, GetUserConfigPath(), "")
}

// LoadFile loads configuration with path in place of the project config
// file. The user config, .env and environment layers still apply.
func LoadFile(dir, path string) (*Config, error) {
	return load(dir, GetUserConfigPath(), path)
}

func load(dir, userPath, projectPath string) (*Config, error) {
	cfg := NewConfig()

	if fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	if projectPath == "" {
		projectPath = findProjectConfig(dir)
	} else if !fileExists(projectPath) {
		return nil, amanerrors.New(amanerrors.ErrCodeConfigNotFound, "config file not found", nil).
			WithDetail("path", projectPath)
	}
	if projectPath != "" {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	dotenv, err := readDotEnv(filepath.Join(dir, ".env"))
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides(func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findProjectConfig(dir string) string {
	for _, name := range ProjectConfigNames {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p
		}
	}
	return ""
}

// readDotEnv parses a .env file without touching the process environment.
func readDotEnv(path string) (map[string]string, error) {
	if !fileExists(path) {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, amanerrors.ConfigError("failed to parse .env file", err).
			WithDetail("path", path)
	}
	return vars, nil
}

// loadYAML layers one YAML file over c. Unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return amanerrors.ConfigError("failed to read config file", err).WithDetail("path", path)
	}

	// Exclusions accumulate across layers instead of replacing.
	exclude := c.Corpus.Exclude
	c.Corpus.Exclude = nil

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		c.Corpus.Exclude = exclude
		return amanerrors.ConfigError("failed to parse config file", err).
			WithDetail("path", path).
			WithSuggestion("Check the YAML syntax and key names")
	}
	c.Corpus.Exclude = mergeUnique(exclude, c.Corpus.Exclude)

	slog.Debug("config_layer_loaded", slog.String("path", path))
	return nil
}

func mergeUnique(base, extra []string) []string {
	out := append([]string(nil), base...)
	for _, e := range extra {
		dup := false
		for _, b := range out {
			if b == e {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

// applyEnvOverrides applies AMANDOCS_* values. Unparseable values are
// logged and skipped.
func (c *Config) applyEnvOverrides(getenv func(string) string) {
	str := func(name string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v := getenv(EnvPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				warnEnv(name, v, err)
				return
			}
			*dst = n
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v := getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				warnEnv(name, v, err)
				return
			}
			*dst = d
		}
	}
	boolean := func(name string, dst *bool) {
		if v := getenv(EnvPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				warnEnv(name, v, err)
				return
			}
			*dst = b
		}
	}

	str("CORPUS_ROOT", &c.Corpus.Root)
	str("INDEX_DIR", &c.Index.Dir)
	integer("INDEX_WORKERS", &c.Index.Workers)
	str("CACHE_BACKEND", &c.Cache.Backend)
	str("CACHE_PATH", &c.Cache.Path)
	str("EMBEDDINGS_PROVIDER", &c.Embeddings.Provider)
	str("EMBEDDINGS_MODEL", &c.Embeddings.Model)
	str("OLLAMA_HOST", &c.Embeddings.Host)
	boolean("KEYWORD_ONLY", &c.Capability.KeywordOnly)
	integer("MIN_MEMORY_MB", &c.Capability.MinMemoryMB)
	duration("LOAD_TIMEOUT", &c.Loader.Timeout)
	integer("HNSW_THRESHOLD", &c.Loader.Vectors.HNSWThreshold)
	duration("QUERY_TIMEOUT", &c.Search.QueryTimeout)
	integer("SEARCH_LIMIT", &c.Search.DefaultLimit)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FILE", &c.Logging.FilePath)
}

func warnEnv(name, value string, err error) {
	slog.Warn("invalid_env_override",
		slog.String("key", EnvPrefix+name),
		slog.String("value", value),
		slog.String("error", err.Error()))
}

// Validate checks the configuration. Errors carry ErrCodeConfigInvalid.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return amanerrors.ConfigError(fmt.Sprintf(format, args...), nil).WithDetail("field", field)
	}

	if c.Corpus.Root == "" {
		return invalid("corpus.root", "corpus.root must not be empty")
	}
	if c.Index.Dir == "" {
		return invalid("index.dir", "index.dir must not be empty")
	}
	if c.Index.Workers < 0 {
		return invalid("index.workers", "index.workers must be non-negative, got %d", c.Index.Workers)
	}
	if c.Index.ExcerptChars < 0 {
		return invalid("index.excerpt_chars", "index.excerpt_chars must be non-negative, got %d", c.Index.ExcerptChars)
	}

	switch strings.ToLower(c.Cache.Backend) {
	case store.CacheBackendSQLite, store.CacheBackendBadger, store.CacheBackendMemory:
	default:
		return invalid("cache.backend", "cache.backend must be 'sqlite', 'badger' or 'memory', got %q", c.Cache.Backend)
	}

	switch strings.ToLower(c.Embeddings.Provider) {
	case "", embed.ProviderStatic, embed.ProviderOllama:
	default:
		return invalid("embeddings.provider", "embeddings.provider must be 'static' or 'ollama', got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 {
		return invalid("embeddings.dimensions", "embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}

	if c.Search.TitleBoost < 0 || c.Search.TitleBoost > 1 {
		return invalid("search.title_boost", "search.title_boost must be between 0 and 1, got %g", c.Search.TitleBoost)
	}
	if c.Search.PhraseBoost < 0 || c.Search.PhraseBoost > 1 {
		return invalid("search.phrase_boost", "search.phrase_boost must be between 0 and 1, got %g", c.Search.PhraseBoost)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxLimit < 0 {
		return invalid("search.default_limit", "search limits must be non-negative")
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return invalid("search.default_limit", "search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Search.QueryTimeout < 0 {
		return invalid("search.query_timeout", "search.query_timeout must be non-negative")
	}

	if c.Capability.MinMemoryMB < 0 {
		return invalid("capability.min_memory_mb", "capability.min_memory_mb must be non-negative, got %d", c.Capability.MinMemoryMB)
	}
	if c.Loader.Timeout < 0 {
		return invalid("loader.timeout", "loader.timeout must be non-negative")
	}
	if v := c.Loader.Vectors; v.HNSWThreshold < 0 || v.M < 0 || v.EfSearch < 0 {
		return invalid("loader.vectors", "loader.vectors values must be non-negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("logging.level", "logging.level must be 'debug', 'info', 'warn' or 'error', got %q", c.Logging.Level)
	}
	return nil
}

// CorpusDir resolves the corpus root against the project directory.
func (c *Config) CorpusDir(projectDir string) string {
	return resolve(projectDir, c.Corpus.Root)
}

// IndexDir resolves the index directory against the project directory.
func (c *Config) IndexDir(projectDir string) string {
	return resolve(projectDir, c.Index.Dir)
}

// CachePath resolves the embedding cache location. Without an explicit
// path the cache lives inside the index directory.
func (c *Config) CachePath(projectDir string) string {
	if c.Cache.Path != "" {
		return resolve(projectDir, c.Cache.Path)
	}
	name := "embeddings.db"
	if strings.EqualFold(c.Cache.Backend, store.CacheBackendBadger) {
		name = "embeddings.badger"
	}
	return filepath.Join(c.IndexDir(projectDir), name)
}

// CorpusOptions returns the corpus loader options.
func (c *Config) CorpusOptions() corpus.LoadOptions {
	return corpus.LoadOptions{
		Extensions: c.Corpus.Extensions,
		Exclude:    c.Corpus.Exclude,
	}
}

// MinMemoryBytes converts the capability memory floor to bytes.
func (c *Config) MinMemoryBytes() uint64 {
	return uint64(c.Capability.MinMemoryMB) << 20
}

// WriteYAML writes the configuration to w.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return enc.Close()
}

func resolve(base, p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
