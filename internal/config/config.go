// Package config provides configuration loading and structs for the CogniDocs server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	PGVector  PGVectorConfig  `yaml:"pgvector"`
	Answer    AnswerConfig    `yaml:"answer"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	MaxUploadBytes     int64    `yaml:"max_upload_bytes"`
	MaxFiles           int      `yaml:"max_files"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
	CORSOrigins        []string `yaml:"cors_origins"`
}

// StorageConfig holds the document registry location. Empty DatabasePath keeps records in memory.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ChunkingConfig holds splitter settings, measured in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig selects the storage backend and retrieval limits.
type RetrievalConfig struct {
	Mode         string  `yaml:"mode"`
	TopK         int     `yaml:"top_k"`
	MinRelevance float64 `yaml:"min_relevance"`
}

// EmbeddingConfig holds embedding service settings (external backends only).
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKeyEnv  string `yaml:"api_key_env"`
	BaseURL    string `yaml:"base_url"`
	CacheSize  int    `yaml:"cache_size"`
	RedisURL   string `yaml:"redis_url"`
	APIKey     string `yaml:"-"`
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"-"`
}

// QdrantConfig holds connection details for a Qdrant collection.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	APIKey      string `yaml:"-"`
}

// PGVectorConfig holds the Postgres connection string and chunk table name.
type PGVectorConfig struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

// AnswerConfig holds answer composition settings.
type AnswerConfig struct {
	DemoResponses bool `yaml:"demo_responses"`
}

// WatchConfig holds inbox directory settings. PDFs dropped into these directories are ingested.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, environment overrides,
// and expands paths. A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	if cfg.Storage.DatabasePath != "" {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
	return &cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files (default ".env") into the
// process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv resolves API keys from their configured variables and applies overrides
// from COGNIDOCS_MODE, QDRANT_URL, DATABASE_URL and REDIS_URL.
func ApplyEnv(cfg *Config) {
	cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	cfg.Embedding.APIKey = os.Getenv(cfg.Embedding.APIKeyEnv)
	cfg.Qdrant.APIKey = os.Getenv(cfg.Qdrant.APIKeyEnv)
	if v := os.Getenv("COGNIDOCS_MODE"); v != "" {
		cfg.Retrieval.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.Qdrant.URL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.PGVector.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Embedding.RedisURL = v
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
