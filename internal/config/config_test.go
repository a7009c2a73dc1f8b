package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
chunking:
  chunk_size: 500
  chunk_overlap: 50
retrieval:
  mode: qdrant
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COGNIDOCS_MODE", "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Chunking.ChunkSize != 500 || cfg.Chunking.ChunkOverlap != 50 {
		t.Errorf("unexpected chunking config: %+v", cfg.Chunking)
	}
	if cfg.Retrieval.Mode != ModeQdrant {
		t.Errorf("mode = %q, want qdrant", cfg.Retrieval.Mode)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	t.Setenv("COGNIDOCS_MODE", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing config should not fail: %v", err)
	}
	if cfg.Retrieval.Mode != ModeMemory {
		t.Errorf("mode = %q, want memory", cfg.Retrieval.Mode)
	}
	if cfg.Chunking.ChunkSize != 1000 || cfg.Chunking.ChunkOverlap != 200 {
		t.Errorf("chunking defaults: %+v", cfg.Chunking)
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/registry.db"
watch:
  directories: ["./inbox"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "registry.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("COGNIDOCS_MODE", "PGVECTOR")
	t.Setenv("DATABASE_URL", "postgres://localhost/docs")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg := &Config{}
	ApplyDefaults(cfg)
	ApplyEnv(cfg)
	if cfg.LLM.APIKey != "sk-test" || cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("api keys not resolved: llm=%q embedding=%q", cfg.LLM.APIKey, cfg.Embedding.APIKey)
	}
	if cfg.Retrieval.Mode != ModePGVector {
		t.Errorf("mode = %q", cfg.Retrieval.Mode)
	}
	if cfg.PGVector.URL != "postgres://localhost/docs" || cfg.Qdrant.URL != "http://qdrant:6333" {
		t.Errorf("urls not overridden: %+v %+v", cfg.PGVector, cfg.Qdrant)
	}
	if cfg.Embedding.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("redis url = %q", cfg.Embedding.RedisURL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("COGNIDOCS_TEST_DOTENV=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COGNIDOCS_TEST_DOTENV", "")
	os.Unsetenv("COGNIDOCS_TEST_DOTENV")
	if err := LoadDotEnv(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("COGNIDOCS_TEST_DOTENV"); got != "from-file" {
		t.Errorf("COGNIDOCS_TEST_DOTENV = %q", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes != 10<<20 {
		t.Errorf("default max upload: got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Retrieval.TopK != 3 || cfg.Retrieval.MinRelevance != 0.1 {
		t.Errorf("retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.LLM.Temperature != 0.1 || cfg.LLM.MaxTokens != 500 {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("embedding dimensions: got %d", cfg.Embedding.Dimensions)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("cors origins: %v", cfg.Server.CORSOrigins)
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	w := &WatchConfig{}
	if !w.RecursiveOrDefault() {
		t.Error("nil should mean recursive")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false should be honored")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "saved.yaml")
	cfg := &Config{Server: ServerConfig{Host: "localhost", Port: 9090}}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
