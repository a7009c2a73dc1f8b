package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/answer"
	"github.com/hyperjump/cognidocs/internal/config"
	"github.com/hyperjump/cognidocs/internal/models"
	"github.com/hyperjump/cognidocs/internal/storage"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after question are moved first",
			args:     []string{"what is revenue", "-output", "json"},
			expected: []string{"-output", "json", "what is revenue"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-output", "json", "what is revenue"},
			expected: []string{"-output", "json", "what is revenue"},
		},
		{
			name:     "question only returns unchanged",
			args:     []string{"what is revenue"},
			expected: []string{"what is revenue"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"a.pdf", "b.pdf", "-server", "http://x"},
			expected: []string{"-server", "http://x", "a.pdf", "b.pdf"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuestion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"revenue"}, "revenue"},
		{"multiple words", []string{"total", "revenue"}, "total revenue"},
		{"single quoted phrase", []string{"total revenue"}, "total revenue"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildQuestion(tt.args); got != tt.expected {
				t.Errorf("buildQuestion(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
retrieval:
  mode: qdrant
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("COGNIDOCS_MODE", "")

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 || cfg.Retrieval.Mode != config.ModeQdrant {
		t.Errorf("unexpected config: %+v %+v", cfg.Server, cfg.Retrieval)
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.LLM.Provider = "none"
	return cfg
}

func TestInitializeComponents_Memory(t *testing.T) {
	cfg := testConfig()
	c, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Store.Type() != config.ModeMemory {
		t.Errorf("store type = %s", c.Store.Type())
	}
	if _, ok := c.Registry.(*storage.MemoryStorage); !ok {
		t.Errorf("registry = %T, want *storage.MemoryStorage", c.Registry)
	}

	ctx := context.Background()
	if _, err := c.Indexer.Ingest(ctx, "manual.pdf", []models.Page{{Number: 23, Text: "Hold both scroll wheels to reset the console."}}); err != nil {
		t.Fatal(err)
	}
	ans, err := c.Engine.Query(ctx, &models.QueryRequest{Question: "How do I reset the console?"})
	if err != nil {
		t.Fatal(err)
	}
	// Generation is disabled, so retrieval finds the chunk and the answer is a soft failure.
	if !ans.Error || ans.ContextUsed != 1 || ans.Answer != answer.GenerationErrorAnswer {
		t.Errorf("unexpected answer %+v", ans)
	}
}

func TestInitializeComponents_ExternalFallsBackToMemory(t *testing.T) {
	cfg := testConfig()
	cfg.Retrieval.Mode = config.ModeQdrant
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 8
	cfg.Qdrant.URL = "http://127.0.0.1:1"
	cfg.Qdrant.TimeoutSecs = 1
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "registry.db")

	c, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Store.Type() != config.ModeMemory {
		t.Errorf("store type = %s, want memory fallback", c.Store.Type())
	}
	if _, ok := c.Registry.(*storage.MemoryStorage); !ok {
		t.Errorf("fallback should use the memory registry, got %T", c.Registry)
	}
}

func TestInitializeComponents_MissingAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = ""
	if _, err := initializeComponents(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected error when the OpenAI key is missing")
	}
}

func TestInitializeRegistry(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "registry.db")
	reg, err := initializeRegistry(cfg, config.ModePGVector)
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()
	if _, ok := reg.(*storage.SQLiteStorage); !ok {
		t.Errorf("registry = %T, want *storage.SQLiteStorage", reg)
	}
}
