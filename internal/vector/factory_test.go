package vector

import (
	"context"
	"testing"

	"github.com/hyperjump/cognidocs/internal/config"
)

func TestNewStore_Memory(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	store, err := NewStore(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewStore(memory): %v", err)
	}
	defer store.Close()
	if store.Type() != config.ModeMemory {
		t.Errorf("Type=%s", store.Type())
	}
}

func TestNewStore_Unknown(t *testing.T) {
	cfg := &config.Config{}
	cfg.Retrieval.Mode = "pinecone"
	if _, err := NewStore(context.Background(), cfg, nil, nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNewStore_ExternalWithoutEmbedder(t *testing.T) {
	for _, mode := range []string{config.ModeQdrant, config.ModePGVector} {
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		cfg.Retrieval.Mode = mode
		if _, err := NewStore(context.Background(), cfg, nil, nil); err == nil {
			t.Errorf("%s: expected error without embedder", mode)
		}
	}
}
