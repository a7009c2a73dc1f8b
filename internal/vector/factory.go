package vector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/config"
	"github.com/hyperjump/cognidocs/internal/embedding"
)

// NewStore creates the store selected by cfg.Retrieval.Mode.
// Supported modes: "memory" (default), "qdrant", "pgvector". External modes need an embedder.
func NewStore(ctx context.Context, cfg *config.Config, embedder embedding.Embedder, logger *zap.Logger) (Store, error) {
	switch cfg.Retrieval.Mode {
	case config.ModeMemory, "":
		return NewMemoryStore(cfg.Retrieval.MinRelevance), nil
	case config.ModeQdrant:
		return NewQdrantStore(ctx, QdrantConfig{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}, embedder, logger)
	case config.ModePGVector:
		if embedder == nil {
			return nil, fmt.Errorf("pgvector store requires an embedder")
		}
		db, err := OpenPostgres(ctx, cfg.PGVector.URL)
		if err != nil {
			return nil, err
		}
		store, err := NewPGVectorStore(ctx, db, cfg.PGVector.Table, embedder, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown retrieval mode: %s (supported: memory, qdrant, pgvector)", cfg.Retrieval.Mode)
	}
}
