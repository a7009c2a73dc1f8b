package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/answer"
	"github.com/hyperjump/cognidocs/internal/config"
	"github.com/hyperjump/cognidocs/internal/embedding"
	"github.com/hyperjump/cognidocs/internal/extract"
	"github.com/hyperjump/cognidocs/internal/indexer"
	"github.com/hyperjump/cognidocs/internal/llm"
	"github.com/hyperjump/cognidocs/internal/search"
	"github.com/hyperjump/cognidocs/internal/storage"
	"github.com/hyperjump/cognidocs/internal/vector"
)

const embeddingCacheTTL = 30 * 24 * time.Hour

// Components holds initialized services.
type Components struct {
	Registry storage.Storage
	Embedder embedding.Embedder
	Store    vector.Store
	Engine   *search.Engine
	Indexer  *indexer.Indexer
	redis    *redis.Client
}

// Close releases every initialized resource.
func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.Registry != nil {
		_ = c.Registry.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}

	store, err := initializeStore(ctx, cfg, c, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = store

	registry, err := initializeRegistry(cfg, store.Type())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize document registry: %w", err)
	}
	c.Registry = registry

	generator, err := initializeGenerator(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	composer := answer.NewComposer(generator,
		answer.WithDemoResponses(cfg.Answer.DemoResponses),
		answer.WithLogger(logger))

	c.Engine = search.NewEngine(store, c.Registry, composer, cfg.Retrieval.TopK, search.WithLogger(logger))
	c.Indexer = indexer.NewIndexer(store, c.Registry,
		indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap),
		extract.NewExtractor(),
		indexer.WithLogger(logger))

	logger.Info("components initialized",
		zap.String("mode", store.Type()),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("chunk_size", cfg.Chunking.ChunkSize),
		zap.Int("chunk_overlap", cfg.Chunking.ChunkOverlap))
	return c, nil
}

// initializeStore builds the configured store. When an external store cannot be reached the
// in-memory store is used instead.
func initializeStore(ctx context.Context, cfg *config.Config, c *Components, logger *zap.Logger) (vector.Store, error) {
	if cfg.Retrieval.Mode == config.ModeMemory || cfg.Retrieval.Mode == "" {
		return vector.NewStore(ctx, cfg, nil, logger)
	}

	embedder, err := initializeEmbedder(cfg, c, logger)
	if err == nil {
		c.Embedder = embedder
		var store vector.Store
		store, err = vector.NewStore(ctx, cfg, embedder, logger)
		if err == nil {
			return store, nil
		}
	}
	logger.Warn("failed to initialize external store, falling back to memory",
		zap.String("requested_mode", cfg.Retrieval.Mode),
		zap.Error(err))
	return vector.NewMemoryStore(cfg.Retrieval.MinRelevance), nil
}

func initializeEmbedder(cfg *config.Config, c *Components, logger *zap.Logger) (embedding.Embedder, error) {
	var (
		inner embedding.Embedder
		model string
	)
	switch cfg.Embedding.Provider {
	case "openai":
		if cfg.Embedding.APIKey == "" {
			return nil, fmt.Errorf("embedding provider openai needs %s", cfg.Embedding.APIKeyEnv)
		}
		e, err := embedding.NewOpenAIEmbedder(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		inner, model = e, e.Model()
	case "mock":
		inner, model = embedding.NewMockEmbedder(cfg.Embedding.Dimensions), "mock"
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, mock)", cfg.Embedding.Provider)
	}

	if cfg.Embedding.RedisURL != "" {
		client, err := embedding.NewRedisClient(cfg.Embedding.RedisURL)
		if err == nil {
			err = client.Ping(context.Background()).Err()
			if err == nil {
				c.redis = client
				logger.Info("embedding cache: redis", zap.String("model", model))
				return embedding.NewCachedEmbedder(inner, embedding.NewRedisCache(client, model, embeddingCacheTTL, logger)), nil
			}
			_ = client.Close()
		}
		logger.Warn("redis embedding cache unavailable, using in-process cache", zap.Error(err))
	}
	return embedding.NewCachedEmbedder(inner, embedding.NewEmbeddingCache(cfg.Embedding.CacheSize)), nil
}

// initializeRegistry keeps document records in SQLite when a database path is configured and
// chunks live in an external store; in-memory chunks get an in-memory registry so the two never
// disagree after a restart.
func initializeRegistry(cfg *config.Config, mode string) (storage.Storage, error) {
	if cfg.Storage.DatabasePath == "" || mode == config.ModeMemory {
		return storage.NewMemoryStorage(), nil
	}
	registry, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	return registry, nil
}

func initializeGenerator(cfg *config.Config) (llm.Generator, error) {
	switch cfg.LLM.Provider {
	case "none":
		return llm.DisabledGenerator{}, nil
	case "openai":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("llm provider openai needs %s (set llm.provider: none to run without answers)", cfg.LLM.APIKeyEnv)
		}
		gen, err := llm.NewOpenAIGenerator(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: openai, none)", cfg.LLM.Provider)
	}
}
