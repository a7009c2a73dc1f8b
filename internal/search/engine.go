// Package search answers questions against the knowledge base.
package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/answer"
	"github.com/hyperjump/cognidocs/internal/models"
	"github.com/hyperjump/cognidocs/internal/storage"
	"github.com/hyperjump/cognidocs/internal/vector"
)

// RetrievalErrorAnswer is returned when the knowledge base cannot be searched.
const RetrievalErrorAnswer = "An error occurred while searching the knowledge base. Please try again later."

// Engine retrieves context for a question and composes the answer.
type Engine struct {
	store    vector.Store
	registry storage.Storage
	composer *answer.Composer
	topK     int
	logger   *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine. topK bounds the context size (never more than models.MaxContextChunks).
func NewEngine(store vector.Store, registry storage.Storage, composer *answer.Composer, topK int, opts ...EngineOption) *Engine {
	if topK <= 0 || topK > models.MaxContextChunks {
		topK = models.MaxContextChunks
	}
	e := &Engine{
		store:    store,
		registry: registry,
		composer: composer,
		topK:     topK,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query answers req. Only an invalid request returns an error (wrapping models.ErrInvalidQuery);
// retrieval and generation failures come back as answers with Error set.
func (e *Engine) Query(ctx context.Context, req *models.QueryRequest) (*models.Answer, error) {
	start := time.Now()
	if err := ProcessQuery(req, e.topK); err != nil {
		return nil, err
	}

	chunks, err := e.store.Retrieve(ctx, req.Question, req.MaxResults)
	if err != nil {
		e.logger.Warn("retrieval failed", zap.String("store", e.store.Type()), zap.Error(err))
		return &models.Answer{
			Answer:    RetrievalErrorAnswer,
			Sources:   []models.Source{},
			Error:     true,
			QueryTime: time.Since(start).Milliseconds(),
		}, nil
	}
	if len(chunks) == 0 {
		e.logger.Debug(models.ErrNoRelevantContext.Error(), zap.String("question", req.Question))
	}
	for _, sc := range chunks {
		e.logger.Debug("context chunk",
			zap.String("document", sc.Chunk.SourceDocument),
			zap.Int("chunk_index", sc.Chunk.ChunkIndex),
			zap.Float64("score", sc.Score),
			zap.String("text", Snippet(sc.Chunk.Text, 80)))
	}

	ans, err := e.composer.Compose(ctx, req.Question, chunks)
	if err != nil {
		e.logger.Warn("answer generation failed", zap.Int("context_chunks", len(chunks)), zap.Error(err))
	}
	if !req.WantSources() {
		ans.Sources = []models.Source{}
	}
	ans.QueryTime = time.Since(start).Milliseconds()
	return ans, nil
}

// Status reports the storage mode, processed document count and stored chunk count.
func (e *Engine) Status(ctx context.Context) (*models.Status, error) {
	docs, err := e.registry.CountDocuments(ctx)
	if err != nil {
		return nil, err
	}
	chunks, err := e.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Status{
		Mode:           e.store.Type(),
		DocumentsCount: docs,
		ChunkCount:     chunks,
	}, nil
}

// Mode returns the active storage backend identifier.
func (e *Engine) Mode() string {
	return e.store.Type()
}
