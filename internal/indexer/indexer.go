package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/extract"
	"github.com/hyperjump/cognidocs/internal/fileid"
	"github.com/hyperjump/cognidocs/internal/models"
	"github.com/hyperjump/cognidocs/internal/storage"
	"github.com/hyperjump/cognidocs/internal/vector"
)

// Indexer ingests documents: it splits pages into chunks, adds them to the knowledge base
// and records the outcome per filename.
type Indexer struct {
	store     vector.Store
	registry  storage.Storage
	chunker   *Chunker
	extractor *extract.Extractor
	logger    *zap.Logger
	// mu serializes "add chunks + write record" so the record always matches the stored chunks.
	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger for ingestion events.
func WithLogger(logger *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// NewIndexer creates an indexer.
func NewIndexer(
	store vector.Store,
	registry storage.Storage,
	chunker *Chunker,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		store:     store,
		registry:  registry,
		chunker:   chunker,
		extractor: extractor,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest splits pages and adds the chunks to the knowledge base. On any failure no chunk of
// this ingestion is stored and the document is recorded as failed. Ingesting a filename again
// appends a second chunk set and overwrites the record.
func (idx *Indexer) Ingest(ctx context.Context, filename string, pages []models.Page) (*models.DocumentRecord, error) {
	return idx.ingest(ctx, filename, "", pages)
}

func (idx *Indexer) ingest(ctx context.Context, filename, fingerprint string, pages []models.Page) (*models.DocumentRecord, error) {
	start := time.Now()
	if !extract.HasText(pages) {
		return nil, idx.fail(ctx, filename, len(pages), fmt.Errorf("%s: %w", filename, models.ErrEmptyDocument))
	}
	chunks, err := idx.chunker.Split(filename, pages)
	if err != nil {
		return nil, idx.fail(ctx, filename, len(pages), err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.Add(ctx, chunks); err != nil {
		return nil, idx.recordFailure(ctx, filename, len(pages), fmt.Errorf("store chunks: %w", err))
	}
	rec := &models.DocumentRecord{
		Filename:    filename,
		Chunks:      len(chunks),
		Pages:       len(pages),
		Status:      models.StatusProcessed,
		Fingerprint: fingerprint,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := idx.registry.UpsertDocument(ctx, rec); err != nil {
		// The chunks are already searchable; the registry no longer matches the knowledge base.
		idx.logger.Error("chunks stored but document record not written",
			zap.String("filename", filename),
			zap.Int("chunks", len(chunks)),
			zap.String("store", idx.store.Type()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: record document: %w", models.ErrIngestion, err)
	}
	idx.logger.Info("document ingested",
		zap.String("filename", filename),
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(chunks)),
		zap.String("store", idx.store.Type()),
		zap.Duration("took", time.Since(start)))
	return rec, nil
}

// IngestFile extracts the PDF at path and ingests it under filename (the base name of path when empty).
// The record carries the file's fingerprint so Ingested can recognize the same version later.
func (idx *Indexer) IngestFile(ctx context.Context, path, filename string) (*models.DocumentRecord, error) {
	if filename == "" {
		filename = filepath.Base(path)
	}
	if !extract.Supported(filename) {
		return nil, fmt.Errorf("%s: %w", filename, models.ErrUnsupportedFormat)
	}
	// A file that cannot be stat'ed fails extraction below.
	fp, _ := fileid.Fingerprint(path)
	pages, err := idx.extractor.Extract(path)
	if err != nil {
		return nil, idx.fail(ctx, filename, 0, err)
	}
	return idx.ingest(ctx, filename, fp, pages)
}

// Ingested reports whether filename is recorded as processed from the file version with fingerprint.
func (idx *Indexer) Ingested(ctx context.Context, filename, fingerprint string) bool {
	if fingerprint == "" {
		return false
	}
	rec, err := idx.registry.GetDocument(ctx, filename)
	if err != nil {
		return false
	}
	return rec.Status == models.StatusProcessed && rec.Fingerprint == fingerprint
}

// IngestBytes extracts an uploaded PDF held in memory and ingests it under filename.
func (idx *Indexer) IngestBytes(ctx context.Context, filename string, content []byte) (*models.DocumentRecord, error) {
	if !extract.Supported(filename) {
		return nil, fmt.Errorf("%s: %w", filename, models.ErrUnsupportedFormat)
	}
	pages, err := idx.extractor.ExtractBytes(content, filepath.Ext(filename))
	if err != nil {
		return nil, idx.fail(ctx, filename, 0, err)
	}
	return idx.Ingest(ctx, filename, pages)
}

// Documents lists all document records.
func (idx *Indexer) Documents(ctx context.Context) ([]*models.DocumentRecord, error) {
	return idx.registry.ListDocuments(ctx)
}

// Document returns the record for filename.
func (idx *Indexer) Document(ctx context.Context, filename string) (*models.DocumentRecord, error) {
	return idx.registry.GetDocument(ctx, filename)
}

func (idx *Indexer) fail(ctx context.Context, filename string, pages int, cause error) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.recordFailure(ctx, filename, pages, cause)
}

// recordFailure writes a failed record and returns cause tagged with its error kind.
// Unsupported files are rejected without a record. Callers hold idx.mu.
func (idx *Indexer) recordFailure(ctx context.Context, filename string, pages int, cause error) error {
	if errors.Is(cause, models.ErrUnsupportedFormat) {
		idx.logger.Warn("document rejected", zap.String("filename", filename), zap.Error(cause))
		return cause
	}
	err := cause
	if !errors.Is(err, models.ErrEmptyDocument) {
		err = fmt.Errorf("%w: %w", models.ErrIngestion, cause)
	}
	rec := &models.DocumentRecord{
		Filename:  filename,
		Pages:     pages,
		Status:    models.StatusFailed,
		Error:     cause.Error(),
		UpdatedAt: time.Now().UTC(),
	}
	if regErr := idx.registry.UpsertDocument(ctx, rec); regErr != nil {
		idx.logger.Warn("failed to record ingestion failure", zap.String("filename", filename), zap.Error(regErr))
	}
	idx.logger.Warn("document ingestion failed", zap.String("filename", filename), zap.Error(err))
	return err
}
