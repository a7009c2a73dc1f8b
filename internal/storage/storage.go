// Package storage defines the document registry: per-filename ingestion records.
package storage

import (
	"context"

	"github.com/hyperjump/cognidocs/internal/models"
)

// Storage persists document records keyed by filename.
type Storage interface {
	// UpsertDocument inserts rec or overwrites the record with the same filename.
	UpsertDocument(ctx context.Context, rec *models.DocumentRecord) error
	// GetDocument returns the record for filename or an error wrapping models.ErrNotFound.
	GetDocument(ctx context.Context, filename string) (*models.DocumentRecord, error)
	// ListDocuments returns records ordered by filename.
	ListDocuments(ctx context.Context) ([]*models.DocumentRecord, error)
	// CountDocuments returns the number of successfully processed documents.
	CountDocuments(ctx context.Context) (int64, error)

	Close() error
}
