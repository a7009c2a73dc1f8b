// Package vector holds the knowledge-base backends: an in-memory chunk list ranked by word
// overlap, and external vector indexes ranked by embedding similarity.
package vector

import (
	"context"

	"github.com/hyperjump/cognidocs/internal/models"
)

// Store is the knowledge-base backend selected at startup.
type Store interface {
	// Type returns the backend identifier ("memory", "qdrant", "pgvector").
	Type() string
	// Add stores chunks. Either all chunks become retrievable or none do.
	Add(ctx context.Context, chunks []*models.Chunk) error
	// Retrieve returns at most k chunks relevant to question, best first.
	Retrieve(ctx context.Context, question string, k int) ([]*models.ScoredChunk, error)
	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int64, error)
	Close() error
}
