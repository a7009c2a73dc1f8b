package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/cognidocs/internal/embedding"
	"github.com/hyperjump/cognidocs/internal/models"
)

// embedChunks embeds chunk texts in one batch and records the vectors on the chunks.
func embedChunks(ctx context.Context, embedder embedding.Embedder, chunks []*models.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		if c == nil || c.Text == "" {
			return nil, fmt.Errorf("chunk with empty text")
		}
		texts[i] = c.Text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	dims := embedder.Dimensions()
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(v), dims)
		}
		chunks[i].Embedding = v
	}
	return vectors, nil
}

// clampK bounds k to [1, models.MaxContextChunks].
func clampK(k int) int {
	if k <= 0 || k > models.MaxContextChunks {
		return models.MaxContextChunks
	}
	return k
}
