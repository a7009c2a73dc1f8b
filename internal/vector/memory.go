package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/cognidocs/internal/config"
	"github.com/hyperjump/cognidocs/internal/models"
	"github.com/hyperjump/cognidocs/internal/ranking"
)

// MemoryStore keeps chunks in insertion order and ranks them by word overlap.
// Contents are lost on restart.
type MemoryStore struct {
	minRelevance float64
	chunks       []*models.Chunk
	mu           sync.RWMutex
}

// NewMemoryStore creates an empty store. Chunks must score strictly above minRelevance to be
// retrieved; a non-positive value uses ranking.DefaultMinRelevance.
func NewMemoryStore(minRelevance float64) *MemoryStore {
	if minRelevance <= 0 {
		minRelevance = ranking.DefaultMinRelevance
	}
	return &MemoryStore{minRelevance: minRelevance}
}

// Type returns the store type identifier.
func (m *MemoryStore) Type() string {
	return config.ModeMemory
}

// Add appends chunks. Chunks with empty text are rejected before anything is stored.
func (m *MemoryStore) Add(_ context.Context, chunks []*models.Chunk) error {
	for _, c := range chunks {
		if c == nil || c.Text == "" {
			return fmt.Errorf("chunk with empty text")
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

// Retrieve scores every stored chunk against question and returns the top k above the threshold.
func (m *MemoryStore) Retrieve(_ context.Context, question string, k int) ([]*models.ScoredChunk, error) {
	m.mu.RLock()
	snapshot := m.chunks[:len(m.chunks):len(m.chunks)]
	m.mu.RUnlock()
	return ranking.Rank(question, snapshot, m.minRelevance, k), nil
}

// Count returns the number of stored chunks.
func (m *MemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks)), nil
}

// Chunks returns a copy of the stored chunk sequence.
func (m *MemoryStore) Chunks() []*models.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Chunk, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
