package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/cognidocs/internal/models"
)

// MemoryStorage keeps document records in a map. Contents are lost on restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string]models.DocumentRecord
}

// NewMemoryStorage returns an empty in-memory registry.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string]models.DocumentRecord)}
}

// UpsertDocument stores a copy of rec under its filename.
func (s *MemoryStorage) UpsertDocument(_ context.Context, rec *models.DocumentRecord) error {
	if rec == nil || rec.Filename == "" {
		return fmt.Errorf("document record requires a filename")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Filename] = *rec
	return nil
}

// GetDocument returns a copy of the record for filename.
func (s *MemoryStorage) GetDocument(_ context.Context, filename string) (*models.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[filename]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", filename, models.ErrNotFound)
	}
	return &rec, nil
}

// ListDocuments returns copies of all records ordered by filename.
func (s *MemoryStorage) ListDocuments(_ context.Context) ([]*models.DocumentRecord, error) {
	s.mu.RLock()
	out := make([]*models.DocumentRecord, 0, len(s.records))
	for _, rec := range s.records {
		r := rec
		out = append(out, &r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// CountDocuments returns the number of processed records.
func (s *MemoryStorage) CountDocuments(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, rec := range s.records {
		if rec.Status == models.StatusProcessed {
			n++
		}
	}
	return n, nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}
