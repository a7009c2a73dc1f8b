package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/config"
	"github.com/hyperjump/cognidocs/internal/embedding"
	"github.com/hyperjump/cognidocs/internal/models"
)

// QdrantConfig holds connection details for NewQdrantStore.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantStore keeps chunk embeddings in a Qdrant collection using its REST API.
// The collection uses cosine distance and is created when missing.
type QdrantStore struct {
	url        string
	apiKey     string
	collection string
	embedder   embedding.Embedder
	client     *http.Client
	logger     *zap.Logger
}

// NewQdrantStore connects to Qdrant and ensures the collection exists with the embedder's dimension.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig, embedder embedding.Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, errors.New("qdrant store requires an embedder")
	}
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, errors.New("qdrant url and collection are required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &QdrantStore{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		embedder:   embedder,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type qdrantCollectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	var info qdrantCollectionInfo
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, &info)
	if err != nil && status != http.StatusNotFound {
		return fmt.Errorf("qdrant collection lookup: %w", err)
	}
	dims := s.embedder.Dimensions()
	if status == http.StatusOK {
		if size := info.Result.Config.Params.Vectors.Size; size != 0 && size != dims {
			return fmt.Errorf("qdrant collection %q has dimension %d, embedder produces %d", s.collection, size, dims)
		}
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dims,
			"distance": "Cosine",
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	s.logger.Info("created qdrant collection", zap.String("collection", s.collection), zap.Int("dimensions", dims))
	return nil
}

// Type returns the store type identifier.
func (s *QdrantStore) Type() string {
	return config.ModeQdrant
}

// Add embeds chunks and upserts them in one request, so the batch lands together or not at all.
func (s *QdrantStore) Add(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := embedChunks(ctx, s.embedder, chunks)
	if err != nil {
		return err
	}
	points := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		points[i] = map[string]any{
			"id":     c.ID,
			"vector": vectors[i],
			"payload": map[string]any{
				"text":            c.Text,
				"source_document": c.SourceDocument,
				"chunk_index":     c.ChunkIndex,
				"page_number":     c.PageNumber,
				"total_chunks":    c.TotalChunks,
			},
		}
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      any     `json:"id"`
		Score   float64 `json:"score"`
		Payload struct {
			Text           string `json:"text"`
			SourceDocument string `json:"source_document"`
			ChunkIndex     int    `json:"chunk_index"`
			PageNumber     int    `json:"page_number"`
			TotalChunks    int    `json:"total_chunks"`
		} `json:"payload"`
	} `json:"result"`
}

// Retrieve embeds question and returns the k nearest chunks by cosine similarity.
func (s *QdrantStore) Retrieve(ctx context.Context, question string, k int) ([]*models.ScoredChunk, error) {
	k = clampK(k)
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	req := map[string]any{
		"vector":       vec,
		"limit":        k,
		"with_payload": true,
	}
	var resp qdrantSearchResponse
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	out := make([]*models.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		if r.Payload.Text == "" {
			continue
		}
		out = append(out, &models.ScoredChunk{
			Chunk: &models.Chunk{
				ID:             fmt.Sprint(r.ID),
				Text:           r.Payload.Text,
				SourceDocument: r.Payload.SourceDocument,
				ChunkIndex:     r.Payload.ChunkIndex,
				PageNumber:     r.Payload.PageNumber,
				TotalChunks:    r.Payload.TotalChunks,
			},
			Score: r.Score,
		})
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int64, error) {
	var resp struct {
		Result struct {
			Count int64 `json:"count"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL("/points/count"), map[string]any{"exact": true}, &resp); err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return resp.Result.Count, nil
}

// Close releases idle connections.
func (s *QdrantStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *QdrantStore) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// do sends a JSON request and decodes the response into out. It returns the HTTP status code
// (0 when the request never completed) and an error for any non-2xx status.
func (s *QdrantStore) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("%s %s: %s: %s", method, url, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
