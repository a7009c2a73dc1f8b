package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/cognidocs/internal/embedding"
	"github.com/hyperjump/cognidocs/internal/models"
)

type fakePoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// fakeQdrant implements the handful of Qdrant REST endpoints the store uses.
type fakeQdrant struct {
	mu      sync.Mutex
	exists  bool
	size    int
	points  []fakePoint
	apiKeys []string
	failPut bool
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
	path := strings.TrimPrefix(r.URL.Path, "/collections/docs")
	switch {
	case r.Method == http.MethodGet && path == "":
		if !f.exists {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"config": map[string]any{
			"params": map[string]any{"vectors": map[string]any{"size": f.size, "distance": "Cosine"}},
		}}})
	case r.Method == http.MethodPut && path == "":
		var body struct {
			Vectors struct {
				Size int `json:"size"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.exists, f.size = true, body.Vectors.Size
		_, _ = w.Write([]byte(`{"result":true}`))
	case r.Method == http.MethodPut && path == "/points":
		if f.failPut {
			http.Error(w, `{"status":{"error":"boom"}}`, http.StatusInternalServerError)
			return
		}
		var body struct {
			Points []fakePoint `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.points = append(f.points, body.Points...)
		_, _ = w.Write([]byte(`{"result":{"status":"completed"}}`))
	case r.Method == http.MethodPost && path == "/points/search":
		var body struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		type hit struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		}
		hits := make([]hit, 0, len(f.points))
		for _, p := range f.points {
			hits = append(hits, hit{ID: p.ID, Score: CosineSimilarity(body.Vector, p.Vector), Payload: p.Payload})
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
		if len(hits) > body.Limit {
			hits = hits[:body.Limit]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": hits})
	case r.Method == http.MethodPost && path == "/points/count":
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"count": len(f.points)}})
	default:
		http.NotFound(w, r)
	}
}

func newTestQdrant(t *testing.T, fake *fakeQdrant, dims int) *QdrantStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	store, err := NewQdrantStore(context.Background(), QdrantConfig{
		URL:        srv.URL + "/",
		APIKey:     "secret",
		Collection: "docs",
	}, embedding.NewMockEmbedder(dims), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestQdrantStore_CreatesCollection(t *testing.T) {
	fake := &fakeQdrant{}
	store := newTestQdrant(t, fake, 32)
	if !fake.exists || fake.size != 32 {
		t.Errorf("collection not created with embedder dimension: exists=%v size=%d", fake.exists, fake.size)
	}
	if store.Type() != "qdrant" {
		t.Errorf("Type=%s", store.Type())
	}
	for _, k := range fake.apiKeys {
		if k != "secret" {
			t.Errorf("api-key header = %q", k)
		}
	}
}

func TestQdrantStore_DimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(&fakeQdrant{exists: true, size: 8})
	defer srv.Close()
	_, err := NewQdrantStore(context.Background(), QdrantConfig{URL: srv.URL, Collection: "docs"},
		embedding.NewMockEmbedder(16), nil)
	if err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestQdrantStore_AddRetrieveCount(t *testing.T) {
	fake := &fakeQdrant{}
	store := newTestQdrant(t, fake, 64)
	ctx := context.Background()
	chunks := []*models.Chunk{
		chunk("report.pdf", 0, "Tesla revenue grew to 96.8 billion in 2023"),
		chunk("manual.pdf", 0, "reset your password from the settings page"),
		chunk("notes.pdf", 0, "meeting notes about hiring"),
		chunk("misc.pdf", 0, "unrelated filler text"),
	}
	if err := store.Add(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	if chunks[0].Embedding == nil {
		t.Error("Add should record embeddings on chunks")
	}
	n, err := store.Count(ctx)
	if err != nil || n != 4 {
		t.Fatalf("Count=%d, %v", n, err)
	}
	results, err := store.Retrieve(ctx, "tesla revenue", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected k capped at 3, got %d", len(results))
	}
	top := results[0].Chunk
	if top.SourceDocument != "report.pdf" || top.ID != "report.pdf-0" || top.PageNumber != 1 {
		t.Errorf("unexpected top chunk %+v", top)
	}
}

func TestQdrantStore_UpsertFailure(t *testing.T) {
	fake := &fakeQdrant{failPut: true}
	store := newTestQdrant(t, fake, 16)
	err := store.Add(context.Background(), []*models.Chunk{chunk("a.pdf", 0, "text")})
	if err == nil {
		t.Fatal("expected upsert error")
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("Count=%d after failed upsert", n)
	}
}

func TestNewQdrantStore_Validation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewQdrantStore(ctx, QdrantConfig{URL: "http://x", Collection: "c"}, nil, nil); err == nil {
		t.Error("expected error without embedder")
	}
	if _, err := NewQdrantStore(ctx, QdrantConfig{}, embedding.NewMockEmbedder(4), nil); err == nil {
		t.Error("expected error without url")
	}
}
