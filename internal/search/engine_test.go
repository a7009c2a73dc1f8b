package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/cognidocs/internal/answer"
	"github.com/hyperjump/cognidocs/internal/extract"
	"github.com/hyperjump/cognidocs/internal/indexer"
	"github.com/hyperjump/cognidocs/internal/models"
	"github.com/hyperjump/cognidocs/internal/storage"
	"github.com/hyperjump/cognidocs/internal/vector"
)

type echoGenerator struct {
	calls int
	err   error
}

func (g *echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "Tesla's revenue was $96.8 billion in 2023.", nil
}

type brokenStore struct {
	*vector.MemoryStore
}

func (brokenStore) Retrieve(context.Context, string, int) ([]*models.ScoredChunk, error) {
	return nil, errors.New("connection refused")
}

type fixture struct {
	engine  *Engine
	indexer *indexer.Indexer
	gen     *echoGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := vector.NewMemoryStore(0)
	registry := storage.NewMemoryStorage()
	gen := &echoGenerator{}
	return &fixture{
		engine:  NewEngine(store, registry, answer.NewComposer(gen), 3),
		indexer: indexer.NewIndexer(store, registry, indexer.NewChunker(1000, 200), extract.NewExtractor()),
		gen:     gen,
	}
}

func TestEngine_AnswersFromIngestedDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.indexer.Ingest(ctx, "tesla.pdf", []models.Page{{Number: 1, Text: "Tesla revenue grew to $96.8 billion in 2023."}}); err != nil {
		t.Fatal(err)
	}
	ans, err := f.engine.Query(ctx, &models.QueryRequest{Question: "What was Tesla's revenue?"})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Answer == "" || ans.ContextUsed != 1 || ans.Error {
		t.Fatalf("unexpected answer %+v", ans)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Document != "tesla.pdf" || ans.Sources[0].Relevance != "high" {
		t.Errorf("unexpected sources %+v", ans.Sources)
	}
}

func TestEngine_EmptyKnowledgeBaseFallback(t *testing.T) {
	f := newFixture(t)
	ans, err := f.engine.Query(context.Background(), &models.QueryRequest{Question: "How many moons does Jupiter have?"})
	if err != nil {
		t.Fatal(err)
	}
	if ans.Answer != answer.FallbackAnswer || len(ans.Sources) != 0 || ans.Suggestion == "" {
		t.Errorf("unexpected answer %+v", ans)
	}
	if f.gen.calls != 0 {
		t.Errorf("language model called %d times for empty context", f.gen.calls)
	}
}

func TestEngine_NeverMoreThanThreeChunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		text := fmt.Sprintf("quarterly revenue report number %d", i)
		if _, err := f.indexer.Ingest(ctx, fmt.Sprintf("r%d.pdf", i), []models.Page{{Number: 1, Text: text}}); err != nil {
			t.Fatal(err)
		}
	}
	for _, max := range []int{0, 2, 3, 50} {
		ans, err := f.engine.Query(ctx, &models.QueryRequest{Question: "quarterly revenue report", MaxResults: max})
		if err != nil {
			t.Fatal(err)
		}
		if ans.ContextUsed > 3 || len(ans.Sources) > 3 {
			t.Errorf("max_results=%d: context %d, sources %d", max, ans.ContextUsed, len(ans.Sources))
		}
		if max == 2 && ans.ContextUsed != 2 {
			t.Errorf("max_results=2: context %d", ans.ContextUsed)
		}
	}
}

func TestEngine_OmitSources(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.indexer.Ingest(ctx, "tesla.pdf", []models.Page{{Number: 1, Text: "Tesla revenue grew."}})
	no := false
	ans, _ := f.engine.Query(ctx, &models.QueryRequest{Question: "tesla revenue", IncludeSources: &no})
	if len(ans.Sources) != 0 || ans.ContextUsed != 1 {
		t.Errorf("unexpected answer %+v", ans)
	}
}

func TestEngine_InvalidQuery(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Query(context.Background(), &models.QueryRequest{Question: "   "})
	if !errors.Is(err, models.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestEngine_SoftFailures(t *testing.T) {
	ctx := context.Background()
	registry := storage.NewMemoryStorage()

	engine := NewEngine(brokenStore{vector.NewMemoryStore(0)}, registry, answer.NewComposer(&echoGenerator{}), 3)
	ans, err := engine.Query(ctx, &models.QueryRequest{Question: "anything"})
	if err != nil || !ans.Error || ans.Answer != RetrievalErrorAnswer {
		t.Errorf("retrieval failure: %+v, %v", ans, err)
	}

	store := vector.NewMemoryStore(0)
	_ = store.Add(ctx, []*models.Chunk{{ID: "1", Text: "tesla revenue", SourceDocument: "t.pdf", PageNumber: 1, TotalChunks: 1}})
	engine = NewEngine(store, registry, answer.NewComposer(&echoGenerator{err: errors.New("timeout")}), 3)
	ans, err = engine.Query(ctx, &models.QueryRequest{Question: "tesla revenue"})
	if err != nil || !ans.Error || len(ans.Sources) != 0 || !strings.Contains(ans.Answer, "error") {
		t.Errorf("generation failure: %+v, %v", ans, err)
	}
}

func TestEngine_StatusIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.indexer.Ingest(ctx, "a.pdf", []models.Page{{Number: 1, Text: "alpha"}})
	_, _ = f.indexer.Ingest(ctx, "b.pdf", nil)

	first, err := f.engine.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := f.engine.Status(ctx)
	if *first != *second {
		t.Errorf("status changed without ingestion: %+v vs %+v", first, second)
	}
	if first.Mode != "memory" || first.DocumentsCount != 1 || first.ChunkCount != 1 {
		t.Errorf("unexpected status %+v", first)
	}
}

func TestSnippet(t *testing.T) {
	if Snippet("short", 10) != "short" {
		t.Error("short string should be unchanged")
	}
	if got := Snippet("long text\nhere", 4); got != "long..." {
		t.Errorf("got %s", got)
	}
	if got := Snippet("héllo wörld", 5); got != "héllo..." {
		t.Errorf("rune-safe truncation failed: %s", got)
	}
}
