package ranking

import (
	"fmt"
	"testing"

	"github.com/hyperjump/cognidocs/internal/models"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"What was Tesla's revenue?", []string{"what", "was", "tesla", "revenue"}},
		{"Revenue revenue REVENUE", []string{"revenue"}},
		{"$96.8 billion, in 2023.", []string{"96.8", "billion", "in", "2023"}},
		{"  \t\n ", nil},
		{"-- ... !!", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for _, w := range tt.want {
				if _, ok := got[w]; !ok {
					t.Errorf("Tokenize(%q) missing %q (got %v)", tt.in, w, got)
				}
			}
		})
	}
}

func TestRelevance(t *testing.T) {
	q := Tokenize("tesla revenue growth")
	c := Tokenize("Tesla revenue grew to $96.8 billion in 2023.")
	if got := Relevance(q, c); got < 0.66 || got > 0.67 {
		t.Errorf("Relevance = %f, want 2/3", got)
	}
	if got := Relevance(Tokenize(""), c); got != 0 {
		t.Errorf("empty question should score 0, got %f", got)
	}
	if got := Relevance(q, Tokenize("")); got != 0 {
		t.Errorf("empty chunk should score 0, got %f", got)
	}
	if got := Relevance(q, Tokenize("growth revenue tesla and more words")); got != 1 {
		t.Errorf("full overlap should score 1, got %f", got)
	}
}

func TestRelevance_alwaysInUnitRange(t *testing.T) {
	questions := []string{"", "a", "a b c d", "the quick brown fox", "x y z"}
	chunks := []string{"", "a", "a b", "the lazy dog and the quick fox", "z z z z"}
	for _, q := range questions {
		for _, c := range chunks {
			got := Relevance(Tokenize(q), Tokenize(c))
			if got < 0 || got > 1 {
				t.Errorf("Relevance(%q, %q) = %f out of [0,1]", q, c, got)
			}
		}
	}
}

func chunk(text string, idx int) *models.Chunk {
	return &models.Chunk{ID: fmt.Sprintf("c%d", idx), Text: text, SourceDocument: "doc.pdf", ChunkIndex: idx}
}

func TestRank_thresholdAndOrder(t *testing.T) {
	chunks := []*models.Chunk{
		chunk("nothing relevant here", 0),
		chunk("tesla made cars", 1),
		chunk("tesla revenue grew", 2),
		chunk("tesla revenue growth accelerated", 3),
	}
	got := Rank("tesla revenue growth", chunks, DefaultMinRelevance, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	wantOrder := []int{3, 2, 1}
	for i, idx := range wantOrder {
		if got[i].Chunk.ChunkIndex != idx {
			t.Errorf("rank %d: got chunk %d, want %d", i, got[i].Chunk.ChunkIndex, idx)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestRank_tiesKeepInsertionOrder(t *testing.T) {
	chunks := []*models.Chunk{
		chunk("alpha beta", 0),
		chunk("alpha gamma", 1),
		chunk("alpha delta", 2),
	}
	got := Rank("alpha omega", chunks, DefaultMinRelevance, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
	for i, r := range got {
		if r.Chunk.ChunkIndex != i {
			t.Errorf("position %d holds chunk %d; ties must keep insertion order", i, r.Chunk.ChunkIndex)
		}
	}
}

func TestRank_neverMoreThanMaxContext(t *testing.T) {
	chunks := make([]*models.Chunk, 50)
	for i := range chunks {
		chunks[i] = chunk("shared words everywhere", i)
	}
	if got := Rank("shared words", chunks, DefaultMinRelevance, 100); len(got) != models.MaxContextChunks {
		t.Errorf("got %d results, want %d", len(got), models.MaxContextChunks)
	}
	if got := Rank("shared words", chunks, DefaultMinRelevance, 1); len(got) != 1 {
		t.Errorf("k=1 should return 1 result, got %d", len(got))
	}
}

func TestRank_thresholdIsExclusive(t *testing.T) {
	// 1 of 10 question words matches: score 0.1 exactly, which must be discarded.
	q := "w1 w2 w3 w4 w5 w6 w7 w8 w9 hit"
	if got := Rank(q, []*models.Chunk{chunk("hit", 0)}, DefaultMinRelevance, 3); len(got) != 0 {
		t.Errorf("score equal to threshold should be discarded, got %d results", len(got))
	}
}

func TestRank_emptyInputs(t *testing.T) {
	if got := Rank("anything", nil, DefaultMinRelevance, 3); got != nil {
		t.Errorf("empty knowledge base should yield nil, got %v", got)
	}
	if got := Rank("   ", []*models.Chunk{chunk("text", 0)}, DefaultMinRelevance, 3); got != nil {
		t.Errorf("empty question should yield nil, got %v", got)
	}
}
