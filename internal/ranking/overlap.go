// Package ranking scores stored chunks against a question by word overlap.
package ranking

import (
	"sort"
	"strings"
	"unicode"

	"github.com/hyperjump/cognidocs/internal/models"
)

// DefaultMinRelevance is the score a chunk must exceed to be used as context.
const DefaultMinRelevance = 0.1

// WordSet is a set of normalized words.
type WordSet map[string]struct{}

// Tokenize splits s on whitespace into a set of lower-cased words. Leading and trailing
// punctuation and a possessive "'s" are trimmed from each word; words that end up empty
// are dropped.
func Tokenize(s string) WordSet {
	fields := strings.Fields(strings.ToLower(s))
	set := make(WordSet, len(fields))
	for _, f := range fields {
		w := normalizeWord(f)
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func normalizeWord(w string) string {
	w = strings.TrimFunc(w, isEdgePunct)
	for _, suffix := range []string{"'s", "’s"} {
		if strings.HasSuffix(w, suffix) && len(w) > len(suffix) {
			w = strings.TrimSuffix(w, suffix)
			break
		}
	}
	return strings.TrimFunc(w, isEdgePunct)
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// Relevance returns |question ∩ chunk| / |question|, or 0 for an empty question.
// The result is always in [0, 1].
func Relevance(question, chunk WordSet) float64 {
	if len(question) == 0 {
		return 0
	}
	shared := 0
	for w := range question {
		if _, ok := chunk[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(question))
}

// Rank scores chunks against question, keeps those scoring above minRelevance, and returns
// at most k of them ordered by score descending. Ties keep the input order.
// k is capped at models.MaxContextChunks.
func Rank(question string, chunks []*models.Chunk, minRelevance float64, k int) []*models.ScoredChunk {
	if k <= 0 || k > models.MaxContextChunks {
		k = models.MaxContextChunks
	}
	q := Tokenize(question)
	if len(q) == 0 || len(chunks) == 0 {
		return nil
	}
	scored := make([]*models.ScoredChunk, 0)
	for _, ch := range chunks {
		score := Relevance(q, Tokenize(ch.Text))
		if score <= minRelevance {
			continue
		}
		scored = append(scored, &models.ScoredChunk{Chunk: ch, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
