// Package indexer splits documents into chunks and ingests them into the knowledge base.
package indexer

import (
	"fmt"
	"unicode"

	"github.com/google/uuid"

	"github.com/hyperjump/cognidocs/internal/models"
)

// pageBreak joins consecutive pages so a page boundary splits like a paragraph boundary.
const pageBreak = "\n\n"

// DefaultSeparators are tried in order: paragraphs, lines, words, then single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text into overlapping chunks of at most chunkSize characters, preferring
// to break at the earliest separator in its list that occurs in the text.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize - 1
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
}

// span is a half-open rune range [start, end) of the document text.
type span struct {
	start, end int
}

func (s span) len() int { return s.end - s.start }

type pageRange struct {
	span
	number int
}

// Split turns the pages of filename into ordered chunks. Each chunk takes the page number
// of the page contributing most of its text (1 when unknown). Returns ErrEmptyDocument
// when the pages carry no text.
func (c *Chunker) Split(filename string, pages []models.Page) ([]*models.Chunk, error) {
	text, ranges := joinPages(pages)
	spans := c.splitSpans(text, span{0, len(text)}, c.separators)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%s: %w", filename, models.ErrEmptyDocument)
	}
	chunks := make([]*models.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = &models.Chunk{
			ID:             uuid.New().String(),
			Text:           string(text[sp.start:sp.end]),
			SourceDocument: filename,
			ChunkIndex:     i,
			PageNumber:     dominantPage(sp, ranges),
			TotalChunks:    len(spans),
		}
	}
	return chunks, nil
}

func joinPages(pages []models.Page) ([]rune, []pageRange) {
	var text []rune
	ranges := make([]pageRange, 0, len(pages))
	for _, p := range pages {
		body := []rune(Preprocess(p.Text))
		if len(body) == 0 {
			continue
		}
		if len(text) > 0 {
			text = append(text, []rune(pageBreak)...)
		}
		start := len(text)
		text = append(text, body...)
		ranges = append(ranges, pageRange{span: span{start, len(text)}, number: p.Number})
	}
	return text, ranges
}

func dominantPage(sp span, ranges []pageRange) int {
	best, bestOverlap := 0, 0
	for _, r := range ranges {
		overlap := min(sp.end, r.end) - max(sp.start, r.start)
		if overlap > bestOverlap {
			best, bestOverlap = r.number, overlap
		}
	}
	if best <= 0 {
		return 1
	}
	return best
}

func (c *Chunker) splitSpans(text []rune, sp span, separators []string) []span {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = ""
			break
		}
		if indexRunes(text[sp.start:sp.end], []rune(s)) >= 0 {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var out, good []span
	for _, piece := range splitOn(text, sp, []rune(sep)) {
		if piece.len() < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(text, good)...)
			good = nil
		}
		if len(rest) == 0 {
			if t, ok := trimSpan(text, piece); ok {
				out = append(out, t)
			}
			continue
		}
		out = append(out, c.splitSpans(text, piece, rest)...)
	}
	if len(good) > 0 {
		out = append(out, c.merge(text, good)...)
	}
	return out
}

// merge combines consecutive pieces into chunks no wider than chunkSize. After a chunk is
// emitted, its trailing pieces (at most chunkOverlap wide) start the next one.
func (c *Chunker) merge(text []rune, pieces []span) []span {
	var docs, cur []span
	width := func(extra span) int { return extra.end - cur[0].start }
	for _, p := range pieces {
		if len(cur) > 0 && width(p) > c.chunkSize {
			if t, ok := trimSpan(text, span{cur[0].start, cur[len(cur)-1].end}); ok {
				docs = append(docs, t)
			}
			for len(cur) > 0 && (width(cur[len(cur)-1]) > c.chunkOverlap || width(p) > c.chunkSize) {
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		if t, ok := trimSpan(text, span{cur[0].start, cur[len(cur)-1].end}); ok {
			docs = append(docs, t)
		}
	}
	return docs
}

// splitOn cuts sp at every occurrence of sep, dropping empty pieces.
// An empty sep yields one piece per character.
func splitOn(text []rune, sp span, sep []rune) []span {
	var pieces []span
	if len(sep) == 0 {
		for i := sp.start; i < sp.end; i++ {
			pieces = append(pieces, span{i, i + 1})
		}
		return pieces
	}
	start := sp.start
	for start <= sp.end {
		idx := indexRunes(text[start:sp.end], sep)
		end := sp.end
		if idx >= 0 {
			end = start + idx
		}
		if end > start {
			pieces = append(pieces, span{start, end})
		}
		if idx < 0 {
			break
		}
		start = end + len(sep)
	}
	return pieces
}

func indexRunes(haystack, needle []rune) int {
	n := len(needle)
	for i := 0; i+n <= len(haystack); i++ {
		match := true
		for j := 0; j < n; j++ {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func trimSpan(text []rune, sp span) (span, bool) {
	for sp.start < sp.end && unicode.IsSpace(text[sp.start]) {
		sp.start++
	}
	for sp.end > sp.start && unicode.IsSpace(text[sp.end-1]) {
		sp.end--
	}
	return sp, sp.len() > 0
}
