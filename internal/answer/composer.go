// Package answer turns retrieved chunks into a cited answer using the language model.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/llm"
	"github.com/hyperjump/cognidocs/internal/models"
)

const (
	// RelevanceHigh tags every source taken from the answer context.
	RelevanceHigh = "high"

	// FallbackAnswer is returned when no stored chunk is relevant to the question.
	FallbackAnswer = "I don't have enough information in the current knowledge base to answer that question. " +
		"Please upload relevant documents or try a different query."

	// FallbackSuggestion accompanies FallbackAnswer.
	FallbackSuggestion = "Upload PDF documents that cover this topic, or rephrase the question using words that appear in your documents."

	// GenerationErrorAnswer is returned when the language model call fails.
	GenerationErrorAnswer = "An error occurred while generating the answer. Please try again later."

	persona = "You are CogniDocs, an assistant that answers questions about the user's uploaded documents."
)

// BuildPrompt fills the fixed prompt template with the context chunks (joined by a blank line)
// and the question.
func BuildPrompt(question string, chunks []*models.ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, sc := range chunks {
		texts[i] = sc.Chunk.Text
	}
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nBased on the following context, answer the question. If the answer is not in the context, say so.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(texts, "\n\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// Composer builds answers from retrieved context.
type Composer struct {
	generator     llm.Generator
	demoResponses bool
	logger        *zap.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithDemoResponses enables canned answers for a few well-known questions when no context is found.
func WithDemoResponses(enabled bool) Option {
	return func(c *Composer) { c.demoResponses = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewComposer creates a composer backed by generator. A nil generator behaves as llm.DisabledGenerator.
func NewComposer(generator llm.Generator, opts ...Option) *Composer {
	if generator == nil {
		generator = llm.DisabledGenerator{}
	}
	c := &Composer{generator: generator, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose answers question from chunks (best first, at most models.MaxContextChunks are used).
// With no chunks it returns the fallback (or a canned demo answer) without calling the model.
// A model failure yields a well-formed answer with Error set, together with an error wrapping
// models.ErrGeneration for the caller to log.
func (c *Composer) Compose(ctx context.Context, question string, chunks []*models.ScoredChunk) (*models.Answer, error) {
	if len(chunks) > models.MaxContextChunks {
		chunks = chunks[:models.MaxContextChunks]
	}
	if len(chunks) == 0 {
		return c.fallback(question), nil
	}

	text, err := c.generator.Generate(ctx, BuildPrompt(question, chunks))
	if err != nil {
		return &models.Answer{
			Answer:      GenerationErrorAnswer,
			Sources:     []models.Source{},
			ContextUsed: len(chunks),
			Error:       true,
		}, fmt.Errorf("%w: %w", models.ErrGeneration, err)
	}

	sources := make([]models.Source, len(chunks))
	for i, sc := range chunks {
		sources[i] = models.Source{
			Document:   sc.Chunk.SourceDocument,
			PageNumber: sc.Chunk.PageNumber,
			ChunkIndex: sc.Chunk.ChunkIndex,
			Relevance:  RelevanceHigh,
		}
	}
	return &models.Answer{
		Answer:      strings.TrimSpace(text),
		Sources:     sources,
		ContextUsed: len(chunks),
	}, nil
}

func (c *Composer) fallback(question string) *models.Answer {
	if c.demoResponses {
		if demo, ok := matchDemo(question); ok {
			c.logger.Debug("serving canned demo answer", zap.String("keyword", demo.keyword))
			return &models.Answer{
				Answer:  demo.answer,
				Sources: []models.Source{demo.source},
			}
		}
	}
	return &models.Answer{
		Answer:     FallbackAnswer,
		Sources:    []models.Source{},
		Suggestion: FallbackSuggestion,
	}
}
