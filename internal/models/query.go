package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxContextChunks is the upper bound on chunks used to ground one answer.
const MaxContextChunks = 3

// QueryRequest is a question against the knowledge base.
type QueryRequest struct {
	Question       string `json:"question"`
	MaxResults     int    `json:"max_results,omitempty"`
	IncludeSources *bool  `json:"include_sources,omitempty"`
}

// UnmarshalJSON accepts the legacy "query" field as an alias for "question".
func (q *QueryRequest) UnmarshalJSON(data []byte) error {
	type plain QueryRequest
	var aux struct {
		plain
		Query string `json:"query"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*q = QueryRequest(aux.plain)
	if q.Question == "" {
		q.Question = aux.Query
	}
	return nil
}

// Validate trims the question and clamps MaxResults to [1, MaxContextChunks].
// Returns ErrInvalidQuery if the question is empty.
func (q *QueryRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return fmt.Errorf("%w: question cannot be empty", ErrInvalidQuery)
	}
	if q.MaxResults <= 0 || q.MaxResults > MaxContextChunks {
		q.MaxResults = MaxContextChunks
	}
	return nil
}

// WantSources reports whether sources should be included in the answer (default true).
func (q *QueryRequest) WantSources() bool {
	return q.IncludeSources == nil || *q.IncludeSources
}

// Source attributes part of an answer to a stored chunk.
type Source struct {
	Document   string `json:"document"`
	PageNumber int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
	Relevance  string `json:"relevance"`
}

// Answer is the response to a question. Failures keep this shape with Error set.
type Answer struct {
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	ContextUsed int      `json:"context_used"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Error       bool     `json:"error,omitempty"`
	QueryTime   int64    `json:"query_time_ms"`
}

// Status reports the active storage mode and knowledge base size.
type Status struct {
	Mode           string `json:"mode"`
	DocumentsCount int64  `json:"documents_count"`
	ChunkCount     int64  `json:"chunk_count"`
}
