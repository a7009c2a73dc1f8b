// Package models defines core data structures for documents, chunks, queries, and answers.
package models

import "time"

// DocumentStatus is the ingestion outcome recorded for a document.
type DocumentStatus string

const (
	// StatusProcessed marks a document whose chunks are all stored.
	StatusProcessed DocumentStatus = "processed"
	// StatusFailed marks a document whose ingestion was aborted; none of its chunks are stored.
	StatusFailed DocumentStatus = "failed"
)

// Page is the extracted text of one source page. Number is 1-based; 0 means unknown.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Chunk is a bounded span of a document's text, the unit of retrieval.
type Chunk struct {
	ID             string    `json:"id" db:"id"`
	Text           string    `json:"text" db:"content"`
	SourceDocument string    `json:"source_document" db:"source_document"`
	ChunkIndex     int       `json:"chunk_index" db:"chunk_index"`
	PageNumber     int       `json:"page_number" db:"page_number"`
	TotalChunks    int       `json:"total_chunks" db:"total_chunks"`
	Embedding      []float32 `json:"-" db:"-"`
}

// ScoredChunk is a chunk returned by retrieval with its relevance score.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// DocumentRecord is per-document ingestion metadata keyed by filename.
// Re-ingesting a filename overwrites its record.
type DocumentRecord struct {
	Filename string         `json:"filename" db:"filename"`
	Chunks   int            `json:"chunks" db:"chunks"`
	Pages    int            `json:"pages" db:"pages"`
	Status   DocumentStatus `json:"status" db:"status"`
	Error    string         `json:"error,omitempty" db:"error"`
	// Fingerprint identifies the inbox file version that produced the record; empty for uploads.
	Fingerprint string    `json:"fingerprint,omitempty" db:"fingerprint"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// UploadResult is the per-file outcome of an upload.
type UploadResult struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Chunks    int    `json:"chunks"`
	Pages     int    `json:"pages"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// UploadResponse reports a batch upload. One file's failure does not roll back the others.
type UploadResponse struct {
	Message       string         `json:"message"`
	UploadedFiles []string       `json:"uploaded_files"`
	Results       []UploadResult `json:"results"`
}
