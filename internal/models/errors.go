package models

import "errors"

// Pipeline errors. Wrap with fmt.Errorf("%w") and classify with errors.Is.
var (
	// ErrUnsupportedFormat indicates the file is not an accepted document type.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument indicates the document yielded no extractable text.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrIngestion indicates splitting or storing a document failed.
	ErrIngestion = errors.New("ingestion failed")

	// ErrGeneration indicates the language model call failed.
	ErrGeneration = errors.New("answer generation failed")

	// ErrNoRelevantContext indicates no stored chunk cleared the relevance threshold.
	ErrNoRelevantContext = errors.New("no relevant context found")

	// ErrInvalidQuery indicates the question is missing or malformed.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// ErrorKind returns a stable identifier for err suitable for API responses.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrEmptyDocument):
		return "empty_document"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrNoRelevantContext):
		return "no_relevant_context"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "ingestion"
	}
}
