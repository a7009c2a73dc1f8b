// Package extract provides page-level text extraction from uploaded documents.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/cognidocs/internal/models"
)

// PDFExtension is the only accepted document extension.
const PDFExtension = ".pdf"

// Extractor loads documents and returns their text page by page.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether filename has an accepted document extension.
func Supported(filename string) bool {
	return strings.ToLower(filepath.Ext(filename)) == PDFExtension
}

// Extract reads the file at path and returns its pages.
// Returns ErrUnsupportedFormat for anything other than PDF.
func (e *Extractor) Extract(path string) ([]models.Page, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), models.ErrUnsupportedFormat)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts pages from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]models.Page, error) {
	switch strings.ToLower(ext) {
	case PDFExtension:
		return extractPDF(content)
	default:
		return nil, fmt.Errorf("extension %q: %w", ext, models.ErrUnsupportedFormat)
	}
}

// HasText reports whether any page carries non-whitespace text.
func HasText(pages []models.Page) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}
