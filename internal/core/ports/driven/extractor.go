package driven

import (
	"context"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
)

// TextExtractor pulls raw text and metadata out of a source file.
type TextExtractor interface {
	// Extract reads the file at path. Metadata may carry a "title" key.
	Extract(ctx context.Context, path string) (*domain.ExtractedDocument, error)

	// Formats returns the file extensions (without dot) this extractor reads
	Formats() []string
}

// ExtractorRegistry resolves extractors by file format.
type ExtractorRegistry interface {
	// Get returns the extractor for format, or nil when none is registered
	Get(format string) TextExtractor

	// Register registers an extractor for each of its formats
	Register(extractor TextExtractor)

	// Formats returns all registered formats, sorted
	Formats() []string
}
