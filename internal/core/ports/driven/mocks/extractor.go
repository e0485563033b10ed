package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

var (
	_ driven.TextExtractor     = (*MockExtractor)(nil)
	_ driven.ExtractorRegistry = (*MockExtractorRegistry)(nil)
)

// MockExtractor serves documents registered by path
type MockExtractor struct {
	mu      sync.Mutex
	docs    map[string]*domain.ExtractedDocument
	formats []string

	// ExtractFn overrides the path lookup when set
	ExtractFn func(path string) (*domain.ExtractedDocument, error)
}

// NewMockExtractor creates an extractor answering for the given formats
func NewMockExtractor(formats ...string) *MockExtractor {
	if len(formats) == 0 {
		formats = []string{"txt", "pdf"}
	}
	return &MockExtractor{
		docs:    make(map[string]*domain.ExtractedDocument),
		formats: formats,
	}
}

// Add registers the document returned for path
func (m *MockExtractor) Add(path, text string, metadata map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = &domain.ExtractedDocument{
		Text:     text,
		Metadata: metadata,
		Format:   domain.FormatFromPath(path),
	}
}

func (m *MockExtractor) Extract(ctx context.Context, path string) (*domain.ExtractedDocument, error) {
	if m.ExtractFn != nil {
		return m.ExtractFn(path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: open %s: no such file", domain.ErrExtraction, path)
	}
	return doc, nil
}

func (m *MockExtractor) Formats() []string {
	return m.formats
}

// MockExtractorRegistry resolves every registered format to its extractor
type MockExtractorRegistry struct {
	extractors map[string]driven.TextExtractor
}

// NewMockExtractorRegistry creates a registry holding the given extractors
func NewMockExtractorRegistry(extractors ...driven.TextExtractor) *MockExtractorRegistry {
	r := &MockExtractorRegistry{extractors: make(map[string]driven.TextExtractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

func (r *MockExtractorRegistry) Get(format string) driven.TextExtractor {
	return r.extractors[format]
}

func (r *MockExtractorRegistry) Register(extractor driven.TextExtractor) {
	for _, f := range extractor.Formats() {
		r.extractors[f] = extractor
	}
}

func (r *MockExtractorRegistry) Formats() []string {
	formats := make([]string, 0, len(r.extractors))
	for f := range r.extractors {
		formats = append(formats, f)
	}
	return formats
}
