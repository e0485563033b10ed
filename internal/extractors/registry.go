package extractors

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file formats to extractors. The last registration for a
// format wins.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]driven.TextExtractor)}
}

// Register registers an extractor for each of its formats.
func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range extractor.Formats() {
		r.extractors[normaliseFormat(f)] = extractor
	}
}

// Get returns the extractor for format, or nil.
func (r *Registry) Get(format string) driven.TextExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.extractors[normaliseFormat(format)]
}

// Formats returns all registered formats, sorted.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]string, 0, len(r.extractors))
	for f := range r.extractors {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

func normaliseFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// DefaultRegistry registers the PDF and plain text extractors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPlaintextExtractor())
	r.Register(NewPDFExtractor())
	return r
}
