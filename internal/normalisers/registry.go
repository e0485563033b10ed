package normalisers

import (
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry implements NormaliserRegistry with priority-based selection.
// When multiple normalisers match a format, the highest priority one is used.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates a new normaliser registry.
func NewRegistry() *Registry {
	return &Registry{
		normalisers: make([]driven.Normaliser, 0),
	}
}

// Register registers a normaliser.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, normaliser)
}

// Get retrieves the best-matching normaliser for a format.
// Returns nil if no normaliser is registered for the format.
func (r *Registry) Get(format string) driven.Normaliser {
	matches := r.GetAll(format)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// GetAll retrieves all normalisers that match a format, highest priority first.
func (r *Registry) GetAll(format string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.Normaliser
	for _, n := range r.normalisers {
		if matchesFormat(n.SupportedFormats(), format) {
			matches = append(matches, n)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})
	return matches
}

// List returns all registered formats.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formatSet := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, f := range n.SupportedFormats() {
			formatSet[f] = struct{}{}
		}
	}

	formats := make([]string, 0, len(formatSet))
	for f := range formatSet {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Normalise runs the best normaliser for format, or returns content unchanged.
func (r *Registry) Normalise(content, format string) string {
	if n := r.Get(format); n != nil {
		return n.Normalise(content, format)
	}
	return content
}

// matchesFormat checks if any supported format matches. "*" matches anything.
// A leading dot and letter case are ignored.
func matchesFormat(supported []string, format string) bool {
	format = normaliseFormat(format)
	for _, s := range supported {
		s = normaliseFormat(s)
		if s == "*" || s == format {
			return true
		}
	}
	return false
}

func normaliseFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// DefaultRegistry creates a registry with the built-in normalisers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PlaintextNormaliser{})
	r.Register(&MarkdownNormaliser{})
	r.Register(&HTMLNormaliser{})
	r.Register(&PDFNormaliser{})
	return r
}
