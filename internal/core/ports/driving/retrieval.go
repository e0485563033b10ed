package driving

import (
	"context"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
)

// RetrievalService reads from the vector index, always scoped to one subject
type RetrievalService interface {
	// Fetch returns every stored chunk of a document ordered by chunk index.
	// An unknown title yields an empty slice, not an error.
	Fetch(ctx context.Context, subject, title string) ([]domain.Passage, error)

	// Search embeds query and returns matches scoring at least the threshold,
	// in descending score order. No match is an empty result, not an error.
	Search(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error)

	// ListSubjects returns every namespace in the index
	ListSubjects(ctx context.Context) ([]string, error)

	// ListTitles returns distinct titles in a subject in first-seen order.
	// topK <= 0 uses the configured default.
	ListTitles(ctx context.Context, subject string, topK int) ([]string, error)
}
