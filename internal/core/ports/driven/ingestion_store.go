package driven

import (
	"context"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
)

// IngestionStore keeps a ledger of ingested documents.
// The vector index stays the source of truth for content; the ledger
// records chunk counts so re-ingestion can remove stale records.
type IngestionStore interface {
	// Save creates or replaces the ledger entry for (subject, title)
	Save(ctx context.Context, record *domain.IngestionRecord) error

	// Get retrieves an entry; domain.ErrNotFound when absent
	Get(ctx context.Context, subject, title string) (*domain.IngestionRecord, error)

	// List returns entries for a subject ordered by ingestion time
	List(ctx context.Context, subject string) ([]*domain.IngestionRecord, error)

	// Delete removes the entry for (subject, title)
	Delete(ctx context.Context, subject, title string) error

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}
