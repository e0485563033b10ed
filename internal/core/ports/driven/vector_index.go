package driven

import (
	"context"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
)

// VectorIndex is a client of a hosted vector index.
// Every data operation is scoped to one namespace; there is no
// cross-namespace query.
type VectorIndex interface {
	// CreateIndex creates the index described by spec.
	// It is a no-op when an index with that name already exists.
	CreateIndex(ctx context.Context, spec domain.IndexSpec) error

	// Upsert inserts or overwrites records by id within namespace.
	Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error

	// Query returns up to TopK matches ordered by descending score.
	// Filter entries are equality constraints on metadata.
	Query(ctx context.Context, query domain.VectorQuery) ([]domain.VectorMatch, error)

	// Delete removes records by id from namespace. Unknown ids are ignored.
	Delete(ctx context.Context, namespace string, ids []string) error

	// DescribeStats returns index statistics including every namespace.
	DescribeStats(ctx context.Context) (*domain.IndexStats, error)

	// HealthCheck verifies the index is reachable
	HealthCheck(ctx context.Context) error
}
