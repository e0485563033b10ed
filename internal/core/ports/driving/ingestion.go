package driving

import (
	"context"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
)

// IngestRequest names a source file and the subject it belongs to
type IngestRequest struct {
	// Path is the local file to extract
	Path string `json:"path"`

	// Subject is the namespace the document is stored under
	Subject string `json:"subject"`

	// Title overrides the title found in metadata or the file name
	Title string `json:"title,omitempty"`

	// Difficulty is stored in record metadata; defaults to "unknown"
	Difficulty string `json:"difficulty,omitempty"`
}

// IngestionService turns source documents into vector records
type IngestionService interface {
	// Ingest extracts, chunks, embeds and upserts one document.
	// Either every record of the document is stored or none is.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error)
}

// TaskService submits and tracks background ingestion
type TaskService interface {
	// SubmitIngest queues req for a worker and returns the pending task
	SubmitIngest(ctx context.Context, req IngestRequest) (*domain.Task, error)

	// Get returns a task's current state
	Get(ctx context.Context, id string) (*domain.Task, error)
}
