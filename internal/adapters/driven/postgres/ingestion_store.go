package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IngestionStore = (*IngestionStore)(nil)

// IngestionStore implements driven.IngestionStore using PostgreSQL
type IngestionStore struct {
	db *DB
}

// NewIngestionStore creates a new IngestionStore
func NewIngestionStore(db *DB) *IngestionStore {
	return &IngestionStore{db: db}
}

// Save upserts the ledger row for (subject, title)
func (s *IngestionStore) Save(ctx context.Context, record *domain.IngestionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is required", domain.ErrInvalidInput)
	}

	query := `
		INSERT INTO ingestions (subject, title, format, source_path, chunk_count, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject, title) DO UPDATE SET
			format = EXCLUDED.format,
			source_path = EXCLUDED.source_path,
			chunk_count = EXCLUDED.chunk_count,
			ingested_at = EXCLUDED.ingested_at
	`

	_, err := s.db.ExecContext(ctx, query,
		record.Subject,
		record.Title,
		record.Format,
		record.SourcePath,
		record.ChunkCount,
		record.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("save ingestion: %w", err)
	}
	return nil
}

// Get retrieves the ledger row for (subject, title)
func (s *IngestionStore) Get(ctx context.Context, subject, title string) (*domain.IngestionRecord, error) {
	query := `
		SELECT subject, title, format, source_path, chunk_count, ingested_at
		FROM ingestions
		WHERE subject = $1 AND title = $2
	`

	var r domain.IngestionRecord
	err := s.db.QueryRowContext(ctx, query, subject, title).Scan(
		&r.Subject,
		&r.Title,
		&r.Format,
		&r.SourcePath,
		&r.ChunkCount,
		&r.IngestedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ingestion: %w", err)
	}
	return &r, nil
}

// List returns a subject's ledger rows, oldest first
func (s *IngestionStore) List(ctx context.Context, subject string) ([]*domain.IngestionRecord, error) {
	query := `
		SELECT subject, title, format, source_path, chunk_count, ingested_at
		FROM ingestions
		WHERE subject = $1
		ORDER BY ingested_at ASC, title ASC
	`

	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("list ingestions: %w", err)
	}
	defer rows.Close()

	var records []*domain.IngestionRecord
	for rows.Next() {
		var r domain.IngestionRecord
		if err := rows.Scan(&r.Subject, &r.Title, &r.Format, &r.SourcePath, &r.ChunkCount, &r.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan ingestion: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// Delete removes the ledger row for (subject, title)
func (s *IngestionStore) Delete(ctx context.Context, subject, title string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM ingestions WHERE subject = $1 AND title = $2", subject, title)
	if err != nil {
		return fmt.Errorf("delete ingestion: %w", err)
	}
	return nil
}

// Ping checks the database is reachable
func (s *IngestionStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
