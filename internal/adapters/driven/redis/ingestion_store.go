package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IngestionStore = (*IngestionStore)(nil)

const (
	// ingestionPrefix + subject is a hash of title -> record JSON
	ingestionPrefix = "sercha-edu:ingestions:"
)

// IngestionStore implements driven.IngestionStore with one Redis hash per subject.
type IngestionStore struct {
	client redis.UniversalClient
}

// NewIngestionStore creates a new Redis-backed ledger
func NewIngestionStore(client redis.UniversalClient) *IngestionStore {
	return &IngestionStore{client: client}
}

// Save stores the record under its subject
func (s *IngestionStore) Save(ctx context.Context, record *domain.IngestionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is required", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ingestion: %w", err)
	}
	if err := s.client.HSet(ctx, ingestionPrefix+record.Subject, record.Title, data).Err(); err != nil {
		return fmt.Errorf("failed to save ingestion: %w", err)
	}
	return nil
}

// Get retrieves the record for (subject, title)
func (s *IngestionStore) Get(ctx context.Context, subject, title string) (*domain.IngestionRecord, error) {
	data, err := s.client.HGet(ctx, ingestionPrefix+subject, title).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion: %w", err)
	}

	var record domain.IngestionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingestion: %w", err)
	}
	return &record, nil
}

// List returns every record of a subject, oldest first
func (s *IngestionStore) List(ctx context.Context, subject string) ([]*domain.IngestionRecord, error) {
	entries, err := s.client.HGetAll(ctx, ingestionPrefix+subject).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestions: %w", err)
	}

	records := make([]*domain.IngestionRecord, 0, len(entries))
	for title, data := range entries {
		var record domain.IngestionRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingestion %s: %w", title, err)
		}
		records = append(records, &record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].IngestedAt.Equal(records[j].IngestedAt) {
			return records[i].Title < records[j].Title
		}
		return records[i].IngestedAt.Before(records[j].IngestedAt)
	})
	return records, nil
}

// Delete removes the record for (subject, title)
func (s *IngestionStore) Delete(ctx context.Context, subject, title string) error {
	if err := s.client.HDel(ctx, ingestionPrefix+subject, title).Err(); err != nil {
		return fmt.Errorf("failed to delete ingestion: %w", err)
	}
	return nil
}

// Ping checks Redis is reachable
func (s *IngestionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
