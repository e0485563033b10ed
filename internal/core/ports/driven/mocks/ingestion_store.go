package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

var _ driven.IngestionStore = (*MockIngestionStore)(nil)

// MockIngestionStore is an in-memory ledger
type MockIngestionStore struct {
	mu      sync.Mutex
	records map[string]*domain.IngestionRecord
}

// NewMockIngestionStore creates an empty ledger
func NewMockIngestionStore() *MockIngestionStore {
	return &MockIngestionStore{records: make(map[string]*domain.IngestionRecord)}
}

func ledgerKey(subject, title string) string {
	return subject + "\x00" + title
}

func (m *MockIngestionStore) Save(ctx context.Context, record *domain.IngestionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	m.records[ledgerKey(record.Subject, record.Title)] = &cp
	return nil
}

func (m *MockIngestionStore) Get(ctx context.Context, subject, title string) (*domain.IngestionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[ledgerKey(subject, title)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockIngestionStore) List(ctx context.Context, subject string) ([]*domain.IngestionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.IngestionRecord
	for _, rec := range m.records {
		if rec.Subject == subject {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngestedAt.Before(out[j].IngestedAt) })
	return out, nil
}

func (m *MockIngestionStore) Delete(ctx context.Context, subject, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, ledgerKey(subject, title))
	return nil
}

func (m *MockIngestionStore) Ping(ctx context.Context) error {
	return nil
}
