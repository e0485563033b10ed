package mocks

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*MockVectorIndex)(nil)

// MockVectorIndex is an in-memory VectorIndex scored by brute-force cosine
// similarity. Ties keep insertion order. A zero query vector scores every
// record 0.
type MockVectorIndex struct {
	mu         sync.Mutex
	namespaces map[string]*mockNamespace
	indexes    map[string]domain.IndexSpec
	seq        int
	upserts    int

	// Custom behavior hooks (optional)
	UpsertFn func(namespace string, records []domain.VectorRecord) error
	QueryFn  func(query domain.VectorQuery) ([]domain.VectorMatch, error)
	DeleteFn func(namespace string, ids []string) error
	StatsFn  func() (*domain.IndexStats, error)

	// ReverseTies returns equal-score matches newest first, to simulate an
	// index that does not preserve insertion order
	ReverseTies bool
}

type mockNamespace struct {
	records map[string]mockRecord
}

type mockRecord struct {
	record domain.VectorRecord
	seq    int
}

// NewMockVectorIndex creates an empty in-memory index
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		namespaces: make(map[string]*mockNamespace),
		indexes:    make(map[string]domain.IndexSpec),
	}
}

func (m *MockVectorIndex) CreateIndex(ctx context.Context, spec domain.IndexSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[spec.Name]; !ok {
		m.indexes[spec.Name] = spec
	}
	return nil
}

func (m *MockVectorIndex) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	if m.UpsertFn != nil {
		if err := m.UpsertFn(namespace, records); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++

	ns, ok := m.namespaces[namespace]
	if !ok {
		ns = &mockNamespace{records: make(map[string]mockRecord)}
		m.namespaces[namespace] = ns
	}
	for _, r := range records {
		seq := m.seq
		if existing, ok := ns.records[r.ID]; ok {
			seq = existing.seq
		} else {
			m.seq++
		}
		values := make([]float32, len(r.Values))
		copy(values, r.Values)
		r.Values = values
		ns.records[r.ID] = mockRecord{record: r, seq: seq}
	}
	return nil
}

func (m *MockVectorIndex) Query(ctx context.Context, query domain.VectorQuery) ([]domain.VectorMatch, error) {
	if m.QueryFn != nil {
		return m.QueryFn(query)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.namespaces[query.Namespace]
	if !ok {
		return []domain.VectorMatch{}, nil
	}

	type scored struct {
		match domain.VectorMatch
		seq   int
	}
	var candidates []scored
	for _, rec := range ns.records {
		if !matchesFilter(rec.record.Metadata, query.Filter) {
			continue
		}
		match := domain.VectorMatch{ID: rec.record.ID, Score: cosine(query.Vector, rec.record.Values)}
		if query.IncludeMetadata {
			match.Metadata = rec.record.Metadata
		}
		candidates = append(candidates, scored{match: match, seq: rec.seq})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		if m.ReverseTies {
			return candidates[i].seq > candidates[j].seq
		}
		return candidates[i].seq < candidates[j].seq
	})

	if query.TopK > 0 && len(candidates) > query.TopK {
		candidates = candidates[:query.TopK]
	}
	matches := make([]domain.VectorMatch, len(candidates))
	for i, c := range candidates {
		matches[i] = c.match
	}
	return matches, nil
}

func (m *MockVectorIndex) Delete(ctx context.Context, namespace string, ids []string) error {
	if m.DeleteFn != nil {
		if err := m.DeleteFn(namespace, ids); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ns, ok := m.namespaces[namespace]; ok {
		for _, id := range ids {
			delete(ns.records, id)
		}
	}
	return nil
}

func (m *MockVectorIndex) DescribeStats(ctx context.Context) (*domain.IndexStats, error) {
	if m.StatsFn != nil {
		return m.StatsFn()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &domain.IndexStats{Namespaces: make(map[string]domain.NamespaceStats)}
	for name, ns := range m.namespaces {
		if len(ns.records) == 0 {
			continue
		}
		count := int64(len(ns.records))
		stats.Namespaces[name] = domain.NamespaceStats{VectorCount: count}
		stats.TotalVectorCount += count
	}
	return stats, nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

// Helper methods for testing

// Record returns a stored record by id
func (m *MockVectorIndex) Record(namespace, id string) (domain.VectorRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[namespace]
	if !ok {
		return domain.VectorRecord{}, false
	}
	rec, ok := ns.records[id]
	return rec.record, ok
}

// Count returns the number of records in a namespace
func (m *MockVectorIndex) Count(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ns, ok := m.namespaces[namespace]; ok {
		return len(ns.records)
	}
	return 0
}

// UpsertCalls returns how many upserts reached the store
func (m *MockVectorIndex) UpsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts
}

// HasIndex reports whether CreateIndex registered name
func (m *MockVectorIndex) HasIndex(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.indexes[name]
	return ok
}

func matchesFilter(meta domain.RecordMetadata, filter map[string]string) bool {
	if len(filter) == 0 {
		return true
	}
	fields := meta.Map()
	for k, want := range filter {
		v, ok := fields[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
