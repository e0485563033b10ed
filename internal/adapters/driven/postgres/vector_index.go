package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex implements driven.VectorIndex on a pgvector table.
// Namespaces are a column; every statement is scoped by it.
type VectorIndex struct {
	db    *DB
	table string
}

// NewVectorIndex creates a pgvector-backed index stored in table.
func NewVectorIndex(db *DB, table string) *VectorIndex {
	return &VectorIndex{db: db, table: table}
}

func (v *VectorIndex) ident() string {
	return pq.QuoteIdentifier(v.table)
}

// CreateIndex creates the table and its HNSW cosine index.
// An existing table is kept; its dimension must match spec.
func (v *VectorIndex) CreateIndex(ctx context.Context, spec domain.IndexSpec) error {
	if spec.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}
	if spec.Metric != "" && spec.Metric != "cosine" {
		return fmt.Errorf("%w: pgvector backend supports cosine only, got %s", domain.ErrInvalidInput, spec.Metric)
	}

	existing, err := v.dimension(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		if existing != spec.Dimension {
			return fmt.Errorf("%w: table %s has dimension %d, embeddings have %d",
				domain.ErrDimensionMismatch, v.table, existing, spec.Dimension)
		}
		return nil
	}

	for _, stmt := range v.createStatements(spec.Dimension) {
		if _, err := v.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create index: %w", domain.ErrIndexUnavailable, err)
		}
	}

	slog.Info("created pgvector index", "table", v.table, "dimension", spec.Dimension)
	return nil
}

// createStatements builds the DDL for the vector table, including the vector
// extension, which schema.sql leaves out.
func (v *VectorIndex) createStatements(dimension int) []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			namespace   TEXT NOT NULL,
			id          TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}',
			chunk_index INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (namespace, id)
		)`, v.ident(), dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)",
			pq.QuoteIdentifier(v.table+"_embedding_idx"), v.ident()),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s ((metadata->>'title'))",
			pq.QuoteIdentifier(v.table+"_title_idx"), v.ident()),
	}
}

// dimension reads the vector typmod of the embedding column; 0 when the table is missing.
func (v *VectorIndex) dimension(ctx context.Context) (int, error) {
	query := `
		SELECT a.atttypmod
		FROM pg_attribute a
		WHERE a.attrelid = to_regclass($1) AND a.attname = 'embedding'
	`
	var typmod int
	err := v.db.QueryRowContext(ctx, query, v.ident()).Scan(&typmod)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read dimension: %w", domain.ErrIndexUnavailable, err)
	}
	return typmod, nil
}

// Upsert writes all records in one transaction.
func (v *VectorIndex) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (namespace, id, embedding, metadata, chunk_index)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (namespace, id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			chunk_index = EXCLUDED.chunk_index
	`, v.ident())

	err := v.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			meta, err := json.Marshal(r.Metadata.Map())
			if err != nil {
				return fmt.Errorf("marshal metadata for %s: %w", r.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, namespace, r.ID, pgvector.NewVector(r.Values), meta, r.Metadata.ChunkIndex); err != nil {
				return fmt.Errorf("upsert %s: %w", r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// isZero reports whether every component is zero.
func isZero(vec []float32) bool {
	for _, x := range vec {
		if x != 0 {
			return false
		}
	}
	return true
}

// buildQuery renders the SELECT for q. Cosine distance is undefined for a
// zero vector, so that case scores 0 and orders by chunk index.
func (v *VectorIndex) buildQuery(q domain.VectorQuery) (string, []any) {
	args := []any{q.Namespace}
	where := []string{"namespace = $1"}

	keys := make([]string, 0, len(q.Filter))
	for k := range q.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k, q.Filter[k])
		where = append(where, fmt.Sprintf("metadata->>$%d = $%d", len(args)-1, len(args)))
	}

	var score, order string
	if isZero(q.Vector) {
		score = "0::float8"
		order = "chunk_index, id"
	} else {
		args = append(args, pgvector.NewVector(q.Vector))
		n := len(args)
		score = fmt.Sprintf("1 - (embedding <=> $%d)", n)
		order = fmt.Sprintf("embedding <=> $%d, id", n)
	}

	args = append(args, q.TopK)
	query := fmt.Sprintf("SELECT id, %s AS score, metadata FROM %s WHERE %s ORDER BY %s LIMIT $%d",
		score, v.ident(), strings.Join(where, " AND "), order, len(args))
	return query, args
}

// Query returns up to TopK matches in descending score order.
func (v *VectorIndex) Query(ctx context.Context, q domain.VectorQuery) ([]domain.VectorMatch, error) {
	if q.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidInput)
	}

	query, args := v.buildQuery(q)
	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var matches []domain.VectorMatch
	for rows.Next() {
		var (
			m   domain.VectorMatch
			raw []byte
		)
		if err := rows.Scan(&m.ID, &m.Score, &raw); err != nil {
			return nil, fmt.Errorf("%w: scan match: %w", domain.ErrIndexUnavailable, err)
		}
		if q.IncludeMetadata {
			var meta map[string]any
			if err := json.Unmarshal(raw, &meta); err != nil {
				return nil, fmt.Errorf("decode metadata for %s: %w", m.ID, err)
			}
			m.Metadata = domain.MetadataFromMap(meta)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return matches, nil
}

// Delete removes records by id; unknown ids are ignored.
func (v *VectorIndex) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE namespace = $1 AND id = ANY($2)", v.ident())
	if _, err := v.db.ExecContext(ctx, query, namespace, pq.Array(ids)); err != nil {
		return fmt.Errorf("%w: delete: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// DescribeStats counts records per namespace.
func (v *VectorIndex) DescribeStats(ctx context.Context) (*domain.IndexStats, error) {
	dim, err := v.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, fmt.Errorf("%w: table %s", domain.ErrNotFound, v.table)
	}

	query := fmt.Sprintf("SELECT namespace, COUNT(*) FROM %s GROUP BY namespace", v.ident())
	rows, err := v.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: stats: %w", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	stats := &domain.IndexStats{Dimension: dim, Namespaces: make(map[string]domain.NamespaceStats)}
	for rows.Next() {
		var (
			ns    string
			count int64
		)
		if err := rows.Scan(&ns, &count); err != nil {
			return nil, fmt.Errorf("%w: scan stats: %w", domain.ErrIndexUnavailable, err)
		}
		stats.Namespaces[ns] = domain.NamespaceStats{VectorCount: count}
		stats.TotalVectorCount += count
	}
	return stats, rows.Err()
}

// HealthCheck verifies the database answers.
func (v *VectorIndex) HealthCheck(ctx context.Context) error {
	if err := v.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}
