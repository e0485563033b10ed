// Package pinecone implements the vector index port against Pinecone's REST API.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/restclient"
	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorIndex = (*Index)(nil)

const (
	// DefaultControlURL is the Pinecone control plane
	DefaultControlURL = "https://api.pinecone.io"

	apiVersion = "2024-07"
)

// Config holds Pinecone connection settings.
type Config struct {
	APIKey     string
	IndexName  string
	ControlURL string

	// Host is the data-plane host. Resolved from the control plane when empty.
	Host string

	// ReadyTimeout bounds the wait for a newly created index
	ReadyTimeout time.Duration

	Options restclient.Options
}

// Index is a Pinecone-backed VectorIndex.
type Index struct {
	cfg     Config
	headers map[string]string
	control *restclient.Client

	mu   sync.Mutex
	data *restclient.Client
}

// New creates a Pinecone index client.
func New(cfg Config) (*Index, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: pinecone API key is required", domain.ErrInvalidInput)
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("%w: pinecone index name is required", domain.ErrInvalidInput)
	}
	if cfg.ControlURL == "" {
		cfg.ControlURL = DefaultControlURL
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}

	headers := map[string]string{
		"Api-Key":                cfg.APIKey,
		"X-Pinecone-API-Version": apiVersion,
	}

	idx := &Index{
		cfg:     cfg,
		headers: headers,
		control: restclient.New(cfg.ControlURL, headers, cfg.Options),
	}
	if cfg.Host != "" {
		idx.data = restclient.New(normaliseHost(cfg.Host), headers, cfg.Options)
	}
	return idx, nil
}

func normaliseHost(host string) string {
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return host
	}
	return "https://" + host
}

type indexDescription struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Host      string `json:"host"`
	Status    struct {
		Ready bool   `json:"ready"`
		State string `json:"state"`
	} `json:"status"`
}

func (i *Index) describe(ctx context.Context) (*indexDescription, error) {
	var desc indexDescription
	if err := i.control.Do(ctx, http.MethodGet, "/indexes/"+url.PathEscape(i.cfg.IndexName), nil, &desc); err != nil {
		if restclient.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: index %s", domain.ErrNotFound, i.cfg.IndexName)
		}
		return nil, fmt.Errorf("%w: describe index: %w", domain.ErrIndexUnavailable, err)
	}
	return &desc, nil
}

// dataClient returns the data-plane client, resolving the host on first use.
func (i *Index) dataClient(ctx context.Context) (*restclient.Client, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.data != nil {
		return i.data, nil
	}
	desc, err := i.describe(ctx)
	if err != nil {
		return nil, err
	}
	if desc.Host == "" {
		return nil, fmt.Errorf("%w: index %s has no host yet", domain.ErrIndexUnavailable, i.cfg.IndexName)
	}
	i.data = restclient.New(normaliseHost(desc.Host), i.headers, i.cfg.Options)
	return i.data, nil
}

type createIndexRequest struct {
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
	Spec      struct {
		Serverless struct {
			Cloud  string `json:"cloud"`
			Region string `json:"region"`
		} `json:"serverless"`
	} `json:"spec"`
}

// CreateIndex creates a serverless index and waits until it is ready.
// An existing index is left untouched; a dimension disagreement is reported.
func (i *Index) CreateIndex(ctx context.Context, spec domain.IndexSpec) error {
	if spec.Name == "" {
		spec.Name = i.cfg.IndexName
	}
	if spec.Metric == "" {
		spec.Metric = "cosine"
	}

	req := createIndexRequest{Name: spec.Name, Dimension: spec.Dimension, Metric: spec.Metric}
	req.Spec.Serverless.Cloud = spec.Cloud
	req.Spec.Serverless.Region = spec.Region

	err := i.control.Do(ctx, http.MethodPost, "/indexes", req, nil)
	switch {
	case err == nil:
		slog.Info("created pinecone index", "name", spec.Name, "dimension", spec.Dimension, "metric", spec.Metric)
	case restclient.IsStatus(err, http.StatusConflict):
		slog.Debug("pinecone index already exists", "name", spec.Name)
	default:
		return fmt.Errorf("%w: create index: %w", domain.ErrIndexUnavailable, err)
	}

	return i.waitReady(ctx, spec.Dimension)
}

func (i *Index) waitReady(ctx context.Context, dimension int) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	eb.MaxElapsedTime = i.cfg.ReadyTimeout

	var desc *indexDescription
	op := func() error {
		d, err := i.describe(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !d.Status.Ready {
			return fmt.Errorf("%w: index %s is %s", domain.ErrIndexUnavailable, d.Name, d.Status.State)
		}
		desc = d
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(eb, ctx)); err != nil {
		return err
	}

	if dimension > 0 && desc.Dimension != 0 && desc.Dimension != dimension {
		return fmt.Errorf("%w: index %s has dimension %d, embeddings have %d",
			domain.ErrDimensionMismatch, desc.Name, desc.Dimension, dimension)
	}

	i.mu.Lock()
	if i.data == nil && desc.Host != "" {
		i.data = restclient.New(normaliseHost(desc.Host), i.headers, i.cfg.Options)
	}
	i.mu.Unlock()
	return nil
}

type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace"`
}

// Upsert writes records into namespace.
func (i *Index) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	client, err := i.dataClient(ctx)
	if err != nil {
		return err
	}

	req := upsertRequest{Namespace: namespace, Vectors: make([]vector, len(records))}
	for n, r := range records {
		req.Vectors[n] = vector{ID: r.ID, Values: r.Values, Metadata: r.Metadata.Map()}
	}

	var resp struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	if err := client.Do(ctx, http.MethodPost, "/vectors/upsert", req, &resp); err != nil {
		return fmt.Errorf("%w: upsert: %w", domain.ErrIndexUnavailable, err)
	}
	if resp.UpsertedCount != 0 && resp.UpsertedCount != len(records) {
		return fmt.Errorf("%w: upserted %d of %d records", domain.ErrIndexUnavailable, resp.UpsertedCount, len(records))
	}
	return nil
}

type queryRequest struct {
	Namespace       string         `json:"namespace"`
	Vector          []float32      `json:"vector"`
	TopK            int            `json:"topK"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
	IncludeValues   bool           `json:"includeValues"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

// Query runs a similarity query inside one namespace.
func (i *Index) Query(ctx context.Context, q domain.VectorQuery) ([]domain.VectorMatch, error) {
	if q.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidInput)
	}
	client, err := i.dataClient(ctx)
	if err != nil {
		return nil, err
	}

	req := queryRequest{
		Namespace:       q.Namespace,
		Vector:          q.Vector,
		TopK:            q.TopK,
		IncludeMetadata: q.IncludeMetadata,
		Filter:          buildFilter(q.Filter),
	}

	var resp queryResponse
	if err := client.Do(ctx, http.MethodPost, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrIndexUnavailable, err)
	}

	matches := make([]domain.VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, domain.VectorMatch{
			ID:       m.ID,
			Score:    m.Score,
			Metadata: domain.MetadataFromMap(m.Metadata),
		})
	}
	return matches, nil
}

// buildFilter turns equality constraints into Pinecone's filter language.
func buildFilter(filter map[string]string) map[string]any {
	if len(filter) == 0 {
		return nil
	}
	out := make(map[string]any, len(filter))
	for k, v := range filter {
		out[k] = map[string]any{"$eq": v}
	}
	return out
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace"`
}

// Delete removes records by id. Pinecone ignores unknown ids.
func (i *Index) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	client, err := i.dataClient(ctx)
	if err != nil {
		return err
	}
	if err := client.Do(ctx, http.MethodPost, "/vectors/delete", deleteRequest{IDs: ids, Namespace: namespace}, nil); err != nil {
		return fmt.Errorf("%w: delete: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

type statsResponse struct {
	Dimension        int   `json:"dimension"`
	TotalVectorCount int64 `json:"totalVectorCount"`
	Namespaces       map[string]struct {
		VectorCount int64 `json:"vectorCount"`
	} `json:"namespaces"`
}

// DescribeStats returns per-namespace vector counts.
func (i *Index) DescribeStats(ctx context.Context) (*domain.IndexStats, error) {
	client, err := i.dataClient(ctx)
	if err != nil {
		return nil, err
	}

	var resp statsResponse
	if err := client.Do(ctx, http.MethodPost, "/describe_index_stats", struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("%w: describe stats: %w", domain.ErrIndexUnavailable, err)
	}

	stats := &domain.IndexStats{
		Dimension:        resp.Dimension,
		TotalVectorCount: resp.TotalVectorCount,
		Namespaces:       make(map[string]domain.NamespaceStats, len(resp.Namespaces)),
	}
	for name, ns := range resp.Namespaces {
		stats.Namespaces[name] = domain.NamespaceStats{VectorCount: ns.VectorCount}
	}
	return stats, nil
}

// HealthCheck verifies the data plane answers.
func (i *Index) HealthCheck(ctx context.Context) error {
	_, err := i.DescribeStats(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	return err
}
