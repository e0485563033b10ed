package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// Ensure retrievalService implements RetrievalService
var _ driving.RetrievalService = (*retrievalService)(nil)

// retrievalService implements the RetrievalService interface
type retrievalService struct {
	index     driven.VectorIndex
	embedding driven.EmbeddingService
	config    domain.PipelineConfig
	logger    *slog.Logger
}

// NewRetrievalService creates a new RetrievalService
func NewRetrievalService(
	index driven.VectorIndex,
	embedding driven.EmbeddingService,
	config domain.PipelineConfig,
	logger *slog.Logger,
) driving.RetrievalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &retrievalService{
		index:     index,
		embedding: embedding,
		config:    config,
		logger:    logger,
	}
}

// Fetch returns every stored chunk of a document, ordered by chunk index
func (s *retrievalService) Fetch(ctx context.Context, subject, title string) ([]domain.Passage, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" || strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: subject and title are required", domain.ErrInvalidInput)
	}

	matches, err := s.index.Query(ctx, domain.VectorQuery{
		Namespace:       subject,
		Vector:          domain.ZeroVector(s.config.Dimension),
		TopK:            s.config.FetchTopK,
		Filter:          map[string]string{"title": title},
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, indexError("fetch", err)
	}

	passages := make([]domain.Passage, 0, len(matches))
	for _, m := range matches {
		passages = append(passages, domain.Passage{
			Title:       m.Metadata.Title,
			Text:        m.Metadata.Text,
			ChunkIndex:  m.Metadata.ChunkIndex,
			StartOffset: m.Metadata.StartOffset,
			EndOffset:   m.Metadata.EndOffset,
		})
	}
	domain.SortPassages(passages)

	s.logger.Debug("fetched document", "subject", subject, "title", title, "passages", len(passages))
	return passages, nil
}

// Search embeds query and keeps the matches scoring at least the threshold
func (s *retrievalService) Search(ctx context.Context, query, subject string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	start := time.Now()

	subject = strings.TrimSpace(subject)
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}

	// Apply defaults
	if opts.TopK <= 0 {
		opts.TopK = s.config.SearchTopK
	}
	threshold := s.config.SearchThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
		if threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("%w: threshold must be in [0, 1]", domain.ErrInvalidInput)
		}
	}

	vector, err := s.embedding.EmbedQuery(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingFailure) {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrEmbeddingFailure, err)
	}

	raw, err := s.index.Query(ctx, domain.VectorQuery{
		Namespace:       subject,
		Vector:          vector,
		TopK:            opts.TopK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, indexError("search", err)
	}

	// The index returns matches by descending score; filtering keeps that order
	matches := make([]domain.Match, 0, len(raw))
	for _, m := range raw {
		if m.Score < threshold {
			continue
		}
		matches = append(matches, domain.Match{
			ID:         m.ID,
			Title:      m.Metadata.Title,
			Score:      m.Score,
			Text:       m.Metadata.Text,
			ChunkIndex: m.Metadata.ChunkIndex,
		})
	}

	result := &domain.SearchResult{
		Query:     query,
		Subject:   subject,
		Threshold: threshold,
		Matches:   matches,
		Took:      time.Since(start),
	}

	s.logger.Debug("search completed",
		"subject", subject,
		"candidates", len(raw),
		"matches", len(matches),
		"took", result.Took)

	return result, nil
}

// ListSubjects returns every namespace of the index, sorted
func (s *retrievalService) ListSubjects(ctx context.Context) ([]string, error) {
	stats, err := s.index.DescribeStats(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, indexError("describe stats", err)
	}

	subjects := make([]string, 0, len(stats.Namespaces))
	for name := range stats.Namespaces {
		subjects = append(subjects, name)
	}
	sort.Strings(subjects)
	return subjects, nil
}

// ListTitles returns distinct titles of a subject in first-seen order
func (s *retrievalService) ListTitles(ctx context.Context, subject string, topK int) ([]string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = s.config.ListTopK
	}

	matches, err := s.index.Query(ctx, domain.VectorQuery{
		Namespace:       subject,
		Vector:          domain.ZeroVector(s.config.Dimension),
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, indexError("list titles", err)
	}

	seen := make(map[string]struct{}, len(matches))
	titles := make([]string, 0)
	for _, m := range matches {
		title := m.Metadata.Title
		if title == "" {
			title = domain.UnknownTitle
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
	}
	return titles, nil
}

// indexError makes sure a vector index failure carries ErrIndexUnavailable
func indexError(op string, err error) error {
	if errors.Is(err, domain.ErrIndexUnavailable) || errors.Is(err, domain.ErrDimensionMismatch) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, op, err)
}
