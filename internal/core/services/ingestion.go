package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// Ensure ingestionService implements IngestionService
var _ driving.IngestionService = (*ingestionService)(nil)

// defaultIngestLockTTL bounds how long one document may stay locked between
// heartbeats. The lock is extended after every embedding batch.
const defaultIngestLockTTL = 10 * time.Minute

// IngestionServiceConfig holds dependencies for the ingestion service.
// Ledger and Lock are optional.
type IngestionServiceConfig struct {
	Extractors    driven.ExtractorRegistry
	NormaliserReg driven.NormaliserRegistry
	Pipeline      driven.PostProcessorPipeline
	Embedding     driven.EmbeddingService
	Index         driven.VectorIndex
	Ledger        driven.IngestionStore
	Lock          driven.DistributedLock
	Config        domain.PipelineConfig
	Logger        *slog.Logger

	// LockTTL defaults to 10 minutes
	LockTTL time.Duration
}

// ingestionService runs the ingest flow:
//  1. Extract text with the extractor for the file format
//  2. Normalise and chunk
//  3. Embed every chunk
//  4. Upsert all records, or none
//  5. Delete records left over from a longer previous version
type ingestionService struct {
	extractors    driven.ExtractorRegistry
	normaliserReg driven.NormaliserRegistry
	pipeline      driven.PostProcessorPipeline
	embedding     driven.EmbeddingService
	index         driven.VectorIndex
	ledger        driven.IngestionStore
	lock          driven.DistributedLock
	lockTTL       time.Duration
	config        domain.PipelineConfig
	logger        *slog.Logger
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(cfg IngestionServiceConfig) driving.IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultIngestLockTTL
	}

	return &ingestionService{
		extractors:    cfg.Extractors,
		normaliserReg: cfg.NormaliserReg,
		pipeline:      cfg.Pipeline,
		embedding:     cfg.Embedding,
		index:         cfg.Index,
		ledger:        cfg.Ledger,
		lock:          cfg.Lock,
		lockTTL:       lockTTL,
		config:        cfg.Config,
		logger:        logger,
	}
}

// Ingest extracts, chunks, embeds and upserts one document.
func (s *ingestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	start := time.Now()

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Path) == "" {
		return nil, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}

	doc, text, err := s.extract(ctx, req, subject)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("subject", doc.Subject, "title", doc.Title)

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s has no extractable text", domain.ErrNoContent, req.Path)
	}
	chunks := s.pipeline.Process(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s produced no chunks", domain.ErrNoContent, req.Path)
	}

	lockName := "ingest:" + doc.Subject + ":" + doc.Title
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, lockName, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire ingest lock: %w", err)
		}
		if !acquired {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrIngestInProgress, doc.Subject, doc.Title)
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
				logger.Warn("failed to release ingest lock", "error", err)
			}
		}()
	}

	vectors, err := s.embedChunks(ctx, chunks, func() { s.extendLock(ctx, lockName) })
	if err != nil {
		logger.Error("embedding failed", "error", err)
		return nil, err
	}

	records, err := s.buildRecords(doc, chunks, vectors)
	if err != nil {
		return nil, err
	}

	prior, err := s.priorChunkCount(ctx, doc)
	if err != nil {
		logger.Error("could not count existing records, nothing written", "error", err)
		return nil, err
	}
	s.extendLock(ctx, lockName)

	if err := s.upsertAll(ctx, doc, records, prior); err != nil {
		logger.Error("upsert failed, document removed", "error", err)
		return nil, err
	}

	staleRemoved, err := s.removeStale(ctx, doc, len(records), prior)
	if err != nil {
		logger.Error("failed to remove stale records", "error", err)
		return nil, err
	}

	if s.ledger != nil {
		entry := &domain.IngestionRecord{
			Subject:    doc.Subject,
			Title:      doc.Title,
			Format:     doc.Format,
			SourcePath: doc.SourcePath,
			ChunkCount: len(records),
			IngestedAt: time.Now(),
		}
		if err := s.ledger.Save(ctx, entry); err != nil {
			logger.Warn("failed to update ingestion ledger", "error", err)
		}
	}

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	result := &domain.IngestResult{
		Title:        doc.Title,
		Subject:      doc.Subject,
		Format:       doc.Format,
		ChunkCount:   len(records),
		RecordIDs:    ids,
		StaleRemoved: staleRemoved,
		Duration:     time.Since(start),
	}

	logger.Info("document ingested",
		"chunks", result.ChunkCount,
		"stale_removed", staleRemoved,
		"duration", result.Duration)

	return result, nil
}

// extract resolves the extractor, reads the file and settles the document identity
func (s *ingestionService) extract(ctx context.Context, req driving.IngestRequest, subject string) (*domain.Document, string, error) {
	format := domain.FormatFromPath(req.Path)
	extractor := s.extractors.Get(format)
	if extractor == nil {
		return nil, "", fmt.Errorf("%w: unsupported format %q", domain.ErrExtraction, format)
	}

	extracted, err := extractor.Extract(ctx, req.Path)
	if err != nil {
		if errors.Is(err, domain.ErrExtraction) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = extracted.Title()
	}
	if title == "" {
		title = domain.TitleFromPath(req.Path)
	}

	difficulty := strings.TrimSpace(req.Difficulty)
	if difficulty == "" {
		difficulty = domain.DifficultyUnknown
	}

	text := extracted.Text
	if s.normaliserReg != nil {
		if n := s.normaliserReg.Get(format); n != nil {
			text = n.Normalise(text, format)
		}
	}

	doc := &domain.Document{
		Title:      title,
		Subject:    subject,
		Format:     format,
		Difficulty: difficulty,
		SourcePath: req.Path,
	}
	return doc, text, nil
}

// embedChunks embeds chunk contents in batches on a bounded pool.
// Vectors are returned in chunk order. The first failure cancels the rest.
// heartbeat runs after every batch that succeeds.
func (s *ingestionService) embedChunks(ctx context.Context, chunks []domain.Chunk, heartbeat func()) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	batchSize := s.config.EmbedBatchSize

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.EmbedConcurrency)

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Content
			}

			out, err := s.embedding.Embed(gctx, texts)
			if err != nil {
				if errors.Is(err, domain.ErrEmbeddingFailure) {
					return fmt.Errorf("chunk %d: %w", start, err)
				}
				return fmt.Errorf("%w: chunk %d: %w", domain.ErrEmbeddingFailure, start, err)
			}
			if len(out) != len(texts) {
				return fmt.Errorf("%w: chunk %d: expected %d vectors, got %d",
					domain.ErrEmbeddingFailure, start, len(texts), len(out))
			}
			for i, v := range out {
				if len(v) == 0 {
					return fmt.Errorf("%w: chunk %d: empty vector", domain.ErrEmbeddingFailure, start+i)
				}
				vectors[start+i] = v
			}
			heartbeat()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// extendLock pushes the ingest lock expiry out by another TTL. A failed
// extension is logged and the ingest carries on.
func (s *ingestionService) extendLock(ctx context.Context, name string) {
	if s.lock == nil {
		return
	}
	if err := s.lock.Extend(ctx, name, s.lockTTL); err != nil {
		s.logger.Warn("failed to extend ingest lock", "lock", name, "error", err)
	}
}

// buildRecords pairs every chunk with its vector before anything is written
func (s *ingestionService) buildRecords(doc *domain.Document, chunks []domain.Chunk, vectors [][]float32) ([]domain.VectorRecord, error) {
	records := make([]domain.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != s.config.Dimension {
			return nil, fmt.Errorf("%w: chunk %d has %d values, index expects %d",
				domain.ErrDimensionMismatch, chunk.Index, len(vectors[i]), s.config.Dimension)
		}
		records[i] = domain.VectorRecord{
			ID:     domain.RecordID(doc.Title, chunk.Index),
			Values: vectors[i],
			Metadata: domain.RecordMetadata{
				Title:       doc.Title,
				Subject:     doc.Subject,
				Format:      doc.Format,
				Difficulty:  doc.Difficulty,
				Text:        chunk.Content,
				ChunkIndex:  chunk.Index,
				StartOffset: chunk.StartOffset,
				EndOffset:   chunk.EndOffset,
			},
		}
	}
	return records, nil
}

// priorChunkCount reports how many records a previous ingest of the document
// wrote. The ledger answers when configured; otherwise the index is queried.
// An unknown count is an error rather than zero.
func (s *ingestionService) priorChunkCount(ctx context.Context, doc *domain.Document) (int, error) {
	if s.ledger != nil {
		entry, err := s.ledger.Get(ctx, doc.Subject, doc.Title)
		if err == nil {
			return entry.ChunkCount, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		s.logger.Warn("ingestion ledger unavailable, falling back to index",
			"subject", doc.Subject, "title", doc.Title, "error", err)
	}

	matches, err := s.index.Query(ctx, domain.VectorQuery{
		Namespace:       doc.Subject,
		Vector:          domain.ZeroVector(s.config.Dimension),
		TopK:            s.config.ListTopK,
		Filter:          map[string]string{"title": doc.Title},
		IncludeMetadata: true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return 0, fmt.Errorf("count existing records: %w", err)
		}
		return 0, fmt.Errorf("%w: count existing records: %w", domain.ErrIndexUnavailable, err)
	}

	count := 0
	prefix := doc.Title + "_"
	for _, m := range matches {
		idx := m.Metadata.ChunkIndex
		if suffix, ok := strings.CutPrefix(m.ID, prefix); ok {
			if n, err := strconv.Atoi(suffix); err == nil {
				idx = n
			}
		}
		count = max(count, idx+1)
	}
	return count, nil
}

// upsertAll writes records in batches. When a batch fails every id of the
// document is deleted so no partial version stays visible.
func (s *ingestionService) upsertAll(ctx context.Context, doc *domain.Document, records []domain.VectorRecord, prior int) error {
	batchSize := s.config.UpsertBatchSize
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		if err := s.index.Upsert(ctx, doc.Subject, records[start:end]); err != nil {
			failedAt := records[start].Metadata.ChunkIndex
			s.compensate(ctx, doc, max(len(records), prior))
			if errors.Is(err, domain.ErrIndexUnavailable) {
				return fmt.Errorf("upsert from chunk %d: %w", failedAt, err)
			}
			return fmt.Errorf("%w: upsert from chunk %d: %w", domain.ErrIndexUnavailable, failedAt, err)
		}
	}
	return nil
}

// compensate removes ids 0..count-1 of the document and its ledger entry
func (s *ingestionService) compensate(ctx context.Context, doc *domain.Document, count int) {
	ctx = context.WithoutCancel(ctx)
	ids := recordIDs(doc.Title, 0, count)
	if err := s.deleteBatched(ctx, doc.Subject, ids); err != nil {
		s.logger.Error("compensating delete failed",
			"subject", doc.Subject, "title", doc.Title, "records", len(ids), "error", err)
	}
	if s.ledger != nil {
		if err := s.ledger.Delete(ctx, doc.Subject, doc.Title); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("failed to clear ingestion ledger", "subject", doc.Subject, "title", doc.Title, "error", err)
		}
	}
}

// removeStale deletes ids newCount..prior-1 left by a longer previous version
func (s *ingestionService) removeStale(ctx context.Context, doc *domain.Document, newCount, prior int) (int, error) {
	if prior <= newCount {
		return 0, nil
	}
	ids := recordIDs(doc.Title, newCount, prior)
	if err := s.deleteBatched(ctx, doc.Subject, ids); err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return 0, fmt.Errorf("delete stale records: %w", err)
		}
		return 0, fmt.Errorf("%w: delete stale records: %w", domain.ErrIndexUnavailable, err)
	}
	return len(ids), nil
}

func (s *ingestionService) deleteBatched(ctx context.Context, namespace string, ids []string) error {
	batchSize := s.config.UpsertBatchSize
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		if err := s.index.Delete(ctx, namespace, ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func recordIDs(title string, from, to int) []string {
	ids := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ids = append(ids, domain.RecordID(title, i))
	}
	return ids
}
