package domain

import "fmt"

// PipelineConfig carries the tunables shared by the ingestion and retrieval
// pipelines. It is built once at startup and injected into services.
type PipelineConfig struct {
	ChunkSize        int     `json:"chunk_size"`
	ChunkOverlap     int     `json:"chunk_overlap"`
	Dimension        int     `json:"dimension"`
	EmbedConcurrency int     `json:"embed_concurrency"`
	EmbedBatchSize   int     `json:"embed_batch_size"`
	UpsertBatchSize  int     `json:"upsert_batch_size"`
	SearchTopK       int     `json:"search_top_k"`
	SearchThreshold  float64 `json:"search_threshold"`
	FetchTopK        int     `json:"fetch_top_k"`
	ListTopK         int     `json:"list_top_k"`
}

// DefaultPipelineConfig returns the production defaults
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ChunkSize:        2000,
		ChunkOverlap:     500,
		Dimension:        1536,
		EmbedConcurrency: 4,
		EmbedBatchSize:   16,
		UpsertBatchSize:  100,
		SearchTopK:       DefaultSearchTopK,
		SearchThreshold:  DefaultSearchThreshold,
		FetchTopK:        DefaultFetchTopK,
		ListTopK:         DefaultListTopK,
	}
}

// Validate checks the configuration for values the pipelines cannot run with
func (c PipelineConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", ErrInvalidInput)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidInput)
	}
	if c.EmbedConcurrency <= 0 || c.EmbedBatchSize <= 0 || c.UpsertBatchSize <= 0 {
		return fmt.Errorf("%w: concurrency and batch sizes must be positive", ErrInvalidInput)
	}
	if c.SearchTopK <= 0 || c.FetchTopK <= 0 || c.ListTopK <= 0 {
		return fmt.Errorf("%w: top_k values must be positive", ErrInvalidInput)
	}
	return nil
}
