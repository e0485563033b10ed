package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
)

// Vector index backends
const (
	BackendPinecone = "pinecone"
	BackendPgvector = "pgvector"
)

// Config is the process configuration read from the environment
type Config struct {
	// AI providers
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string

	// Vector index
	VectorBackend      string
	PineconeAPIKey     string
	PineconeIndex      string
	PineconeCloud      string
	PineconeRegion     string
	PineconeControlURL string
	PineconeIndexHost  string
	PgvectorTable      string

	// Optional infrastructure
	DatabaseURL string
	RedisURL    string

	// Pipeline tunables
	ChunkSize        int
	ChunkOverlap     int
	EmbedConcurrency int
	EmbedBatchSize   int
	UpsertBatchSize  int
	SearchTopK       int
	SearchThreshold  float64
	FetchTopK        int
	ListTopK         int

	// External calls
	RequestTimeout time.Duration
	MaxRetries     int
	RateLimitRPS   float64

	// HTTP and workers
	Port              int
	JWTSecret         string
	CORSOrigins       []string
	UploadDir         string
	WorkerConcurrency int
	GrammarParallel   int
	IngestLockTTL     time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig reads configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment
// variables win over it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	defaults := domain.DefaultPipelineConfig()
	cfg := &Config{
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", defaults.Dimension),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o-2024-08-06"),

		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", BackendPinecone)),
		PineconeAPIKey:     getEnv("PINECONE_API_KEY", ""),
		PineconeIndex:      getEnv("PINECONE_INDEX", "education-index"),
		PineconeCloud:      getEnv("PINECONE_CLOUD", "aws"),
		PineconeRegion:     getEnv("PINECONE_REGION", "us-east-1"),
		PineconeControlURL: getEnv("PINECONE_CONTROL_URL", "https://api.pinecone.io"),
		PineconeIndexHost:  getEnv("PINECONE_INDEX_HOST", ""),
		PgvectorTable:      getEnv("PGVECTOR_TABLE", "chunk_vectors"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		ChunkSize:        getEnvInt("CHUNK_SIZE", defaults.ChunkSize),
		ChunkOverlap:     getEnvInt("CHUNK_OVERLAP", defaults.ChunkOverlap),
		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", defaults.EmbedConcurrency),
		EmbedBatchSize:   getEnvInt("EMBED_BATCH_SIZE", defaults.EmbedBatchSize),
		UpsertBatchSize:  getEnvInt("UPSERT_BATCH_SIZE", defaults.UpsertBatchSize),
		SearchTopK:       getEnvInt("SEARCH_TOP_K", defaults.SearchTopK),
		SearchThreshold:  getEnvFloat("SEARCH_THRESHOLD", defaults.SearchThreshold),
		FetchTopK:        getEnvInt("FETCH_TOP_K", defaults.FetchTopK),
		ListTopK:         getEnvInt("LIST_TOP_K", defaults.ListTopK),

		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 0),

		Port:              getEnvInt("PORT", 8080),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		UploadDir:         getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "sercha-edu")),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		GrammarParallel:   getEnvInt("GRAMMAR_CONCURRENCY", 4),
		IngestLockTTL:     getEnvDuration("INGEST_LOCK_TTL", 10*time.Minute),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for combinations that cannot start
func (c *Config) Validate() error {
	if err := c.PipelineConfig().Validate(); err != nil {
		return err
	}
	if c.SearchThreshold < 0 || c.SearchThreshold > 1 {
		return fmt.Errorf("%w: SEARCH_THRESHOLD must be in [0, 1]", domain.ErrInvalidInput)
	}

	switch c.VectorBackend {
	case BackendPinecone:
	case BackendPgvector:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: VECTOR_BACKEND=pgvector requires DATABASE_URL", domain.ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown VECTOR_BACKEND %q", domain.ErrInvalidInput, c.VectorBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: PORT %d out of range", domain.ErrInvalidInput, c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: REQUEST_TIMEOUT must be positive", domain.ErrInvalidInput)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: MAX_RETRIES must not be negative", domain.ErrInvalidInput)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("%w: WORKER_CONCURRENCY must be positive", domain.ErrInvalidInput)
	}
	if c.IngestLockTTL <= 0 {
		return fmt.Errorf("%w: INGEST_LOCK_TTL must be positive", domain.ErrInvalidInput)
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be json or text", domain.ErrInvalidInput)
	}
	return nil
}

// PipelineConfig extracts the tunables injected into the core services
func (c *Config) PipelineConfig() domain.PipelineConfig {
	return domain.PipelineConfig{
		ChunkSize:        c.ChunkSize,
		ChunkOverlap:     c.ChunkOverlap,
		Dimension:        c.EmbeddingDimension,
		EmbedConcurrency: c.EmbedConcurrency,
		EmbedBatchSize:   c.EmbedBatchSize,
		UpsertBatchSize:  c.UpsertBatchSize,
		SearchTopK:       c.SearchTopK,
		SearchThreshold:  c.SearchThreshold,
		FetchTopK:        c.FetchTopK,
		ListTopK:         c.ListTopK,
	}
}

// IndexSpec describes the index created at startup
func (c *Config) IndexSpec() domain.IndexSpec {
	name := c.PineconeIndex
	if c.VectorBackend == BackendPgvector {
		name = c.PgvectorTable
	}
	return domain.IndexSpec{
		Name:      name,
		Dimension: c.EmbeddingDimension,
		Metric:    "cosine",
		Cloud:     c.PineconeCloud,
		Region:    c.PineconeRegion,
	}
}

// AuthEnabled reports whether bearer tokens are checked
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return result
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
