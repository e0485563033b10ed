package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/pinecone"
	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/sercha-edu/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/sercha-edu/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-edu/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-edu/internal/adapters/driven/restclient"
	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-edu/internal/core/services"
	"github.com/custodia-labs/sercha-edu/internal/extractors"
	"github.com/custodia-labs/sercha-edu/internal/normalisers"
	"github.com/custodia-labs/sercha-edu/internal/postprocessors"
)

// App is the fully wired process: clients, stores and core services.
// Optional pieces are nil when their backing service is not configured.
type App struct {
	Config   *Config
	Logger   *slog.Logger
	Services *Services

	DB     *postgres.DB
	Redis  redis.UniversalClient
	Queue  driven.TaskQueue
	Lock   driven.DistributedLock
	Ledger driven.IngestionStore
	Auth   *auth.Adapter

	Ingestion driving.IngestionService
	Retrieval driving.RetrievalService
	Grammar   driving.GrammarService
	Answer    driving.AnswerService
	Questions driving.QuestionService
	Tasks     driving.TaskService
}

// NewApp connects every configured backend and builds the core services.
// Steps:
//  1. Embedding and LLM clients (embedding size checked against the index)
//  2. PostgreSQL and Redis when configured
//  3. Vector index, created when absent
//  4. Lock, ledger and task queue on the best available backend
//  5. Core services
func NewApp(ctx context.Context, cfg *Config, logger *slog.Logger) (app *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is required", domain.ErrInvalidInput)
	}

	app = &App{Config: cfg, Logger: logger, Services: NewServices()}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	opts := restclient.DefaultOptions()
	opts.Timeout = cfg.RequestTimeout
	opts.MaxRetries = cfg.MaxRetries
	opts.RatePerSecond = cfg.RateLimitRPS

	// ===== AI services =====
	factory := ai.NewFactory(opts)
	embedding, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:   domain.AIProviderOpenAI,
		Model:      cfg.EmbeddingModel,
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Dimensions: cfg.EmbeddingDimension,
	})
	if err != nil {
		return app, fmt.Errorf("create embedding service: %w", err)
	}
	if err := app.Services.ValidateAndSetEmbedding(ctx, embedding, cfg.EmbeddingDimension); err != nil {
		return app, fmt.Errorf("embedding service: %w", err)
	}
	logger.Info("embedding service ready", "model", embedding.Model(), "dimension", embedding.Dimensions())

	llm, err := factory.CreateLLMService(&domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    cfg.LLMModel,
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  cfg.OpenAIBaseURL,
	})
	if err != nil {
		return app, fmt.Errorf("create llm service: %w", err)
	}
	if err := app.Services.ValidateAndSetLLM(ctx, llm); err != nil {
		logger.Warn("llm unavailable, learning endpoints disabled", "model", cfg.LLMModel, "error", err)
	}

	// ===== PostgreSQL (optional) =====
	if cfg.DatabaseURL != "" {
		app.DB, err = postgres.Connect(ctx, postgres.Config{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
			ConnectTimeout:  getEnvDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
		})
		if err != nil {
			return app, fmt.Errorf("connect to database: %w", err)
		}
		if err := app.DB.InitSchema(ctx); err != nil {
			return app, fmt.Errorf("initialize schema: %w", err)
		}
		logger.Info("postgres connected")
	}

	// ===== Redis (optional) =====
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return app, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(redisOpts)
		app.Redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			return app, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("redis connected")
	}

	// ===== Vector index =====
	index, err := app.newIndex(opts)
	if err != nil {
		return app, err
	}
	if err := index.CreateIndex(ctx, cfg.IndexSpec()); err != nil {
		return app, fmt.Errorf("create index %s: %w", cfg.IndexSpec().Name, err)
	}
	app.Services.SetIndex(index)
	logger.Info("vector index ready", "backend", cfg.VectorBackend, "index", cfg.IndexSpec().Name)

	// ===== Lock, ledger, queue (Redis if available, otherwise PostgreSQL) =====
	switch {
	case app.Redis != nil:
		app.Lock = redisadapter.NewLock(app.Redis)
		app.Ledger = redisadapter.NewIngestionStore(app.Redis)
		app.Queue, err = redisqueue.NewQueue(ctx, app.Redis, consumerName())
		if err != nil {
			return app, fmt.Errorf("create task queue: %w", err)
		}
		logger.Info("using redis lock, ledger and task queue")
	case app.DB != nil:
		app.Lock = postgres.NewAdvisoryLock(app.DB)
		app.Ledger = postgres.NewIngestionStore(app.DB)
		app.Queue = postgresqueue.NewQueue(app.DB.DB)
		logger.Info("using postgres lock, ledger and task queue")
	default:
		logger.Info("no lock or task queue configured, ingestion runs in-process")
	}
	if app.DB != nil && app.Redis != nil {
		// the relational ledger is preferred when both are present
		app.Ledger = postgres.NewIngestionStore(app.DB)
	}

	if cfg.AuthEnabled() {
		app.Auth = auth.NewAdapter(cfg.JWTSecret)
	}

	// ===== Core services =====
	pipelineConfig := cfg.PipelineConfig()
	app.Ingestion = services.NewIngestionService(services.IngestionServiceConfig{
		Extractors:    extractors.DefaultRegistry(),
		NormaliserReg: normalisers.DefaultRegistry(),
		Pipeline: postprocessors.NewPipelineWithConfig(postprocessors.ChunkConfig{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
		}),
		Embedding: embedding,
		Index:     index,
		Ledger:    app.Ledger,
		Lock:      app.Lock,
		Config:    pipelineConfig,
		Logger:    logger,
		LockTTL:   cfg.IngestLockTTL,
	})
	app.Retrieval = services.NewRetrievalService(index, embedding, pipelineConfig, logger)

	llmService := app.Services.LLMService()
	app.Grammar = services.NewGrammarService(llmService, cfg.GrammarParallel, logger)
	app.Answer = services.NewAnswerService(app.Retrieval, llmService, logger)
	app.Questions = services.NewQuestionService(app.Retrieval, llmService, logger)
	app.Tasks = services.NewTaskService(app.Queue, logger)

	return app, nil
}

func (a *App) newIndex(opts restclient.Options) (driven.VectorIndex, error) {
	switch a.Config.VectorBackend {
	case BackendPgvector:
		if a.DB == nil {
			return nil, fmt.Errorf("%w: pgvector backend requires DATABASE_URL", domain.ErrInvalidInput)
		}
		return postgres.NewVectorIndex(a.DB, a.Config.PgvectorTable), nil
	default:
		index, err := pinecone.New(pinecone.Config{
			APIKey:     a.Config.PineconeAPIKey,
			IndexName:  a.Config.PineconeIndex,
			ControlURL: a.Config.PineconeControlURL,
			Host:       a.Config.PineconeIndexHost,
			Options:    opts,
		})
		if err != nil {
			return nil, fmt.Errorf("create pinecone client: %w", err)
		}
		return index, nil
	}
}

// Close releases every connection the app opened
func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		errs = append(errs, a.Queue.Close())
	}
	if a.Services != nil {
		errs = append(errs, a.Services.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
