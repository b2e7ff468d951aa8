package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandria-kb/alexandria/db"
	"github.com/alexandria-kb/alexandria/internal/answer"
	"github.com/alexandria-kb/alexandria/internal/api"
	"github.com/alexandria-kb/alexandria/internal/config"
	"github.com/alexandria-kb/alexandria/internal/extract"
	"github.com/alexandria-kb/alexandria/internal/ingest"
	"github.com/alexandria-kb/alexandria/internal/log"
	"github.com/alexandria-kb/alexandria/internal/scanner"
	"github.com/alexandria-kb/alexandria/internal/search"
	"github.com/alexandria-kb/alexandria/internal/store"
	"github.com/alexandria-kb/alexandria/internal/vector"
)

// Setup creates and initializes the application. On success the scanner
// loop is already running; call Close to release everything.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := provideEmbedder(g, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}
	a.Embedder = embedder

	a.Store = store.New(pool, logger)
	a.Vectors = vector.New(pool, embedder, logger)

	a.WorkerPool = ingest.NewPool(cfg.WorkerCount, cfg.QueueCapacity, logger)
	pipeline, err := ingest.New(a.Store, a.Vectors, extract.NewRegistry(), a.WorkerPool, ingest.Config{
		UploadDir:    cfg.UploadDir,
		MaxFileSize:  cfg.MaxFileSizeBytes(),
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.Pipeline = pipeline

	a.Ranker = search.New(a.Vectors, a.Store, logger)

	generator := answer.NewGenkitGenerator(g, cfg.FullModelName(), cfg.GenerateTimeout)
	a.Synthesizer = answer.New(a.Ranker, generator, logger)

	a.Scanner = scanner.New(pipeline, a.Store, scanner.Config{
		Interval:   cfg.ScanInterval,
		HardDelete: cfg.HardDelete,
		Dirs:       cfg.WatchDirectories,
	}, logger)

	server, err := api.NewServer(api.ServerConfig{
		Logger:              logger,
		Ingestor:            pipeline,
		Documents:           a.Store,
		Searcher:            a.Ranker,
		Answerer:            a.Synthesizer,
		Indexer:             a.Scanner,
		Vectors:             a.Vectors,
		Pool:                pool,
		DefaultSearchLimit:  cfg.DefaultSearchLimit,
		SimilarityThreshold: cfg.SimilarityThreshold,
	})
	if err != nil {
		return nil, err
	}
	a.Server = server

	// The scanner loop lives for the application's lifetime; Close stops
	// it through the cancel.
	scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	go a.Scanner.Run(scanCtx)

	return a, nil
}

// provideDBPool runs migrations and creates the PostgreSQL connection
// pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the configured AI provider.
// Ollama requires explicit model and embedder registration; Google AI
// discovers models automatically.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		return g, nil

	default: // googleai
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with googleai provider")
		}
		return g, nil
	}
}

// provideEmbedder looks up the embedder registered by the provider
// plugin. Ollama keys embedders by server address.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	switch cfg.Provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}
