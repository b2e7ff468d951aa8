// Package app wires the application together: configuration, database,
// AI provider, ingestion pipeline, scanner, retrieval, and the HTTP
// server.
package app

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandria-kb/alexandria/internal/answer"
	"github.com/alexandria-kb/alexandria/internal/api"
	"github.com/alexandria-kb/alexandria/internal/config"
	"github.com/alexandria-kb/alexandria/internal/ingest"
	"github.com/alexandria-kb/alexandria/internal/scanner"
	"github.com/alexandria-kb/alexandria/internal/search"
	"github.com/alexandria-kb/alexandria/internal/store"
	"github.com/alexandria-kb/alexandria/internal/vector"
)

// App is the application container. Components are exported for the
// serve command and for tests.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Store       *store.Store
	Vectors     *vector.Gateway
	WorkerPool  *ingest.Pool
	Pipeline    *ingest.Pipeline
	Ranker      *search.Ranker
	Synthesizer *answer.Synthesizer
	Scanner     *scanner.Scanner
	Server      *api.Server

	cancel context.CancelFunc
}

// Close shuts the application down: stop accepting work, drain the
// worker pool, release the database pool.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.cancel != nil {
		a.cancel()
	}
	if a.WorkerPool != nil {
		a.WorkerPool.Close()
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
