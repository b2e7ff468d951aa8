// Package api is the JSON HTTP surface of the knowledge base: document
// upload and management, retrieval, question answering, and the indexer
// admin operations. Handlers depend on narrow consumer interfaces so the
// surface is testable without a database or model.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alexandria-kb/alexandria/internal/answer"
	"github.com/alexandria-kb/alexandria/internal/document"
	"github.com/alexandria-kb/alexandria/internal/scanner"
	"github.com/alexandria-kb/alexandria/internal/search"
	"github.com/alexandria-kb/alexandria/internal/store"
)

// Ingestor is the slice of the ingestion pipeline the API consumes.
type Ingestor interface {
	IngestUpload(ctx context.Context, originalFilename string, r io.Reader, meta map[string]any) (*document.Document, bool, error)
	Reprocess(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID, hard bool, reason string) error
}

// DocumentReader serves document lookups and statistics.
type DocumentReader interface {
	GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error)
	ListDocuments(ctx context.Context, status document.ProcessingStatus, limit, offset int) ([]*document.Document, error)
	GetStats(ctx context.Context) (*store.Stats, error)
}

// Searcher is the retrieval surface.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, threshold float64) ([]search.Result, error)
	SearchWithinDocument(ctx context.Context, documentID uuid.UUID, query string, limit int, threshold float64) ([]search.Result, error)
	SimilarDocuments(ctx context.Context, documentID uuid.UUID, limit int) ([]search.DocumentResult, error)
	Suggestions(ctx context.Context, partial string, limit int) ([]string, error)
}

// Answerer synthesizes answers and coverage reports.
type Answerer interface {
	Answer(ctx context.Context, question string, contextLimit int, includeSources bool) (*answer.Response, error)
	CheckCompleteness(ctx context.Context, topic string, requiredAspects []string) (*answer.CoverageReport, error)
}

// Indexer is the scanner admin surface.
type Indexer interface {
	Status() scanner.Status
	ForceReindex(ctx context.Context)
	AddWatchDirectory(dir string)
	RemoveWatchDirectory(dir string)
}

// VectorCounter reports the size of the vector index for stats.
type VectorCounter interface {
	Count(ctx context.Context) (int64, error)
}

// ServerConfig contains the collaborators for creating the API server.
type ServerConfig struct {
	Logger    *slog.Logger
	Ingestor  Ingestor       // Required
	Documents DocumentReader // Required
	Searcher  Searcher       // Required
	Answerer  Answerer       // Required
	Indexer   Indexer        // Optional: nil disables the indexer admin API
	Vectors   VectorCounter  // Optional: nil omits vector counts from stats
	Pool      *pgxpool.Pool  // Optional: nil fails /ready

	// Defaults applied when a search request omits limit or threshold.
	// Zero values fall back to the search package defaults.
	DefaultSearchLimit  int
	SimilarityThreshold float64
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates an API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Ingestor == nil || cfg.Documents == nil {
		return nil, errors.New("ingestor and document reader are required")
	}
	if cfg.Searcher == nil || cfg.Answerer == nil {
		return nil, errors.New("searcher and answerer are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defaultLimit := cfg.DefaultSearchLimit
	if defaultLimit <= 0 {
		defaultLimit = search.DefaultLimit
	}
	defaultThreshold := cfg.SimilarityThreshold
	if defaultThreshold <= 0 {
		defaultThreshold = search.DefaultThreshold
	}

	dh := &documentHandler{ingestor: cfg.Ingestor, documents: cfg.Documents, logger: logger}
	sh := &searchHandler{
		searcher:         cfg.Searcher,
		logger:           logger,
		defaultLimit:     defaultLimit,
		defaultThreshold: defaultThreshold,
	}
	qh := &qaHandler{answerer: cfg.Answerer, logger: logger}
	th := &statsHandler{documents: cfg.Documents, vectors: cfg.Vectors, logger: logger}

	mux := http.NewServeMux()

	// Documents
	mux.HandleFunc("POST /api/v1/documents/upload", dh.upload)
	mux.HandleFunc("GET /api/v1/documents", dh.list)
	mux.HandleFunc("GET /api/v1/documents/{id}", dh.get)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", dh.delete)
	mux.HandleFunc("POST /api/v1/documents/{id}/reprocess", dh.reprocess)

	// Retrieval
	mux.HandleFunc("POST /api/v1/search", sh.search)
	mux.HandleFunc("GET /api/v1/search/suggestions", sh.suggestions)
	mux.HandleFunc("GET /api/v1/documents/{id}/search", sh.searchInDocument)
	mux.HandleFunc("GET /api/v1/documents/{id}/similar", sh.similarDocuments)

	// Question answering
	mux.HandleFunc("POST /api/v1/qa", qh.ask)
	mux.HandleFunc("POST /api/v1/completeness", qh.completeness)

	// Stats
	mux.HandleFunc("GET /api/v1/stats", th.stats)

	// Indexer admin routes exist only when a scanner is wired.
	if cfg.Indexer != nil {
		ih := &indexerHandler{indexer: cfg.Indexer, logger: logger}
		mux.HandleFunc("GET /api/v1/indexer/status", ih.status)
		mux.HandleFunc("POST /api/v1/indexer/add-directory", ih.addDirectory)
		mux.HandleFunc("POST /api/v1/indexer/remove-directory", ih.removeDirectory)
		mux.HandleFunc("POST /api/v1/indexer/force-reindex", ih.forceReindex)
	}

	// Middleware stack (outermost first): Recovery → Logging → Routes
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack on a top-level mux.
	hh := &healthHandler{pool: cfg.Pool, logger: logger}
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", hh.liveness)
	topMux.HandleFunc("GET /ready", hh.readiness)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
