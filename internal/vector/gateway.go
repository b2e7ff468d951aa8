// Package vector bridges the embedding model and the pgvector index. It
// owns the chunk_vectors table: adding, updating, deleting and querying
// embedded chunk content.
package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// DB is the subset of pgxpool.Pool the gateway needs. Defined here so tests
// can substitute a fake and so the gateway never sees pool lifecycle.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Entry is one chunk to index: caller-assigned ID, the text to embed, and
// metadata stored alongside for filtered queries.
type Entry struct {
	ID       string
	Content  string
	Metadata map[string]any
}

// Match is a raw nearest-neighbor hit. Distance is squared L2 between unit
// vectors, so it falls in [0, 4]; scoring layers convert it to similarity.
type Match struct {
	ID       string
	Content  string
	Metadata map[string]any
	Distance float64
}

// Gateway embeds text through a Genkit embedder and persists vectors in
// PostgreSQL. Safe for concurrent use.
type Gateway struct {
	db       DB
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Gateway. A nil logger falls back to slog.Default.
func New(db DB, embedder ai.Embedder, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{db: db, embedder: embedder, logger: logger}
}

// EmbedTexts embeds texts in a single batched request. The result is
// positionally aligned with the input.
func (g *Gateway) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	input := make([]*ai.Document, len(texts))
	for i, t := range texts {
		input[i] = ai.DocumentFromText(t, nil)
	}

	resp, err := g.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", document.ErrEmbeddingFailed, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", document.ErrEmbeddingFailed, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty embedding at position %d", document.ErrEmbeddingFailed, i)
		}
		vectors[i] = e.Embedding
	}
	return vectors, nil
}

// Add embeds and indexes entries. Entries are embedded in one batch; an ID
// collision upserts in place so re-adding a chunk is idempotent.
func (g *Gateway) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Content
	}
	vectors, err := g.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}

	for i, e := range entries {
		metadataJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %s: %w", e.ID, err)
		}
		embedding := pgvector.NewVector(vectors[i])
		_, err = g.db.Exec(ctx, `
			INSERT INTO chunk_vectors (id, embedding, content, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata`,
			e.ID, embedding, e.Content, metadataJSON)
		if err != nil {
			return fmt.Errorf("%w: indexing %s: %v", document.ErrEmbeddingFailed, e.ID, err)
		}
	}

	g.logger.Debug("indexed vectors", "count", len(entries))
	return nil
}

// Update re-embeds and replaces a single entry.
func (g *Gateway) Update(ctx context.Context, entry Entry) error {
	return g.Add(ctx, []Entry{entry})
}

// Delete removes entries by ID. Unknown IDs are ignored.
func (g *Gateway) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := g.db.Exec(ctx, `DELETE FROM chunk_vectors WHERE id = ANY($1)`, ids); err != nil {
		return fmt.Errorf("deleting vectors: %w", err)
	}
	g.logger.Debug("deleted vectors", "count", len(ids))
	return nil
}

// Query embeds the query text and returns the topK nearest entries ordered
// by ascending distance. A bounded timeout keeps slow vector scans from
// holding the caller.
func (g *Gateway) Query(ctx context.Context, query string, opts ...QueryOption) ([]Match, error) {
	cfg := buildQueryConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vectors, err := g.EmbedTexts(queryCtx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, err
	}
	embedding := pgvector.NewVector(vectors[0])

	// Distance is squared so cosine-normalized vectors land in [0, 4];
	// ordering still uses the raw operator to stay index-friendly.
	var rows pgx.Rows
	if len(cfg.filter) > 0 {
		filterJSON, marshalErr := json.Marshal(cfg.filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("marshaling filter: %w", marshalErr)
		}
		rows, err = g.db.Query(queryCtx, `
			SELECT id, content, metadata, power(embedding <-> $1, 2) AS distance
			FROM chunk_vectors
			WHERE metadata @> $2
			ORDER BY embedding <-> $1
			LIMIT $3`,
			embedding, filterJSON, cfg.topK)
	} else {
		rows, err = g.db.Query(queryCtx, `
			SELECT id, content, metadata, power(embedding <-> $1, 2) AS distance
			FROM chunk_vectors
			ORDER BY embedding <-> $1
			LIMIT $2`,
			embedding, cfg.topK)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector query timeout: %w", err)
		}
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m            Match
			metadataJSON []byte
		)
		if err := rows.Scan(&m.ID, &m.Content, &metadataJSON, &m.Distance); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			g.logger.Warn("unparsable vector metadata", "id", m.ID, "error", err)
			m.Metadata = map[string]any{}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading matches: %w", err)
	}
	return matches, nil
}

// Count returns the number of indexed vectors.
func (g *Gateway) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := g.db.QueryRow(ctx, `SELECT count(*) FROM chunk_vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return n, nil
}
