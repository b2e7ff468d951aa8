// Package search ranks indexed chunks against free-text queries: chunk
// search, per-document search, similar-document discovery and query
// suggestions.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/alexandria-kb/alexandria/internal/document"
	"github.com/alexandria-kb/alexandria/internal/store"
	"github.com/alexandria-kb/alexandria/internal/vector"
)

// Index is the vector query surface the ranker consumes.
type Index interface {
	Query(ctx context.Context, query string, opts ...vector.QueryOption) ([]vector.Match, error)
}

// Resolver joins vector hits back to chunks and documents.
type Resolver interface {
	ResolveVectorIDs(ctx context.Context, vectorIDs []string) (map[string]store.ChunkRef, error)
	FirstChunk(ctx context.Context, documentID uuid.UUID) (*document.Chunk, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error)
}

// Result is one ranked chunk hit.
type Result struct {
	ChunkID    uuid.UUID      `json:"chunk_id"`
	DocumentID uuid.UUID      `json:"document_id"`
	Filename   string         `json:"filename"`
	Content    string         `json:"content"`
	ChunkIndex int            `json:"chunk_index"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// DocumentResult is one ranked document in similar-document discovery.
type DocumentResult struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Similarity float64   `json:"similarity"`
}

// Defaults applied when a request leaves limit or threshold unset.
const (
	DefaultLimit     = 10
	DefaultThreshold = 0.7

	// overfetchFactor compensates for hits lost to threshold filtering and
	// stale index entries.
	overfetchFactor = 2

	// similarDocThreshold and similarDocProbe bound similar-document
	// discovery: the probe text is the first chunk truncated to 500 chars.
	similarDocThreshold = 0.5
	similarDocProbe     = 500

	// Suggestion extraction: minimum partial length, phrase window width
	// and match threshold.
	suggestionMinLen    = 3
	suggestionWindow    = 3
	suggestionThreshold = 0.3
)

// Ranker executes retrieval queries. Safe for concurrent use.
type Ranker struct {
	index    Index
	resolver Resolver
	logger   *slog.Logger
}

// New creates a Ranker.
func New(index Index, resolver Resolver, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{index: index, resolver: resolver, logger: logger}
}

// Search returns up to limit chunks scoring at or above threshold,
// ordered by descending similarity. Hits whose chunk rows are gone (stale
// vector entries) are dropped.
func (r *Ranker) Search(ctx context.Context, query string, limit int, threshold float64) ([]Result, error) {
	return r.search(ctx, query, limit, threshold)
}

// SearchWithinDocument restricts Search to a single document's chunks.
func (r *Ranker) SearchWithinDocument(ctx context.Context, documentID uuid.UUID, query string, limit int, threshold float64) ([]Result, error) {
	return r.search(ctx, query, limit, threshold,
		vector.WithFilter("document_id", documentID.String()))
}

func (r *Ranker) search(ctx context.Context, query string, limit int, threshold float64, extra ...vector.QueryOption) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	opts := append([]vector.QueryOption{vector.WithTopK(limit * overfetchFactor)}, extra...)
	matches, err := r.index.Query(ctx, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	kept := matches[:0]
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if Similarity(m.Distance) >= threshold {
			kept = append(kept, m)
			ids = append(ids, m.ID)
		}
	}

	refs, err := r.resolver.ResolveVectorIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving hits: %w", err)
	}

	results := make([]Result, 0, len(kept))
	for _, m := range kept {
		ref, ok := refs[m.ID]
		if !ok {
			r.logger.Debug("dropping stale vector hit", "vector_id", m.ID)
			continue
		}
		results = append(results, Result{
			ChunkID:    ref.Chunk.ID,
			DocumentID: ref.DocumentID,
			Filename:   ref.Filename,
			Content:    ref.Chunk.Content,
			ChunkIndex: ref.Chunk.Index,
			Similarity: Round4(Similarity(m.Distance)),
			Metadata:   ref.Chunk.Metadata,
		})
	}

	// The index returns matches in ascending distance already; the stable
	// sort re-establishes descending similarity after rounding without
	// reordering ties.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SimilarDocuments finds documents resembling the given one, probing the
// index with the document's opening chunk. The source document itself is
// excluded; each document appears once with its best chunk similarity.
func (r *Ranker) SimilarDocuments(ctx context.Context, documentID uuid.UUID, limit int) ([]DocumentResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if _, err := r.resolver.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}

	first, err := r.resolver.FirstChunk(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("loading probe chunk: %w", err)
	}
	probe := first.Content
	if len(probe) > similarDocProbe {
		probe = probe[:similarDocProbe]
	}

	// Fetch past the limit since the source document's own chunks will
	// dominate the neighborhood.
	hits, err := r.search(ctx, probe, limit+1, similarDocThreshold)
	if err != nil {
		return nil, err
	}

	best := make(map[uuid.UUID]DocumentResult)
	order := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		if h.DocumentID == documentID {
			continue
		}
		if prev, ok := best[h.DocumentID]; !ok || h.Similarity > prev.Similarity {
			if !ok {
				order = append(order, h.DocumentID)
			}
			best[h.DocumentID] = DocumentResult{
				DocumentID: h.DocumentID,
				Filename:   h.Filename,
				Similarity: h.Similarity,
			}
		}
	}

	results := make([]DocumentResult, 0, len(best))
	for _, id := range order {
		results = append(results, best[id])
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Suggestions proposes query completions for a partial input: three-word
// phrases containing the partial, harvested from loosely matching chunks.
// Partials shorter than three characters produce nothing.
func (r *Ranker) Suggestions(ctx context.Context, partial string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	trimmed := strings.TrimSpace(partial)
	if len(trimmed) < suggestionMinLen {
		return nil, nil
	}

	// Overfetch candidates: not every matching chunk contains the literal
	// partial, so limit alone starves the phrase harvest.
	hits, err := r.search(ctx, trimmed, limit*overfetchFactor, suggestionThreshold)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(trimmed)
	seen := make(map[string]bool)
	var suggestions []string
	for _, h := range hits {
		for _, phrase := range phrasesContaining(h.Content, lower) {
			if seen[phrase] {
				continue
			}
			seen[phrase] = true
			suggestions = append(suggestions, phrase)
			if len(suggestions) >= limit {
				return suggestions, nil
			}
		}
	}
	return suggestions, nil
}

// phrasesContaining extracts the sliding word windows of content that
// contain the (lowercase) partial, preserving the original casing.
func phrasesContaining(content, lowerPartial string) []string {
	words := strings.Fields(content)
	var phrases []string
	for i := 0; i+suggestionWindow <= len(words); i++ {
		phrase := strings.Join(words[i:i+suggestionWindow], " ")
		if strings.Contains(strings.ToLower(phrase), lowerPartial) {
			phrases = append(phrases, phrase)
		}
	}
	return phrases
}
