package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexandria-kb/alexandria/internal/search"
)

const (
	searchMaxLimit      = 100
	similarDefaultLimit = 5
	suggestDefaultLimit = 5
)

// searchHandler serves the retrieval endpoints. defaultLimit and
// defaultThreshold come from configuration and apply when a request
// omits them.
type searchHandler struct {
	searcher         Searcher
	logger           *slog.Logger
	defaultLimit     int
	defaultThreshold float64
}

type searchRequest struct {
	Query               string   `json:"query"`
	Limit               int      `json:"limit"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

type searchResponse struct {
	Query            string          `json:"query"`
	Results          []search.Result `json:"results"`
	TotalResults     int             `json:"total_results"`
	ProcessingTimeMs float64         `json:"processing_time_ms"`
}

// search runs a semantic query across the knowledge base.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query is required")
		return
	}
	if req.Limit < 0 || req.Limit > searchMaxLimit {
		writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = h.defaultLimit
	}
	threshold := h.defaultThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
		if threshold < 0 || threshold > 1 {
			writeError(w, http.StatusBadRequest, "invalid_threshold", "similarity_threshold must be within [0, 1]")
			return
		}
	}

	results, err := h.searcher.Search(r.Context(), req.Query, limit, threshold)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Query:            req.Query,
		Results:          results,
		TotalResults:     len(results),
		ProcessingTimeMs: elapsedMs(start),
	})
}

// searchInDocument restricts search to one document's chunks.
func (h *searchHandler) searchInDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	query := q.Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "query parameter is required")
		return
	}
	limit, ok := queryLimit(w, q.Get("limit"), h.defaultLimit)
	if !ok {
		return
	}

	results, err := h.searcher.SearchWithinDocument(r.Context(), id, query, limit, h.defaultThreshold)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Query:            query,
		Results:          results,
		TotalResults:     len(results),
		ProcessingTimeMs: elapsedMs(start),
	})
}

// similarDocuments finds documents resembling the given one.
func (h *searchHandler) similarDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, ok := queryLimit(w, r.URL.Query().Get("limit"), similarDefaultLimit)
	if !ok {
		return
	}

	results, err := h.searcher.SimilarDocuments(r.Context(), id, limit)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if results == nil {
		results = []search.DocumentResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"similar_documents": results})
}

// suggestions proposes completions for a partial query.
func (h *searchHandler) suggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	partial := q.Get("q")
	if partial == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "q parameter is required")
		return
	}
	limit, ok := queryLimit(w, q.Get("limit"), suggestDefaultLimit)
	if !ok {
		return
	}

	suggestions, err := h.searcher.Suggestions(r.Context(), partial, limit)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// queryLimit parses an optional limit query parameter, answering 400 on
// out-of-range values.
func queryLimit(w http.ResponseWriter, raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > searchMaxLimit {
		writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
		return 0, false
	}
	return n, true
}
