package api

import (
	"log/slog"
	"math"
	"net/http"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// statsHandler serves knowledge base statistics.
type statsHandler struct {
	documents DocumentReader
	vectors   VectorCounter
	logger    *slog.Logger
}

type statsResponse struct {
	TotalDocuments     int64            `json:"total_documents"`
	ProcessedDocuments int64            `json:"processed_documents"`
	TotalChunks        int64            `json:"total_chunks"`
	ByStatus           map[string]int64 `json:"by_status"`
	VectorEntries      *int64           `json:"vector_entries,omitempty"`
	ProcessingRate     float64          `json:"processing_rate"`
}

func (h *statsHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.documents.GetStats(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	processed := stats.ByStatus[string(document.StatusCompleted)]

	resp := statsResponse{
		TotalDocuments:     stats.TotalDocuments,
		ProcessedDocuments: processed,
		TotalChunks:        stats.TotalChunks,
		ByStatus:           stats.ByStatus,
		ProcessingRate:     processingRate(processed, stats.TotalDocuments),
	}

	if h.vectors != nil {
		count, err := h.vectors.Count(r.Context())
		if err != nil {
			// Vector index trouble should not hide the relational stats.
			h.logger.Warn("counting vector entries", "error", err)
		} else {
			resp.VectorEntries = &count
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// processingRate is the percentage of documents fully processed, rounded
// to two decimals.
func processingRate(processed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(processed)/float64(total)*100*100) / 100
}
