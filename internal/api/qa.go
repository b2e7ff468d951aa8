package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexandria-kb/alexandria/internal/search"
)

const (
	qaDefaultContextLimit = 5
	qaMaxContextLimit     = 20
)

// qaHandler serves question answering and completeness checking.
type qaHandler struct {
	answerer Answerer
	logger   *slog.Logger
}

type qaRequest struct {
	Question       string `json:"question"`
	ContextLimit   int    `json:"context_limit"`
	IncludeSources *bool  `json:"include_sources"`
}

type completenessRequest struct {
	Topic           string   `json:"topic"`
	RequiredAspects []string `json:"required_aspects"`
}

type qaResponse struct {
	Question         string          `json:"question"`
	Answer           string          `json:"answer"`
	Confidence       float64         `json:"confidence_score"`
	Completeness     float64         `json:"completeness_score"`
	Sources          []search.Result `json:"sources,omitempty"`
	ProcessingTimeMs float64         `json:"processing_time_ms"`
}

// ask answers a natural-language question from the knowledge base.
func (h *qaHandler) ask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req qaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "missing_question", "question is required")
		return
	}
	if req.ContextLimit < 0 || req.ContextLimit > qaMaxContextLimit {
		writeError(w, http.StatusBadRequest, "invalid_context_limit", "context_limit must be between 1 and 20")
		return
	}
	contextLimit := req.ContextLimit
	if contextLimit == 0 {
		contextLimit = qaDefaultContextLimit
	}
	includeSources := true
	if req.IncludeSources != nil {
		includeSources = *req.IncludeSources
	}

	resp, err := h.answerer.Answer(r.Context(), req.Question, contextLimit, includeSources)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, qaResponse{
		Question:         resp.Question,
		Answer:           resp.Answer,
		Confidence:       resp.Confidence,
		Completeness:     resp.Completeness,
		Sources:          resp.Sources,
		ProcessingTimeMs: elapsedMs(start),
	})
}

// completeness reports how well the knowledge base covers a topic.
func (h *qaHandler) completeness(w http.ResponseWriter, r *http.Request) {
	var req completenessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON")
		return
	}
	if req.Topic == "" {
		writeError(w, http.StatusBadRequest, "missing_topic", "topic is required")
		return
	}

	report, err := h.answerer.CheckCompleteness(r.Context(), req.Topic, req.RequiredAspects)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
