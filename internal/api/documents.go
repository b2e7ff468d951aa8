package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/alexandria-kb/alexandria/internal/document"
)

const (
	listDefaultLimit = 50
	listMaxLimit     = 200
)

// documentHandler serves document upload and lifecycle endpoints.
type documentHandler struct {
	ingestor  Ingestor
	documents DocumentReader
	logger    *slog.Logger
}

// documentResponse is the JSON shape of a document.
type documentResponse struct {
	ID               uuid.UUID                 `json:"id"`
	Filename         string                    `json:"filename"`
	OriginalFilename string                    `json:"original_filename"`
	FilePath         string                    `json:"file_path"`
	FileSize         int64                     `json:"file_size"`
	FileType         document.FileType         `json:"file_type"`
	ContentHash      string                    `json:"content_hash"`
	Metadata         map[string]any            `json:"metadata,omitempty"`
	IsProcessed      bool                      `json:"is_processed"`
	ProcessingStatus document.ProcessingStatus `json:"processing_status"`
	ProcessingError  string                    `json:"processing_error,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

func toDocumentResponse(doc *document.Document) documentResponse {
	return documentResponse{
		ID:               doc.ID,
		Filename:         doc.Filename,
		OriginalFilename: doc.OriginalFilename,
		FilePath:         doc.FilePath,
		FileSize:         doc.FileSize,
		FileType:         doc.FileType,
		ContentHash:      doc.ContentHash,
		Metadata:         doc.Metadata,
		IsProcessed:      doc.IsProcessed,
		ProcessingStatus: doc.Status,
		ProcessingError:  doc.ProcessingError,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

type uploadResponse struct {
	documentResponse
	IsNew bool `json:"is_new"`
}

// upload accepts a multipart form with a file part and an optional
// metadata part holding a JSON object. A duplicate upload answers 200
// with the existing document; new content answers 201.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing_file", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	var meta map[string]any
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_metadata", "metadata must be a JSON object")
			return
		}
	}

	doc, isNew, err := h.ingestor.IngestUpload(r.Context(), header.Filename, file, meta)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	writeJSON(w, status, uploadResponse{documentResponse: toDocumentResponse(doc), IsNew: isNew})
}

// list returns documents, newest first. Optional query parameters:
// status, limit, offset.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status document.ProcessingStatus
	if s := q.Get("status"); s != "" {
		status = document.ProcessingStatus(s)
		switch status {
		case document.StatusPending, document.StatusProcessing,
			document.StatusCompleted, document.StatusFailed, document.StatusDeleted:
		default:
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown processing status")
			return
		}
	}

	limit := listDefaultLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > listMaxLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	offset := 0
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_offset", "offset must be non-negative")
			return
		}
		offset = n
	}

	docs, err := h.documents.ListDocuments(r.Context(), status, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	out := make([]documentResponse, len(docs))
	for i, d := range docs {
		out[i] = toDocumentResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": out,
		"count":     len(out),
	})
}

func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.documents.GetDocument(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

// delete removes a document and its vectors. ?hard=true removes the row
// entirely instead of soft-deleting.
func (h *documentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	hard := r.URL.Query().Get("hard") == "true"
	if err := h.ingestor.Delete(r.Context(), id, hard, ""); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "document deleted"})
}

func (h *documentHandler) reprocess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.ingestor.Reprocess(r.Context(), id); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "document reprocessing started"})
}

// pathID parses the {id} path segment, answering 400 on malformed IDs.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "document ID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
