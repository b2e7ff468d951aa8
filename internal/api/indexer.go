package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/alexandria-kb/alexandria/internal/security"
)

// indexerHandler serves scanner admin operations.
type indexerHandler struct {
	indexer Indexer
	logger  *slog.Logger
}

type directoryRequest struct {
	DirectoryPath string `json:"directory_path"`
}

func (h *indexerHandler) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.indexer.Status())
}

func (h *indexerHandler) addDirectory(w http.ResponseWriter, r *http.Request) {
	raw, ok := decodeDirectory(w, r)
	if !ok {
		return
	}
	dir, err := security.ValidateDirectory(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_directory", err.Error())
		return
	}
	h.indexer.AddWatchDirectory(dir)
	h.logger.Info("watch directory added", "dir", dir)
	writeJSON(w, http.StatusOK, map[string]string{"message": "added watch directory: " + dir})
}

func (h *indexerHandler) removeDirectory(w http.ResponseWriter, r *http.Request) {
	dir, ok := decodeDirectory(w, r)
	if !ok {
		return
	}
	h.indexer.RemoveWatchDirectory(dir)
	h.logger.Info("watch directory removed", "dir", dir)
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed watch directory: " + dir})
}

// forceReindex rescans every watched directory from a clean slate. The
// scan runs synchronously; content dedup keeps unchanged files cheap.
func (h *indexerHandler) forceReindex(w http.ResponseWriter, r *http.Request) {
	h.indexer.ForceReindex(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"message": "force reindex completed"})
}

func decodeDirectory(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req directoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DirectoryPath == "" {
		writeError(w, http.StatusBadRequest, "missing_directory", "directory_path is required")
		return "", false
	}
	return req.DirectoryPath, true
}
