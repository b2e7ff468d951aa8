// Package ingest drives documents through the processing state machine:
// validate, persist, extract, chunk, embed, index. Processing runs on a
// bounded worker pool so uploads return immediately.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexandria-kb/alexandria/internal/chunker"
	"github.com/alexandria-kb/alexandria/internal/document"
	"github.com/alexandria-kb/alexandria/internal/vector"
)

// DocumentStore is the persistence surface the pipeline needs.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *document.Document) error
	GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error)
	GetDocumentByHash(ctx context.Context, hash string) (*document.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status document.ProcessingStatus, processingError string) error
	UpdateFileInfo(ctx context.Context, id uuid.UUID, contentHash string, fileSize int64) error
	MarkCompleted(ctx context.Context, id uuid.UUID, rawContent string) error
	SoftDelete(ctx context.Context, id uuid.UUID, reason string) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []*document.Chunk) error
	VectorIDs(ctx context.Context, documentID uuid.UUID) ([]string, error)
}

// VectorIndex is the slice of the vector gateway the pipeline uses.
type VectorIndex interface {
	Add(ctx context.Context, entries []vector.Entry) error
	Delete(ctx context.Context, ids []string) error
}

// Extractor resolves file content to plain text by type.
type Extractor interface {
	Extract(path string, t document.FileType) (string, error)
}

// Config holds pipeline limits and locations.
type Config struct {
	UploadDir    string
	MaxFileSize  int64 // bytes
	ChunkSize    int
	ChunkOverlap int
}

// Pipeline ingests and processes documents. Safe for concurrent use; all
// mutable state lives in the database.
type Pipeline struct {
	store   DocumentStore
	index   VectorIndex
	extract Extractor
	chunker *chunker.Chunker
	pool    *Pool
	cfg     Config
	logger  *slog.Logger
}

// New builds a Pipeline. The pool is owned by the caller (it is shared
// infrastructure shut down by the app).
func New(st DocumentStore, index VectorIndex, extract Extractor, pool *Pool, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		store:   st,
		index:   index,
		extract: extract,
		chunker: ch,
		pool:    pool,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// IngestUpload accepts an uploaded file: validates type and size, saves the
// bytes under a collision-free name, registers the document as pending and
// queues processing. Content already present (same fingerprint) short-
// circuits to the existing document with isNew=false. Caller metadata is
// merged into the document's metadata; the source and filename keys are
// reserved.
func (p *Pipeline) IngestUpload(ctx context.Context, originalFilename string, r io.Reader, meta map[string]any) (doc *document.Document, isNew bool, err error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	fileType, ok := document.TypeForExtension(ext)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", document.ErrUnsupportedType, ext)
	}

	// Read one byte past the limit so oversize uploads are detected without
	// buffering arbitrarily large bodies.
	data, err := io.ReadAll(io.LimitReader(r, p.cfg.MaxFileSize+1))
	if err != nil {
		return nil, false, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, false, fmt.Errorf("%w: limit %d bytes", document.ErrSizeLimitExceeded, p.cfg.MaxFileSize)
	}

	hash := document.Fingerprint(data)
	if existing, err := p.store.GetDocumentByHash(ctx, hash); err == nil {
		p.logger.Info("duplicate upload", "filename", originalFilename, "existing_id", existing.ID)
		return existing, false, nil
	} else if !errors.Is(err, document.ErrNotFound) {
		return nil, false, fmt.Errorf("checking for duplicate: %w", err)
	}

	id := uuid.New()
	storedName := id.String() + ext
	if err := os.MkdirAll(p.cfg.UploadDir, 0o750); err != nil {
		return nil, false, fmt.Errorf("creating upload directory: %w", err)
	}
	path := filepath.Join(p.cfg.UploadDir, storedName)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return nil, false, fmt.Errorf("saving upload: %w", err)
	}

	metadata := make(map[string]any, len(meta)+2)
	for k, v := range meta {
		metadata[k] = v
	}
	metadata["source"] = "upload"
	metadata["filename"] = originalFilename

	doc = &document.Document{
		ID:               id,
		Filename:         storedName,
		OriginalFilename: originalFilename,
		FilePath:         path,
		FileSize:         int64(len(data)),
		FileType:         fileType,
		ContentHash:      hash,
		Metadata:         metadata,
		Status:           document.StatusPending,
	}
	if err := p.register(ctx, doc, path); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// IngestFile registers a file discovered by the scanner, leaving the bytes
// in place. Returns the document and whether it was newly registered.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (*document.Document, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fileType, ok := document.TypeForExtension(ext)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s", document.ErrUnsupportedType, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, false, fmt.Errorf("stating %s: %w", path, err)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, false, fmt.Errorf("%w: %s is %d bytes", document.ErrSizeLimitExceeded, path, info.Size())
	}

	hash, err := document.FingerprintFile(path)
	if err != nil {
		return nil, false, err
	}
	if existing, err := p.store.GetDocumentByHash(ctx, hash); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, document.ErrNotFound) {
		return nil, false, fmt.Errorf("checking for duplicate: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	doc := &document.Document{
		ID:               uuid.New(),
		Filename:         filepath.Base(path),
		OriginalFilename: filepath.Base(path),
		FilePath:         path,
		FileSize:         info.Size(),
		FileType:         fileType,
		ContentHash:      hash,
		Metadata: map[string]any{
			"source":        "scanner",
			"filename":      filepath.Base(path),
			"original_path": absPath,
			"indexed_at":    time.Now().UTC().Format(time.RFC3339),
		},
		Status: document.StatusPending,
	}
	if err := p.register(ctx, doc, path); err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// register persists the pending document and queues its processing. A full
// queue marks the document failed so its state is visible, then surfaces
// ErrQueueFull.
func (p *Pipeline) register(ctx context.Context, doc *document.Document, path string) error {
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		if errors.Is(err, document.ErrDuplicateHash) {
			// Raced with a concurrent ingest of the same content.
			if existing, lookupErr := p.store.GetDocumentByHash(ctx, doc.ContentHash); lookupErr == nil {
				*doc = *existing
				return nil
			}
		}
		return err
	}

	id := doc.ID
	if err := p.pool.Submit(func(workerCtx context.Context) {
		p.Process(workerCtx, id)
	}); err != nil {
		if statusErr := p.store.UpdateStatus(ctx, id, document.StatusFailed, "ingestion queue full"); statusErr != nil {
			p.logger.Error("marking queued-out document failed", "id", id, "error", statusErr)
		}
		return err
	}

	p.logger.Info("document queued", "id", id, "path", path)
	return nil
}

// Process runs the extraction-to-index stage for one document. Any failure
// moves the document to failed with the error recorded; partial vector
// writes are cleaned up on the next successful run via ID-stable upserts.
func (p *Pipeline) Process(ctx context.Context, id uuid.UUID) {
	start := time.Now()
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		p.logger.Error("loading document for processing", "id", id, "error", err)
		return
	}

	if err := p.store.UpdateStatus(ctx, id, document.StatusProcessing, ""); err != nil {
		p.logger.Error("marking document processing", "id", id, "error", err)
		return
	}

	if err := p.process(ctx, doc); err != nil {
		p.logger.Warn("processing failed", "id", id, "error", err)
		if statusErr := p.store.UpdateStatus(ctx, id, document.StatusFailed, err.Error()); statusErr != nil {
			p.logger.Error("marking document failed", "id", id, "error", statusErr)
		}
		return
	}

	p.logger.Info("document processed", "id", id, "elapsed", time.Since(start))
}

func (p *Pipeline) process(ctx context.Context, doc *document.Document) error {
	text, err := p.extract.Extract(doc.FilePath, doc.FileType)
	if err != nil {
		return err
	}

	base := map[string]any{
		"document_id": doc.ID.String(),
		"filename":    doc.OriginalFilename,
		"file_type":   string(doc.FileType),
	}
	drafts := p.chunker.Chunk(text, base)

	// Remove the previous generation's vectors before indexing the new one;
	// chunk counts can shrink and stale tails must not survive.
	oldIDs, err := p.store.VectorIDs(ctx, doc.ID)
	if err != nil {
		return err
	}
	if len(oldIDs) > 0 {
		if err := p.index.Delete(ctx, oldIDs); err != nil {
			return err
		}
	}

	chunks := make([]*document.Chunk, len(drafts))
	entries := make([]vector.Entry, len(drafts))
	for i, d := range drafts {
		vectorID := fmt.Sprintf("%s_%d", doc.ID, d.Index)
		chunks[i] = &document.Chunk{
			ID:          uuid.New(),
			DocumentID:  doc.ID,
			Index:       d.Index,
			Content:     d.Content,
			ContentHash: d.ContentHash,
			StartChar:   d.StartChar,
			EndChar:     d.EndChar,
			Metadata:    d.Metadata,
			VectorID:    vectorID,
		}
		entries[i] = vector.Entry{ID: vectorID, Content: d.Content, Metadata: d.Metadata}
	}

	if len(entries) > 0 {
		if err := p.index.Add(ctx, entries); err != nil {
			return err
		}
	}
	if err := p.store.ReplaceChunks(ctx, doc.ID, chunks); err != nil {
		return err
	}
	return p.store.MarkCompleted(ctx, doc.ID, text)
}

// Reprocess re-runs processing for an existing document, re-reading its
// file from disk. Valid from any state, so documents stuck in pending or
// processing after a crash can be recovered. The fingerprint and size are
// refreshed first: a file changed on disk replaces the old generation
// under the document's original identity.
func (p *Pipeline) Reprocess(ctx context.Context, id uuid.UUID) error {
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	info, err := os.Stat(doc.FilePath)
	if err != nil {
		return fmt.Errorf("stating %s: %w", doc.FilePath, err)
	}
	hash, err := document.FingerprintFile(doc.FilePath)
	if err != nil {
		return err
	}
	if hash != doc.ContentHash {
		if err := p.store.UpdateFileInfo(ctx, id, hash, info.Size()); err != nil {
			return err
		}
	}

	if err := p.store.UpdateStatus(ctx, id, document.StatusPending, ""); err != nil {
		return err
	}
	if err := p.pool.Submit(func(workerCtx context.Context) {
		p.Process(workerCtx, id)
	}); err != nil {
		if statusErr := p.store.UpdateStatus(ctx, id, document.StatusFailed, "ingestion queue full"); statusErr != nil {
			p.logger.Error("marking requeued document failed", "id", id, "error", statusErr)
		}
		return err
	}
	p.logger.Info("document requeued", "id", id)
	return nil
}

// Delete removes a document from the index: vectors always, the row either
// soft-deleted (default) or removed entirely. The reason is recorded on the
// soft-deleted row; the scanner passes the vacated path.
func (p *Pipeline) Delete(ctx context.Context, id uuid.UUID, hard bool, reason string) error {
	if _, err := p.store.GetDocument(ctx, id); err != nil {
		return err
	}

	vectorIDs, err := p.store.VectorIDs(ctx, id)
	if err != nil {
		return err
	}
	if len(vectorIDs) > 0 {
		if err := p.index.Delete(ctx, vectorIDs); err != nil {
			return err
		}
	}

	if hard {
		return p.store.HardDelete(ctx, id)
	}
	return p.store.SoftDelete(ctx, id, reason)
}
