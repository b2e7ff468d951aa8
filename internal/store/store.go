// Package store persists documents and chunks in PostgreSQL. It is the
// relational half of the index; vector data lives in the vector package.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store provides document and chunk persistence. Safe for concurrent use.
type Store struct {
	db     DB
	logger *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default.
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

const documentColumns = `id, filename, original_filename, file_path, file_size, file_type,
	content_hash, raw_content, metadata, is_processed, processing_status,
	processing_error, created_at, updated_at`

// CreateDocument inserts a new document. A content-hash collision with a
// non-deleted document returns ErrDuplicateHash; callers resolve the
// existing record with GetDocumentByHash.
func (s *Store) CreateDocument(ctx context.Context, doc *document.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO documents (id, filename, original_filename, file_path, file_size,
			file_type, content_hash, raw_content, metadata, is_processed,
			processing_status, processing_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())`,
		pgUUID(doc.ID), doc.Filename, doc.OriginalFilename, doc.FilePath, doc.FileSize,
		string(doc.FileType), doc.ContentHash, doc.RawContent, metadataJSON,
		doc.IsProcessed, string(doc.Status), doc.ProcessingError)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", document.ErrDuplicateHash, doc.ContentHash)
		}
		return fmt.Errorf("inserting document: %w", err)
	}

	s.logger.Debug("created document", "id", doc.ID, "filename", doc.Filename)
	return nil
}

// GetDocument fetches a document by ID, including soft-deleted ones.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*document.Document, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents WHERE id = $1`, pgUUID(id))
	return scanDocument(row)
}

// GetDocumentByHash fetches the non-deleted document holding a content
// hash. This is the deduplication lookup: at most one such document exists.
func (s *Store) GetDocumentByHash(ctx context.Context, hash string) (*document.Document, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE content_hash = $1 AND processing_status <> $2`,
		hash, string(document.StatusDeleted))
	return scanDocument(row)
}

// ListDocuments returns documents ordered newest-first, optionally filtered
// by status. Soft-deleted documents are excluded unless explicitly requested.
func (s *Store) ListDocuments(ctx context.Context, status document.ProcessingStatus, limit, offset int) ([]*document.Document, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != "" {
		rows, err = s.db.Query(ctx, `
			SELECT `+documentColumns+`
			FROM documents
			WHERE processing_status = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, string(status), limit, offset)
	} else {
		rows, err = s.db.Query(ctx, `
			SELECT `+documentColumns+`
			FROM documents
			WHERE processing_status <> $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3`, string(document.StatusDeleted), limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		doc, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateStatus moves a document through the processing state machine.
// processingError carries the failure message or deletion reason; callers
// pass "" to clear it on other transitions.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status document.ProcessingStatus, processingError string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents
		SET processing_status = $2, processing_error = $3, updated_at = now()
		WHERE id = $1`,
		pgUUID(id), string(status), processingError)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	return nil
}

// UpdateFileInfo refreshes the content fingerprint and size after the file
// changed on disk, keeping the document's identity. A hash collision with
// another non-deleted document returns ErrDuplicateHash.
func (s *Store) UpdateFileInfo(ctx context.Context, id uuid.UUID, contentHash string, fileSize int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents
		SET content_hash = $2, file_size = $3, updated_at = now()
		WHERE id = $1`,
		pgUUID(id), contentHash, fileSize)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", document.ErrDuplicateHash, contentHash)
		}
		return fmt.Errorf("updating file info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	return nil
}

// MarkCompleted records a successful processing run: extracted content,
// completed status, is_processed flag.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID, rawContent string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE documents
		SET raw_content = $2, is_processed = true, processing_status = $3,
			processing_error = '', updated_at = now()
		WHERE id = $1`,
		pgUUID(id), rawContent, string(document.StatusCompleted))
	if err != nil {
		return fmt.Errorf("marking completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	return nil
}

// SoftDelete marks a document deleted, keeping the row for audit. The
// reason (the vacated path for scanner removals) lands in the error field.
// Chunk rows stay in place; the caller removes the vector entries.
func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID, reason string) error {
	return s.UpdateStatus(ctx, id, document.StatusDeleted, reason)
}

// HardDelete removes the document row; chunk rows go with it via cascade.
func (s *Store) HardDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	s.logger.Debug("hard-deleted document", "id", id)
	return nil
}

// Stats summarizes the index for the stats endpoint.
type Stats struct {
	TotalDocuments int64            `json:"total_documents"`
	TotalChunks    int64            `json:"total_chunks"`
	ByStatus       map[string]int64 `json:"by_status"`
}

// GetStats counts documents per status and total chunks.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByStatus: make(map[string]int64)}

	rows, err := s.db.Query(ctx, `
		SELECT processing_status, count(*)
		FROM documents
		GROUP BY processing_status`)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		stats.ByStatus[status] = n
		if status != string(document.StatusDeleted) {
			stats.TotalDocuments += n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM document_chunks`).Scan(&stats.TotalChunks); err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	return stats, nil
}

// pgUUID converts a uuid.UUID to the pgtype wire representation.
func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// fromPgUUID converts back; invalid (NULL) maps to the zero UUID.
func fromPgUUID(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	doc, err := scanDocumentRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	return doc, err
}

func scanDocumentRow(row rowScanner) (*document.Document, error) {
	var (
		doc          document.Document
		id           pgtype.UUID
		fileType     string
		status       string
		metadataJSON []byte
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)
	err := row.Scan(&id, &doc.Filename, &doc.OriginalFilename, &doc.FilePath,
		&doc.FileSize, &fileType, &doc.ContentHash, &doc.RawContent, &metadataJSON,
		&doc.IsProcessed, &status, &doc.ProcessingError, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.ID = fromPgUUID(id)
	doc.FileType = document.FileType(fileType)
	doc.Status = document.ProcessingStatus(status)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			doc.Metadata = map[string]any{}
		}
	}
	doc.CreatedAt = tzTime(createdAt)
	doc.UpdatedAt = tzTime(updatedAt)
	return &doc, nil
}

func tzTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
