package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/alexandria-kb/alexandria/internal/document"
)

const chunkColumns = `id, document_id, chunk_index, content, content_hash,
	start_char, end_char, metadata, vector_id, created_at`

// ReplaceChunks swaps a document's chunk set atomically: old rows out, new
// rows in, one transaction. Reprocessing relies on this so a crash never
// leaves a mixed generation behind.
func (s *Store) ReplaceChunks(ctx context.Context, documentID uuid.UUID, chunks []*document.Chunk) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning chunk swap: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, pgUUID(documentID)); err != nil {
		return fmt.Errorf("clearing old chunks: %w", err)
	}

	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling chunk %d metadata: %w", c.Index, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO document_chunks (id, document_id, chunk_index, content,
				content_hash, start_char, end_char, metadata, vector_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
			pgUUID(c.ID), pgUUID(c.DocumentID), c.Index, c.Content, c.ContentHash,
			c.StartChar, c.EndChar, metadataJSON, c.VectorID)
		if err != nil {
			return fmt.Errorf("inserting chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunk swap: %w", err)
	}
	s.logger.Debug("replaced chunks", "document_id", documentID, "count", len(chunks))
	return nil
}

// GetChunks returns a document's chunks in index order.
func (s *Store) GetChunks(ctx context.Context, documentID uuid.UUID) ([]*document.Chunk, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+chunkColumns+`
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index`, pgUUID(documentID))
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*document.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// VectorIDs returns the vector index IDs of a document's chunks, skipping
// chunks that never made it into the index.
func (s *Store) VectorIDs(ctx context.Context, documentID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT vector_id FROM document_chunks
		WHERE document_id = $1 AND vector_id <> ''`, pgUUID(documentID))
	if err != nil {
		return nil, fmt.Errorf("listing vector ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning vector id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ChunkRef is a chunk joined with its owning document's identity, resolved
// from a vector index hit.
type ChunkRef struct {
	Chunk      *document.Chunk
	DocumentID uuid.UUID
	Filename   string
}

// ResolveVectorIDs maps vector index IDs back to chunks and their documents
// in one query. IDs whose chunk row is gone (a stale index entry) are
// silently absent from the result; callers drop those hits.
func (s *Store) ResolveVectorIDs(ctx context.Context, vectorIDs []string) (map[string]ChunkRef, error) {
	if len(vectorIDs) == 0 {
		return map[string]ChunkRef{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.document_id, c.chunk_index, c.content, c.content_hash,
			c.start_char, c.end_char, c.metadata, c.vector_id, c.created_at,
			d.filename
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.vector_id = ANY($1) AND d.processing_status <> $2`,
		vectorIDs, string(document.StatusDeleted))
	if err != nil {
		return nil, fmt.Errorf("resolving vector ids: %w", err)
	}
	defer rows.Close()

	refs := make(map[string]ChunkRef, len(vectorIDs))
	for rows.Next() {
		var (
			c            document.Chunk
			id, docID    pgtype.UUID
			metadataJSON []byte
			createdAt    pgtype.Timestamptz
			filename     string
		)
		err := rows.Scan(&id, &docID, &c.Index, &c.Content, &c.ContentHash,
			&c.StartChar, &c.EndChar, &metadataJSON, &c.VectorID, &createdAt, &filename)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk ref: %w", err)
		}
		c.ID = fromPgUUID(id)
		c.DocumentID = fromPgUUID(docID)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
				c.Metadata = map[string]any{}
			}
		}
		c.CreatedAt = tzTime(createdAt)
		refs[c.VectorID] = ChunkRef{Chunk: &c, DocumentID: c.DocumentID, Filename: filename}
	}
	return refs, rows.Err()
}

// FirstChunk returns a document's chunk at index 0, or ErrNotFound if the
// document has no chunks.
func (s *Store) FirstChunk(ctx context.Context, documentID uuid.UUID) (*document.Chunk, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+chunkColumns+`
		FROM document_chunks
		WHERE document_id = $1 AND chunk_index = 0`, pgUUID(documentID))
	c, err := scanChunk(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrNotFound
		}
		return nil, fmt.Errorf("fetching first chunk: %w", err)
	}
	return c, nil
}

func scanChunk(row rowScanner) (*document.Chunk, error) {
	var (
		c            document.Chunk
		id, docID    pgtype.UUID
		metadataJSON []byte
		createdAt    pgtype.Timestamptz
	)
	err := row.Scan(&id, &docID, &c.Index, &c.Content, &c.ContentHash,
		&c.StartChar, &c.EndChar, &metadataJSON, &c.VectorID, &createdAt)
	if err != nil {
		return nil, err
	}
	c.ID = fromPgUUID(id)
	c.DocumentID = fromPgUUID(docID)
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			c.Metadata = map[string]any{}
		}
	}
	c.CreatedAt = tzTime(createdAt)
	return &c, nil
}
