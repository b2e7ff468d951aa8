//go:build integration
// +build integration

package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexandria-kb/alexandria/internal/document"
	"github.com/alexandria-kb/alexandria/internal/testutil"
)

func setupStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, cleanup := testutil.SetupTestDB(t)
	return New(db.Pool, testutil.DiscardLogger()), cleanup
}

func newTestDocument(hash string) *document.Document {
	return &document.Document{
		ID:               uuid.New(),
		Filename:         "stored.txt",
		OriginalFilename: "original.txt",
		FilePath:         "/uploads/stored.txt",
		FileSize:         42,
		FileType:         document.TypePlain,
		ContentHash:      hash,
		Metadata:         map[string]any{"source": "test"},
		Status:           document.StatusPending,
	}
}

func TestStore_DocumentRoundTrip(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := newTestDocument("hash-roundtrip")
	require.NoError(t, s.CreateDocument(ctx, doc))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Filename, got.Filename)
	assert.Equal(t, document.StatusPending, got.Status)
	assert.Equal(t, "test", got.Metadata["source"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestStore_GetDocumentNotFound(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()

	_, err := s.GetDocument(context.Background(), uuid.New())
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStore_DuplicateHashRejected(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, newTestDocument("hash-dup")))

	err := s.CreateDocument(ctx, newTestDocument("hash-dup"))
	assert.ErrorIs(t, err, document.ErrDuplicateHash)
}

func TestStore_DeletedHashCanBeReused(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	first := newTestDocument("hash-reuse")
	require.NoError(t, s.CreateDocument(ctx, first))
	require.NoError(t, s.SoftDelete(ctx, first.ID, "superseded"))

	// The hash is free again once the holder is soft-deleted.
	require.NoError(t, s.CreateDocument(ctx, newTestDocument("hash-reuse")))

	// And the hash lookup must resolve the live document, not the deleted one.
	got, err := s.GetDocumentByHash(ctx, "hash-reuse")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, got.ID)
}

func TestStore_StatusTransitions(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := newTestDocument("hash-status")
	require.NoError(t, s.CreateDocument(ctx, doc))

	require.NoError(t, s.UpdateStatus(ctx, doc.ID, document.StatusProcessing, ""))
	require.NoError(t, s.UpdateStatus(ctx, doc.ID, document.StatusFailed, "extraction failed"))

	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusFailed, got.Status)
	assert.Equal(t, "extraction failed", got.ProcessingError)

	require.NoError(t, s.MarkCompleted(ctx, doc.ID, "extracted text"))
	got, err = s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, document.StatusCompleted, got.Status)
	assert.True(t, got.IsProcessed)
	assert.Empty(t, got.ProcessingError)
	assert.Equal(t, "extracted text", got.RawContent)
}

func TestStore_UpdateFileInfo(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := newTestDocument("hash-before")
	require.NoError(t, s.CreateDocument(ctx, doc))

	require.NoError(t, s.UpdateFileInfo(ctx, doc.ID, "hash-after", 2048))
	got, err := s.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-after", got.ContentHash)
	assert.Equal(t, int64(2048), got.FileSize)

	// Moving onto a hash held by another live document is a collision.
	other := newTestDocument("hash-taken")
	require.NoError(t, s.CreateDocument(ctx, other))
	err = s.UpdateFileInfo(ctx, doc.ID, "hash-taken", 1)
	assert.ErrorIs(t, err, document.ErrDuplicateHash)

	err = s.UpdateFileInfo(ctx, uuid.New(), "hash-nowhere", 1)
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStore_UpdateStatusUnknownDocument(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()

	err := s.UpdateStatus(context.Background(), uuid.New(), document.StatusProcessing, "")
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestStore_ReplaceChunksAndResolve(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := newTestDocument("hash-chunks")
	require.NoError(t, s.CreateDocument(ctx, doc))

	makeChunks := func(n int, gen string) []*document.Chunk {
		chunks := make([]*document.Chunk, n)
		for i := range chunks {
			content := fmt.Sprintf("%s chunk %d", gen, i)
			chunks[i] = &document.Chunk{
				ID:          uuid.New(),
				DocumentID:  doc.ID,
				Index:       i,
				Content:     content,
				ContentHash: document.FingerprintText(content),
				VectorID:    fmt.Sprintf("%s_%s_%d", doc.ID, gen, i),
			}
		}
		return chunks
	}

	require.NoError(t, s.ReplaceChunks(ctx, doc.ID, makeChunks(3, "gen1")))

	second := makeChunks(2, "gen2")
	require.NoError(t, s.ReplaceChunks(ctx, doc.ID, second))

	got, err := s.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, got, 2, "old generation must be fully replaced")
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 1, got[1].Index)

	ids, err := s.VectorIDs(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	refs, err := s.ResolveVectorIDs(ctx, append(ids, "stale-vector-id"))
	require.NoError(t, err)
	require.Len(t, refs, 2, "stale ids resolve to nothing")
	for _, id := range ids {
		ref, ok := refs[id]
		require.True(t, ok)
		assert.Equal(t, doc.ID, ref.DocumentID)
		assert.Equal(t, doc.Filename, ref.Filename)
	}

	first, err := s.FirstChunk(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, second[0].Content, first.Content)
}

func TestStore_ResolveSkipsDeletedDocuments(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := newTestDocument("hash-resolve-deleted")
	require.NoError(t, s.CreateDocument(ctx, doc))
	chunk := &document.Chunk{
		ID: uuid.New(), DocumentID: doc.ID, Index: 0,
		Content: "text", ContentHash: document.FingerprintText("text"),
		VectorID: "vid-deleted-0",
	}
	require.NoError(t, s.ReplaceChunks(ctx, doc.ID, []*document.Chunk{chunk}))
	require.NoError(t, s.SoftDelete(ctx, doc.ID, ""))

	refs, err := s.ResolveVectorIDs(ctx, []string{"vid-deleted-0"})
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestStore_ListDocuments(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateDocument(ctx, newTestDocument(fmt.Sprintf("hash-list-%d", i))))
	}
	deleted := newTestDocument("hash-list-deleted")
	require.NoError(t, s.CreateDocument(ctx, deleted))
	require.NoError(t, s.SoftDelete(ctx, deleted.ID, "removed from disk"))

	docs, err := s.ListDocuments(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 3, "soft-deleted documents are excluded by default")

	docs, err = s.ListDocuments(ctx, document.StatusDeleted, 10, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStore_HardDeleteCascades(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := newTestDocument("hash-hard-delete")
	require.NoError(t, s.CreateDocument(ctx, doc))
	require.NoError(t, s.ReplaceChunks(ctx, doc.ID, []*document.Chunk{{
		ID: uuid.New(), DocumentID: doc.ID, Index: 0,
		Content: "text", ContentHash: document.FingerprintText("text"),
	}}))

	require.NoError(t, s.HardDelete(ctx, doc.ID))

	_, err := s.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, document.ErrNotFound)

	chunks, err := s.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks, "chunk rows must cascade on document delete")
}

func TestStore_Stats(t *testing.T) {
	s, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	completed := newTestDocument("hash-stats-1")
	require.NoError(t, s.CreateDocument(ctx, completed))
	require.NoError(t, s.MarkCompleted(ctx, completed.ID, "content"))
	require.NoError(t, s.ReplaceChunks(ctx, completed.ID, []*document.Chunk{{
		ID: uuid.New(), DocumentID: completed.ID, Index: 0,
		Content: "content", ContentHash: document.FingerprintText("content"),
	}}))
	require.NoError(t, s.CreateDocument(ctx, newTestDocument("hash-stats-2")))

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDocuments)
	assert.Equal(t, int64(1), stats.TotalChunks)
	assert.Equal(t, int64(1), stats.ByStatus["completed"])
	assert.Equal(t, int64(1), stats.ByStatus["pending"])
}
