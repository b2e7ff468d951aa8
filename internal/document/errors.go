package document

import "errors"

// Sentinel errors shared across the ingestion and retrieval layers.
// Wrap with fmt.Errorf("...: %w", Err...) and check with errors.Is.
var (
	// ErrUnsupportedType indicates an upload or ingest of a type outside
	// the supported set (pdf, docx, txt, md).
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrSizeLimitExceeded indicates the raw bytes exceed the configured
	// maximum file size.
	ErrSizeLimitExceeded = errors.New("file size limit exceeded")

	// ErrExtractionFailed indicates text extraction failed on a supported
	// type (corrupt file, undecodable bytes).
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrEmbeddingFailed indicates the embedding gateway failed during an
	// embed, add, update, or delete operation.
	ErrEmbeddingFailed = errors.New("embedding operation failed")

	// ErrNotFound indicates an operation referenced an unknown document id.
	ErrNotFound = errors.New("document not found")

	// ErrDuplicateHash indicates an insert collided with an existing
	// non-deleted document holding the same content hash.
	ErrDuplicateHash = errors.New("duplicate content hash")

	// ErrInvalidChunkConfig indicates malformed chunking parameters
	// (overlap >= chunk size leaves a non-positive stride).
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrQueueFull indicates the ingestion queue rejected new work;
	// callers should retry later.
	ErrQueueFull = errors.New("ingestion queue full")
)
