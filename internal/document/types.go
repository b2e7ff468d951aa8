// Package document defines the core data model for the knowledge base:
// documents, their chunks, the processing state machine, and the error
// taxonomy shared across the ingestion and retrieval layers.
package document

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus tracks a document through the ingestion state machine.
// Transitions: pending → processing → {completed | failed};
// completed|failed → processing on reprocess; any state → deleted when the
// scanner observes the source file removed.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
	StatusDeleted    ProcessingStatus = "deleted"
)

// FileType is the closed set of supported document types.
type FileType string

const (
	TypePDF      FileType = "pdf"
	TypeDOCX     FileType = "docx"
	TypePlain    FileType = "txt"
	TypeMarkdown FileType = "md"
)

// supportedExtensions maps file extensions to their FileType.
// Files outside this set are invisible to the scanner and rejected on upload.
var supportedExtensions = map[string]FileType{
	".pdf":  TypePDF,
	".docx": TypeDOCX,
	".txt":  TypePlain,
	".md":   TypeMarkdown,
}

// contentTypes maps MIME content types to their FileType.
var contentTypes = map[string]FileType{
	"application/pdf": TypePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": TypeDOCX,
	"text/plain":    TypePlain,
	"text/markdown": TypeMarkdown,
}

// TypeForExtension returns the FileType for a lowercase file extension
// (including the leading dot). ok is false for unsupported extensions.
func TypeForExtension(ext string) (FileType, bool) {
	t, ok := supportedExtensions[ext]
	return t, ok
}

// TypeForContentType returns the FileType for a MIME content type.
func TypeForContentType(contentType string) (FileType, bool) {
	t, ok := contentTypes[contentType]
	return t, ok
}

// Valid reports whether t is one of the supported file types.
func (t FileType) Valid() bool {
	switch t {
	case TypePDF, TypeDOCX, TypePlain, TypeMarkdown:
		return true
	}
	return false
}

// Document is a single ingested file. ContentHash is the deduplication key:
// it is unique across all non-deleted documents.
type Document struct {
	ID               uuid.UUID
	Filename         string
	OriginalFilename string
	FilePath         string
	FileSize         int64
	FileType         FileType
	ContentHash      string
	RawContent       string // empty until extraction completes
	Metadata         map[string]any
	IsProcessed      bool
	Status           ProcessingStatus
	ProcessingError  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Chunk is a bounded, overlapping slice of a document's extracted text, the
// unit of embedding and retrieval. Indices are dense and 0-based within the
// owning document. VectorID links the chunk to its entry in the vector
// index; it is empty until embedding succeeds.
type Chunk struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	Index       int
	Content     string
	ContentHash string
	StartChar   int
	EndChar     int
	Metadata    map[string]any
	VectorID    string
	CreatedAt   time.Time
}
