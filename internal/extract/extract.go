// Package extract turns stored files into plain text for chunking.
// One extractor per supported file type, looked up through a Registry.
package extract

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// Extractor produces the plain-text content of a file on disk.
type Extractor interface {
	Extract(path string) (string, error)
}

// Registry maps file types to their extractors.
type Registry struct {
	byType map[document.FileType]Extractor
}

// NewRegistry returns a registry covering every supported file type.
func NewRegistry() *Registry {
	return &Registry{
		byType: map[document.FileType]Extractor{
			document.TypePlain:    textExtractor{},
			document.TypeMarkdown: textExtractor{},
			document.TypePDF:      pdfExtractor{},
			document.TypeDOCX:     docxExtractor{},
		},
	}
}

// Extract runs the extractor registered for t against path.
func (r *Registry) Extract(path string, t document.FileType) (string, error) {
	ex, ok := r.byType[t]
	if !ok {
		return "", fmt.Errorf("%w: %s", document.ErrUnsupportedType, t)
	}
	return ex.Extract(path)
}

// textExtractor reads .txt and .md files verbatim. Markdown syntax is left
// in place: headings and emphasis markers carry meaning for retrieval.
type textExtractor struct{}

func (textExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", document.ErrExtractionFailed, path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", document.ErrExtractionFailed, path)
	}
	return string(data), nil
}
