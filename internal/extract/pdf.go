package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// pdfExtractor extracts the text layer of a PDF. Scanned PDFs without a
// text layer produce empty output rather than an error; the pipeline treats
// zero extracted words as a document with no chunks.
type pdfExtractor struct{}

func (pdfExtractor) Extract(path string) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parsing pdf %s: %v", document.ErrExtractionFailed, path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening pdf %s: %v", document.ErrExtractionFailed, path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extracting pdf %s: %v", document.ErrExtractionFailed, path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: reading pdf text %s: %v", document.ErrExtractionFailed, path, err)
	}
	return buf.String(), nil
}
