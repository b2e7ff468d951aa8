package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// docxExtractor pulls paragraph text out of word/document.xml inside the
// docx zip container. Formatting, tables and embedded objects are ignored;
// each w:p element becomes one line.
type docxExtractor struct{}

func (docxExtractor) Extract(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening docx %s: %v", document.ErrExtractionFailed, path, err)
	}
	defer func() {
		_ = zr.Close()
	}()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: %s has no word/document.xml", document.ErrExtractionFailed, path)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("%w: opening document.xml in %s: %v", document.ErrExtractionFailed, path, err)
	}
	defer func() {
		_ = rc.Close()
	}()

	text, err := docxText(xml.NewDecoder(rc))
	if err != nil {
		return "", fmt.Errorf("%w: parsing %s: %v", document.ErrExtractionFailed, path, err)
	}
	return text, nil
}

// docxText walks the WordprocessingML stream collecting w:t character runs,
// separating paragraphs (w:p) with newlines.
func docxText(dec *xml.Decoder) (string, error) {
	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(el)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
