// Package chunker splits extracted text into overlapping, position-tracked
// segments sized for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/alexandria-kb/alexandria/internal/document"
)

// Draft is a chunk before persistence: content, a dense 0-based index,
// character offsets into the normalized text, and metadata merged from the
// document's base metadata plus the index and offsets.
type Draft struct {
	Content     string
	Index       int
	StartChar   int
	EndChar     int
	ContentHash string
	Metadata    map[string]any
}

// Chunker splits text on whitespace-delimited word boundaries using a fixed
// window of Size words advancing by Size-Overlap words per step.
//
// The windowing is lossy with respect to original whitespace: runs of
// spaces and newlines collapse to single spaces, so offsets are positions
// in the normalized (single-space-joined) text, not the raw input. This is
// an accepted approximation of the source layout.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters. Overlap must be strictly less than
// size, otherwise the stride is non-positive and chunking cannot advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", document.ErrInvalidChunkConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must be non-negative", document.ErrInvalidChunkConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be less than chunk size %d", document.ErrInvalidChunkConfig, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk produces the ordered draft sequence for text. Empty or
// whitespace-only input yields no drafts.
func (c *Chunker) Chunk(text string, baseMetadata map[string]any) []Draft {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	// Prefix word lengths let offsets be computed without re-joining the
	// word slice per chunk. joined(words[:i]) has length prefix[i].
	prefix := make([]int, len(words)+1)
	for i, w := range words {
		prefix[i+1] = prefix[i] + len(w)
		if i > 0 {
			prefix[i+1]++ // joining space before word i
		}
	}

	stride := c.size - c.overlap
	var drafts []Draft
	for i := 0; i < len(words); i += stride {
		end := min(i+c.size, len(words))
		content := strings.Join(words[i:end], " ")

		meta := make(map[string]any, len(baseMetadata)+3)
		for k, v := range baseMetadata {
			meta[k] = v
		}
		index := len(drafts)
		startChar := prefix[i]
		endChar := prefix[end]
		meta["chunk_index"] = index
		meta["start_char"] = startChar
		meta["end_char"] = endChar

		drafts = append(drafts, Draft{
			Content:     content,
			Index:       index,
			StartChar:   startChar,
			EndChar:     endChar,
			ContentHash: document.FingerprintText(content),
			Metadata:    meta,
		})
	}
	return drafts
}
