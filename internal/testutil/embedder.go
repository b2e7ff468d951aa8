package testutil

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// HashEmbedder is a deterministic ai.Embedder for tests that need real
// vector storage without a model API key. Each text maps to a stable unit
// vector derived from its SHA-256 digest, so identical texts are identical
// vectors and different texts are almost surely far apart.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of dim
// dimensions. dim must match the vector column width in the schema.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

func (h *HashEmbedder) Name() string { return "test-hash-embedder" }

func (h *HashEmbedder) Register(_ api.Registry) {}

func (h *HashEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		var text string
		for _, part := range doc.Content {
			text += part.Text
		}
		embeddings[i] = &ai.Embedding{Embedding: h.vectorFor(text)}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func (h *HashEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, h.Dim)
	seed := sha256.Sum256([]byte(text))
	// Stretch the 32-byte digest across the vector by re-hashing with a
	// counter byte, then normalize to unit length.
	var norm float64
	buf := seed
	for i := 0; i < h.Dim; i++ {
		if i%32 == 0 && i > 0 {
			buf = sha256.Sum256(append(buf[:], byte(i/32)))
		}
		v[i] = float32(buf[i%32]) - 128
		norm += float64(v[i]) * float64(v[i])
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
