// Package answer synthesizes natural-language answers from ranked
// retrieval results and scores knowledge-base coverage of topics.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/alexandria-kb/alexandria/internal/search"
)

// Searcher is the retrieval surface the synthesizer consumes.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, threshold float64) ([]search.Result, error)
}

const (
	// qaThreshold filters retrieval for answer context.
	qaThreshold = 0.6

	// contextBudget caps the total characters of source blocks in the
	// prompt. Blocks already included stay when the budget runs out.
	contextBudget = 4000

	// fallbackExcerpt bounds the excerpt used when the model is
	// unreachable.
	fallbackExcerpt = 300

	// fallbackConfidenceCap bounds the confidence reported for a
	// template answer that no model reviewed.
	fallbackConfidenceCap = 0.8

	notFoundAnswer = "I couldn't find relevant information in the knowledge base to answer your question."
)

// Response is a synthesized answer with its quality scores.
type Response struct {
	Question     string          `json:"question"`
	Answer       string          `json:"answer"`
	Confidence   float64         `json:"confidence_score"`
	Completeness float64         `json:"completeness_score"`
	Sources      []search.Result `json:"sources,omitempty"`
}

// Synthesizer answers questions over the knowledge base. A model failure
// degrades to a deterministic template answer, never to a request error.
type Synthesizer struct {
	searcher  Searcher
	generator Generator
	logger    *slog.Logger
}

// New creates a Synthesizer.
func New(searcher Searcher, generator Generator, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{searcher: searcher, generator: generator, logger: logger}
}

// Answer retrieves context for the question and synthesizes an answer.
// contextLimit bounds how many chunks are retrieved; includeSources
// controls whether the ranked sources are echoed in the response.
func (s *Synthesizer) Answer(ctx context.Context, question string, contextLimit int, includeSources bool) (*Response, error) {
	results, err := s.searcher.Search(ctx, question, contextLimit, qaThreshold)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	resp := &Response{Question: question}
	if includeSources {
		resp.Sources = results
	}
	if len(results) == 0 {
		resp.Answer = notFoundAnswer
		return resp, nil
	}

	similarities := make([]float64, len(results))
	docs := make(map[string]struct{})
	for i, r := range results {
		similarities[i] = r.Similarity
		docs[r.DocumentID.String()] = struct{}{}
	}
	resp.Completeness = Completeness(similarities, len(docs))

	text, err := s.generator.Generate(ctx, buildPrompt(question, results))
	if err != nil || text == "" {
		s.logger.Warn("model unavailable, using fallback answer", "error", err)
		resp.Answer, resp.Confidence = fallbackAnswer(results[0])
		return resp, nil
	}

	resp.Answer = text
	resp.Confidence = Confidence(text, similarities)
	return resp, nil
}

// buildPrompt concatenates source blocks in ranking order until the next
// block would push the running total past the context budget.
func buildPrompt(question string, results []search.Result) string {
	var blocks []string
	total := 0
	for _, r := range results {
		block := fmt.Sprintf("Source: %s\n%s\n", r.Filename, r.Content)
		if total+len(block) > contextBudget {
			break
		}
		blocks = append(blocks, block)
		total += len(block)
	}

	var b strings.Builder
	b.WriteString("Based on the following context from the knowledge base, answer the question accurately and concisely.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(blocks, "\n---\n"))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Only use information from the provided context\n")
	b.WriteString("- If the context doesn't contain enough information, say so clearly\n")
	b.WriteString("- Be specific and cite relevant details from the context\n")
	b.WriteString("- Keep your answer concise and focused\n\n")
	b.WriteString("Answer:")
	return b.String()
}

// fallbackAnswer builds a deterministic answer from the top-ranked result
// when no model is reachable.
func fallbackAnswer(top search.Result) (string, float64) {
	excerpt := top.Content
	truncated := len(excerpt) > fallbackExcerpt
	if truncated {
		excerpt = excerpt[:fallbackExcerpt]
	}
	text := "Based on the available information: " + excerpt + "..."
	if truncated {
		text += " [Content truncated]"
	}
	return text, math.Min(top.Similarity, fallbackConfidenceCap)
}
