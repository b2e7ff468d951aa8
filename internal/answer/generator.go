package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Generator produces free text from a prompt. Implementations must honor
// context cancellation so a stalled model call cannot hang a request.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generation parameters for answer synthesis. Low temperature keeps the
// model close to the supplied context.
const (
	generateTemperature = 0.3
	generateTopP        = 0.9
	generateMaxTokens   = 500
)

// GenkitGenerator runs prompts through a Genkit model. Every call carries
// a hard timeout; a slow upstream becomes an error, not a hang.
type GenkitGenerator struct {
	g       *genkit.Genkit
	model   string
	timeout time.Duration
}

// NewGenkitGenerator creates a generator for the given fully qualified
// model name (for example "googleai/gemini-2.5-flash").
func NewGenkitGenerator(g *genkit.Genkit, model string, timeout time.Duration) *GenkitGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GenkitGenerator{g: g, model: model, timeout: timeout}
}

func (gg *GenkitGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gg.timeout)
	defer cancel()

	resp, err := genkit.Generate(ctx, gg.g,
		ai.WithModelName(gg.model),
		ai.WithPrompt(prompt),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     generateTemperature,
			TopP:            generateTopP,
			MaxOutputTokens: generateMaxTokens,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
