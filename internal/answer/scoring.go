package answer

import (
	"math"
	"strings"
)

// hedgePhrases mark answers that admit uncertainty. Their presence lowers
// the confidence score.
var hedgePhrases = []string{
	"i don't know",
	"unclear",
	"not enough information",
	"cannot determine",
	"insufficient data",
}

const (
	sourceCountBonusCap = 0.2
	hedgePenalty        = 0.3
)

// Confidence scores a generated answer in [0, 1] from the similarities of
// its sources: the average similarity, a bonus for source count capped at
// 0.2, and a 0.3 penalty when the answer hedges. Empty sources score 0.
func Confidence(text string, similarities []float64) float64 {
	if len(similarities) == 0 {
		return 0
	}
	score := average(similarities) + math.Min(float64(len(similarities))/5, sourceCountBonusCap)

	lower := strings.ToLower(text)
	for _, phrase := range hedgePhrases {
		if strings.Contains(lower, phrase) {
			score -= hedgePenalty
			break
		}
	}
	return clamp01(score)
}

// Completeness estimates in [0, 1] how well the sources cover a question:
// 40% source count (saturating at five), 40% average similarity, 20%
// document diversity (saturating at three distinct documents). Empty
// sources score 0.
func Completeness(similarities []float64, uniqueDocuments int) float64 {
	if len(similarities) == 0 {
		return 0
	}
	countScore := math.Min(float64(len(similarities))/5, 1)
	diversityScore := math.Min(float64(uniqueDocuments)/3, 1)
	return clamp01(0.4*countScore + 0.4*average(similarities) + 0.2*diversityScore)
}

func average(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(x, 1))
}
