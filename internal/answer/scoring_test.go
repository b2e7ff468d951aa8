package answer

import (
	"math"
	"testing"
)

func TestConfidenceEmptySources(t *testing.T) {
	if got := Confidence("anything", nil); got != 0 {
		t.Errorf("Confidence with no sources = %v, want 0", got)
	}
}

func TestConfidenceSourceBonus(t *testing.T) {
	// One source: avg 0.7 + bonus min(1/5, 0.2) = 0.9.
	if got := Confidence("A direct answer.", []float64{0.7}); math.Abs(got-0.9) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.9", got)
	}
	// Ten sources: the bonus caps at 0.2.
	sims := make([]float64, 10)
	for i := range sims {
		sims[i] = 0.5
	}
	if got := Confidence("A direct answer.", sims); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("Confidence = %v, want capped bonus 0.7", got)
	}
}

func TestConfidenceHedgePenalty(t *testing.T) {
	sims := []float64{0.7}
	plain := Confidence("The limit is 100 requests.", sims)
	hedged := Confidence("It is unclear from the context.", sims)
	if math.Abs((plain-hedged)-0.3) > 1e-9 {
		t.Errorf("hedge penalty = %v, want 0.3", plain-hedged)
	}
	// Multiple hedge phrases incur the penalty once.
	double := Confidence("I don't know, there is insufficient data.", sims)
	if math.Abs(double-hedged) > 1e-9 {
		t.Errorf("double hedge = %v, single hedge = %v", double, hedged)
	}
}

func TestConfidenceBounds(t *testing.T) {
	if got := Confidence("ok", []float64{0.99, 0.99, 0.99, 0.99, 0.99}); got > 1 {
		t.Errorf("Confidence = %v, exceeds 1", got)
	}
	if got := Confidence("i don't know", []float64{0.05}); got < 0 {
		t.Errorf("Confidence = %v, below 0", got)
	}
}

func TestCompletenessEmptySources(t *testing.T) {
	if got := Completeness(nil, 0); got != 0 {
		t.Errorf("Completeness with no sources = %v, want 0", got)
	}
}

func TestCompletenessFormula(t *testing.T) {
	// Two sources averaging 0.7 across two documents.
	want := 0.4*(2.0/5) + 0.4*0.7 + 0.2*(2.0/3)
	if got := Completeness([]float64{0.8, 0.6}, 2); math.Abs(got-want) > 1e-9 {
		t.Errorf("Completeness = %v, want %v", got, want)
	}
}

func TestCompletenessSaturation(t *testing.T) {
	// Many perfect sources across many documents saturate every term.
	sims := make([]float64, 20)
	for i := range sims {
		sims[i] = 1
	}
	if got := Completeness(sims, 10); got != 1 {
		t.Errorf("Completeness = %v, want 1", got)
	}
}
