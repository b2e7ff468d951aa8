package answer

import (
	"context"
	"fmt"
	"math"
	"strings"
)

const (
	topicSearchLimit     = 20
	topicSearchThreshold = 0.5

	aspectSearchLimit     = 5
	aspectSearchThreshold = 0.6

	maxCoveredAspects = 10
	minAspectWordLen  = 4
	minAspectBigram   = 7
)

// aspectChecklists suggest what a well-covered topic of each category
// should touch on. The category is picked by keyword match on the topic.
var aspectChecklists = map[string][]string{
	"api": {
		"authentication", "endpoints", "parameters", "responses",
		"rate limiting", "error codes", "examples",
	},
	"security": {
		"authentication", "authorization", "encryption", "vulnerabilities",
		"best practices", "compliance", "monitoring",
	},
	"default": {
		"definition", "examples", "best practices", "troubleshooting",
		"configuration", "installation", "usage", "limitations",
	},
}

// CoverageReport describes how completely the knowledge base covers a
// topic.
type CoverageReport struct {
	Topic           string   `json:"topic"`
	Score           float64  `json:"completeness_score"`
	CoveredAspects  []string `json:"covered_aspects"`
	MissingAspects  []string `json:"missing_aspects"`
	Recommendations []string `json:"recommendations"`
}

// CheckCompleteness assesses topic coverage. With requiredAspects, each
// aspect is probed with its own search and the score is the covered
// fraction. Without, covered aspects are harvested from the topic's own
// results, missing ones come from a per-category checklist, and the score
// grows with result count.
func (s *Synthesizer) CheckCompleteness(ctx context.Context, topic string, requiredAspects []string) (*CoverageReport, error) {
	results, err := s.searcher.Search(ctx, topic, topicSearchLimit, topicSearchThreshold)
	if err != nil {
		return nil, fmt.Errorf("searching topic: %w", err)
	}

	report := &CoverageReport{
		Topic:          topic,
		CoveredAspects: []string{},
		MissingAspects: []string{},
	}

	if len(requiredAspects) > 0 {
		for _, aspect := range requiredAspects {
			hits, err := s.searcher.Search(ctx, topic+" "+aspect, aspectSearchLimit, aspectSearchThreshold)
			if err != nil {
				return nil, fmt.Errorf("searching aspect %q: %w", aspect, err)
			}
			if len(hits) > 0 {
				report.CoveredAspects = append(report.CoveredAspects, aspect)
			} else {
				report.MissingAspects = append(report.MissingAspects, aspect)
			}
		}
		report.Score = round2(float64(len(report.CoveredAspects)) / float64(len(requiredAspects)))
	} else {
		contents := make([]string, len(results))
		for i, r := range results {
			contents[i] = r.Content
		}
		report.CoveredAspects = extractAspects(contents)
		report.MissingAspects = missingAspects(topic, report.CoveredAspects)
		report.Score = round2(math.Min(float64(len(results))/10, 1))
	}

	report.Recommendations = recommendations(topic, report.MissingAspects, len(results))
	return report, nil
}

// extractAspects harvests candidate aspects from result content: single
// alphabetic words longer than three characters and adjacent-word bigrams
// longer than six, deduplicated in first-seen order, capped at ten.
func extractAspects(contents []string) []string {
	seen := make(map[string]struct{})
	aspects := []string{}
	add := func(a string) bool {
		if _, ok := seen[a]; ok {
			return false
		}
		seen[a] = struct{}{}
		aspects = append(aspects, a)
		return len(aspects) >= maxCoveredAspects
	}

	for _, content := range contents {
		words := strings.Fields(strings.ToLower(content))
		for i, word := range words {
			if len(word) >= minAspectWordLen && isAlpha(word) {
				if add(word) {
					return aspects
				}
			}
			if i+1 < len(words) {
				bigram := word + " " + words[i+1]
				if len(bigram) >= minAspectBigram {
					if add(bigram) {
						return aspects
					}
				}
			}
		}
	}
	return aspects
}

// missingAspects compares the covered aspects against the checklist for
// the topic's category.
func missingAspects(topic string, covered []string) []string {
	lower := strings.ToLower(topic)
	checklist := aspectChecklists["default"]
	switch {
	case strings.Contains(lower, "api"):
		checklist = aspectChecklists["api"]
	case strings.Contains(lower, "security"),
		strings.Contains(lower, "auth"),
		strings.Contains(lower, "encrypt"):
		checklist = aspectChecklists["security"]
	}

	coveredLower := make([]string, len(covered))
	for i, c := range covered {
		coveredLower[i] = strings.ToLower(c)
	}

	missing := []string{}
	for _, aspect := range checklist {
		found := false
		for _, c := range coveredLower {
			if strings.Contains(c, aspect) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, aspect)
		}
	}
	return missing
}

// recommendations builds improvement suggestions from fixed templates.
func recommendations(topic string, missing []string, resultCount int) []string {
	var recs []string
	switch {
	case resultCount == 0:
		recs = append(recs, "Add foundational documentation about "+topic)
	case resultCount < 3:
		recs = append(recs, "Expand documentation coverage for "+topic)
	}
	if len(missing) > 0 {
		top := missing
		if len(top) > 3 {
			top = top[:3]
		}
		recs = append(recs, "Consider adding information about: "+strings.Join(top, ", "))
	}
	if resultCount > 0 {
		recs = append(recs, "Ensure existing documentation is up-to-date and comprehensive")
	}
	recs = append(recs, "Consider adding practical examples and use cases")
	return recs
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return s != ""
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
