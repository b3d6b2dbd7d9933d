package sectionizer

import (
	"strings"
)

// Two-tier weighted keyword scan for section importance.  Critical concepts
// carry weights 4–10 with an occurrence cap of 3; moderate concepts carry
// weights 2–5 with a cap of 2.
var criticalConcepts = map[string]int{
	"liability":             10,
	"indemnif":              9,
	"termination":           8,
	"terminate":             8,
	"breach":                7,
	"intellectual property": 6,
	"governing law":         5,
	"dispute":               4,
}

var moderateConcepts = map[string]int{
	"performance": 5,
	"warranty":    4,
	"compliance":  3,
	"insurance":   2,
}

const (
	criticalCap = 3
	moderateCap = 2

	// importanceNorm scales the maximum possible weighted score; the raw
	// total is normalized against maxScore * importanceNorm.  Empirically
	// tuned; do not change without re-validating classification output.
	importanceNorm = 0.3

	// lengthBoostDivisor controls the small length adjustment: longer
	// sections get a boost up to 2x.
	lengthBoostDivisor = 5000.0
)

// importanceScore computes a section's importance in [0, 1] from a weighted
// keyword scan over its text.
func importanceScore(text string) float64 {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return 0
	}

	total := 0.0
	for kw, weight := range criticalConcepts {
		if n := strings.Count(lower, kw); n > 0 {
			total += float64(weight * min(n, criticalCap))
		}
	}
	for kw, weight := range moderateConcepts {
		if n := strings.Count(lower, kw); n > 0 {
			total += float64(weight * min(n, moderateCap))
		}
	}

	// Length adjustment: small boost for longer sections, capped at 2x.
	boost := 1.0 + float64(len(lower))/lengthBoostDivisor
	if boost > 2.0 {
		boost = 2.0
	}
	total *= boost

	maxScore := 0.0
	for _, w := range criticalConcepts {
		maxScore += float64(w * criticalCap)
	}
	for _, w := range moderateConcepts {
		maxScore += float64(w * moderateCap)
	}

	score := total / (maxScore * importanceNorm)
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
