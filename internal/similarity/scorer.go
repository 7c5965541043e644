// Package similarity scores how alike two normalized strings are on the
// 0-100 scale the matching thresholds are tuned against.
package similarity

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// Scorer computes a 0-100 similarity between two strings. Higher is more
// alike. Implementations must be pure and safe for concurrent use.
type Scorer interface {
	Score(a, b string) int
}

// WeightedScorer scores with the weighted-ratio heuristic: a blend of full,
// partial and token-based ratios. This is the matcher's scorer.
type WeightedScorer struct{}

// Score returns the weighted ratio of a and b.
func (WeightedScorer) Score(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return fuzzy.WRatio(a, b)
}

// TokenSetScorer scores with the token-set ratio, insensitive to word order
// and duplicate tokens. Used for ML similarity features and evaluation.
type TokenSetScorer struct{}

// Score returns the token-set ratio of a and b.
func (TokenSetScorer) Score(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return fuzzy.TokenSetRatio(a, b)
}

// Ratio is the plain Levenshtein-based ratio, used by the evaluator's
// near-equality check.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return fuzzy.Ratio(a, b)
}

// BestMatch scores query against every candidate and returns the index and
// score of the best one. Ties go to the first candidate attaining the
// maximum, so the result is stable for a fixed candidate order. Returns
// index -1 when candidates is empty.
func BestMatch(s Scorer, query string, candidates []string) (int, int) {
	bestIdx, bestScore := -1, -1
	for i, c := range candidates {
		if score := s.Score(query, c); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 {
		return -1, 0
	}
	return bestIdx, bestScore
}
