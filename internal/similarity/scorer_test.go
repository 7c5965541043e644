package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightedScorer(t *testing.T) {
	s := WeightedScorer{}
	assert.Equal(t, 100, s.Score("joe's pizza", "joe's pizza"))
	assert.GreaterOrEqual(t, s.Score("joe's pizza", "joes pizza"), 80)
	assert.Less(t, s.Score("joe's pizza", "quiet library"), 50)
	assert.Equal(t, 0, s.Score("", "anything"))
	assert.Equal(t, 0, s.Score("anything", ""))
}

func TestTokenSetScorerIgnoresWordOrder(t *testing.T) {
	s := TokenSetScorer{}
	assert.Equal(t, 100, s.Score("pizza joe's", "joe's pizza"))
	assert.Equal(t, 0, s.Score("", ""))
}

func TestBestMatchPicksHighest(t *testing.T) {
	idx, score := BestMatch(WeightedScorer{}, "joe's pizza", []string{
		"quiet library", "joes pizza", "gas station",
	})
	assert.Equal(t, 1, idx)
	assert.GreaterOrEqual(t, score, 80)
}

func TestBestMatchTieGoesToFirst(t *testing.T) {
	// Identical candidates attain the same score; the first wins.
	idx, score := BestMatch(WeightedScorer{}, "joe's pizza", []string{
		"joe's pizza", "joe's pizza",
	})
	assert.Equal(t, 0, idx)
	assert.Equal(t, 100, score)
}

func TestBestMatchEmptyCandidates(t *testing.T) {
	idx, score := BestMatch(WeightedScorer{}, "anything", nil)
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0, score)
}
