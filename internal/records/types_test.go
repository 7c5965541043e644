package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityOrderSortsByRank(t *testing.T) {
	p := NewPriority([]Source{SourceOverpass, SourceYelp, SourceOMF})
	assert.Equal(t, []Source{SourceOverpass, SourceYelp, SourceOMF}, p.Order())
}

func TestPriorityOrderWithDuplicateEntries(t *testing.T) {
	// A duplicated source keeps its last rank, leaving a gap in the rank
	// sequence. Order must still return only real sources.
	p := NewPriority([]Source{SourceYelp, SourceYelp, SourceOMF})

	order := p.Order()
	assert.Equal(t, []Source{SourceYelp, SourceOMF}, order)
	for _, s := range order {
		assert.NotEmpty(t, s)
	}
}

func TestRankUnknownSourceRanksLast(t *testing.T) {
	p := DefaultPriority()
	assert.Greater(t, p.Rank(Source("foursquare")), p.Rank(SourceOverpass))
}

func TestKnownSource(t *testing.T) {
	assert.True(t, KnownSource(SourceYelp))
	assert.True(t, KnownSource(SourceOverpass))
	assert.False(t, KnownSource(Source("foursquare")))
	assert.False(t, KnownSource(Source("")))
}
