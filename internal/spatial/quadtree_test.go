package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/records"
)

func testRecords() []records.SourceRecord {
	return []records.SourceRecord{
		{ID: "near", Source: records.SourceOMF, Name: "near", Lat: 36.1000, Lon: -115.1000},
		{ID: "mid", Source: records.SourceOMF, Name: "mid", Lat: 36.1000, Lon: -115.1050},
		{ID: "far", Source: records.SourceOMF, Name: "far", Lat: 36.5000, Lon: -115.9000},
	}
}

func TestNearestReturnsClosestWithinCutoff(t *testing.T) {
	idx := NewQuadtreeIndex(testRecords())
	require.Equal(t, 3, idx.Len())

	p := Project(-115.1001, 36.1000)
	target, dist, ok := idx.Nearest(p, 1000)
	require.True(t, ok)
	assert.Equal(t, "near", target.Record.ID)
	assert.Greater(t, dist, 0.0)
	assert.Less(t, dist, 1000.0)
}

func TestNearestRespectsCutoff(t *testing.T) {
	idx := NewQuadtreeIndex([]records.SourceRecord{
		{ID: "far", Source: records.SourceOMF, Name: "far", Lat: 36.5000, Lon: -115.9000},
	})

	p := Project(-115.1000, 36.1000)
	_, _, ok := idx.Nearest(p, 1000)
	assert.False(t, ok, "the only target is dozens of kilometers away")
}

func TestWithinReturnsBoxCandidates(t *testing.T) {
	idx := NewQuadtreeIndex(testRecords())

	p := Project(-115.1000, 36.1000)
	candidates := idx.Within(BoxAround(p, 1000))

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.Record.ID)
	}
	assert.Contains(t, ids, "near")
	assert.Contains(t, ids, "mid")
	assert.NotContains(t, ids, "far")
}

func TestEmptyIndex(t *testing.T) {
	idx := NewQuadtreeIndex(nil)
	assert.Equal(t, 0, idx.Len())

	p := Project(-115.1, 36.1)
	_, _, ok := idx.Nearest(p, 1000)
	assert.False(t, ok)
	assert.Empty(t, idx.Within(BoxAround(p, 1000)))
}

func TestDistanceSymmetry(t *testing.T) {
	a := Project(-115.1000, 36.1000)
	b := Project(-115.1050, 36.1000)
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
	assert.Greater(t, Distance(a, b), 0.0)
}
