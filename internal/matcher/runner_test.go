package matcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/records"
)

func testAnchors(n int) []records.SourceRecord {
	anchors := make([]records.SourceRecord, n)
	for i := range anchors {
		anchors[i] = records.SourceRecord{
			ID:     fmt.Sprintf("a%d", i),
			Source: records.SourceYelp,
			Name:   "joe's pizza",
			Lat:    0.0001 * float64(i),
			Lon:    0.0,
		}
	}
	return anchors
}

func TestRunnerChunksAndConcatenatesInOrder(t *testing.T) {
	targets := []records.SourceRecord{
		{ID: "t1", Source: records.SourceOMF, Name: "joes pizza", Lat: 0.0, Lon: 0.0},
	}
	r := NewRunner(newTestMatcher(targets), t.TempDir(), "chunk")
	r.ChunkSize = 2

	anchors := testAnchors(5)
	rows, err := r.Run(context.Background(), anchors)
	require.NoError(t, err)
	require.Len(t, rows, 5, "every anchor produces exactly one output row")

	for i, row := range rows {
		assert.Equal(t, anchors[i].ID, row.Anchor.ID, "concatenation preserves anchor order")
	}
}

func TestRunnerResumeSkipsExistingChunks(t *testing.T) {
	targets := []records.SourceRecord{
		{ID: "t1", Source: records.SourceOMF, Name: "joes pizza", Lat: 0.0, Lon: 0.0},
	}
	dir := t.TempDir()
	r := NewRunner(newTestMatcher(targets), dir, "chunk")
	r.ChunkSize = 2

	// Pre-populate the first chunk with sentinel rows, as a prior
	// interrupted run would have.
	sentinel := []MatchedRow{
		{Anchor: records.SourceRecord{ID: "pre0", Source: records.SourceYelp, Name: "precomputed"}},
		{Anchor: records.SourceRecord{ID: "pre1", Source: records.SourceYelp, Name: "precomputed"}},
	}
	require.NoError(t, WriteTable(r.chunkPath(1), sentinel))

	rows, err := r.Run(context.Background(), testAnchors(4))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "pre0", rows[0].Anchor.ID, "existing chunk files are reused, not recomputed")
	assert.Equal(t, "pre1", rows[1].Anchor.ID)
	assert.Equal(t, "a2", rows[2].Anchor.ID)
	assert.Equal(t, "a3", rows[3].Anchor.ID)
}

func TestRunnerParallelWorkersMatchSequentialOutput(t *testing.T) {
	targets := []records.SourceRecord{
		{ID: "t1", Source: records.SourceOMF, Name: "joes pizza", Lat: 0.0, Lon: 0.0},
	}
	anchors := testAnchors(10)

	seq := NewRunner(newTestMatcher(targets), t.TempDir(), "chunk")
	seq.ChunkSize = 3
	seqRows, err := seq.Run(context.Background(), anchors)
	require.NoError(t, err)

	par := NewRunner(newTestMatcher(targets), t.TempDir(), "chunk")
	par.ChunkSize = 3
	par.Workers = 4
	parRows, err := par.Run(context.Background(), anchors)
	require.NoError(t, err)

	assert.Equal(t, seqRows, parRows)
}

func TestSummarize(t *testing.T) {
	rows := []MatchedRow{
		{Result: records.MatchResult{Matched: true, Score: 92}},
		{Result: records.MatchResult{Matched: false}},
		{Result: records.MatchResult{Matched: true, Score: 85}},
	}
	stats := Summarize(rows)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, []int{85, 92}, stats.Scores)
	assert.Equal(t, "total=3 matched=2 (66.7%)", stats.String())
}
