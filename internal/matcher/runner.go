package matcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/poi-conflation/internal/debug"
	"github.com/poi-conflation/internal/records"
)

// DefaultChunkSize bounds per-chunk memory and the unit of resumable work.
const DefaultChunkSize = 5000

// Runner processes a large anchor set in fixed-size chunks, persisting each
// chunk's matched table before moving on. A crash after chunk k loses no
// work prior to chunk k; reruns skip chunks whose output already exists.
type Runner struct {
	Matcher   *Matcher
	ChunkSize int
	// Workers processes independent chunks concurrently. The index is
	// read-only and every chunk writes a uniquely named file, so no state
	// is shared between workers.
	Workers int
	OutDir  string
	// Prefix names chunk files, e.g. "yelp_omf_chunk" -> yelp_omf_chunk_1.csv.
	Prefix string
	// Debug turns on per-stage timing output.
	Debug bool
}

// NewRunner creates a sequential runner with the default chunk size.
func NewRunner(m *Matcher, outDir, prefix string) *Runner {
	return &Runner{Matcher: m, ChunkSize: DefaultChunkSize, Workers: 1, OutDir: outDir, Prefix: prefix}
}

// chunkPath names chunk n (1-based).
func (r *Runner) chunkPath(n int) string {
	return filepath.Join(r.OutDir, fmt.Sprintf("%s_%d.csv", r.Prefix, n))
}

// Run matches every anchor, chunk by chunk, and returns the concatenated
// matched table in anchor order.
func (r *Runner) Run(ctx context.Context, anchors []records.SourceRecord) ([]MatchedRow, error) {
	if r.ChunkSize <= 0 {
		r.ChunkSize = DefaultChunkSize
	}
	if r.Workers <= 0 {
		r.Workers = 1
	}
	if err := os.MkdirAll(r.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	defer debug.Timing(r.Debug, fmt.Sprintf("match %d anchors against %s", len(anchors), r.Matcher.Target))()

	nChunks := (len(anchors) + r.ChunkSize - 1) / r.ChunkSize

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)

	for i := 0; i < nChunks; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return r.runChunk(i, nChunks, anchors)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Concatenate chunk files in order.
	var all []MatchedRow
	for i := 0; i < nChunks; i++ {
		rows, err := ReadTable(r.chunkPath(i+1), r.Matcher.Target)
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk %d: %w", i+1, err)
		}
		all = append(all, rows...)
	}
	return all, nil
}

func (r *Runner) runChunk(i, nChunks int, anchors []records.SourceRecord) error {
	path := r.chunkPath(i + 1)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Chunk %d/%d already done, skipping (%s)\n", i+1, nChunks, path)
		return nil
	}

	start := i * r.ChunkSize
	end := start + r.ChunkSize
	if end > len(anchors) {
		end = len(anchors)
	}
	chunk := anchors[start:end]

	t0 := time.Now()
	rows := make([]MatchedRow, len(chunk))
	for j := range chunk {
		rows[j] = MatchedRow{Anchor: chunk[j], Result: r.Matcher.MatchOne(&chunk[j])}
		debug.Progress("matching", start+j+1, len(anchors), 1000)
	}

	if err := WriteTable(path, rows); err != nil {
		return fmt.Errorf("failed to save chunk %d: %w", i+1, err)
	}
	fmt.Printf("Chunk %d/%d: rows %d..%d matched against %s in %.1fs\n",
		i+1, nChunks, start, end-1, r.Matcher.Target, time.Since(t0).Seconds())
	return nil
}

// MatchStats summarizes a matched table.
type MatchStats struct {
	Total   int
	Matched int
	Scores  []int
}

// Summarize computes match statistics over a table.
func Summarize(rows []MatchedRow) MatchStats {
	stats := MatchStats{Total: len(rows)}
	for _, row := range rows {
		if row.Result.Matched {
			stats.Matched++
			stats.Scores = append(stats.Scores, row.Result.Score)
		}
	}
	sort.Ints(stats.Scores)
	return stats
}

// String renders the stats as a one-line summary.
func (s MatchStats) String() string {
	rate := 0.0
	if s.Total > 0 {
		rate = float64(s.Matched) / float64(s.Total) * 100
	}
	return fmt.Sprintf("total=%d matched=%d (%.1f%%)", s.Total, s.Matched, rate)
}
