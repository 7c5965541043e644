// Package matcher pairs anchor records against one target catalog using
// spatial candidate pruning and fuzzy name scoring.
package matcher

import (
	"strings"

	"github.com/poi-conflation/internal/records"
	"github.com/poi-conflation/internal/similarity"
	"github.com/poi-conflation/internal/spatial"
)

// Matching defaults, tuned on the Yelp/OMF/Overpass corpus.
const (
	DefaultMaxDistanceMeters   = 1000
	DefaultFuzzyScoreThreshold = 80
)

// Matcher matches anchors against one target catalog's index.
type Matcher struct {
	Target            records.Source
	Index             spatial.Index
	Scorer            similarity.Scorer
	MaxDistanceMeters float64
	ScoreThreshold    int
}

// New creates a matcher with the default thresholds.
func New(target records.Source, index spatial.Index) *Matcher {
	return &Matcher{
		Target:            target,
		Index:             index,
		Scorer:            similarity.WeightedScorer{},
		MaxDistanceMeters: DefaultMaxDistanceMeters,
		ScoreThreshold:    DefaultFuzzyScoreThreshold,
	}
}

// MatchOne matches a single anchor. Absence of a match is a valid result,
// never an error.
//
// The recorded distance is always the nearest-neighbour distance from step
// one, even when the name-matched candidate is a different record. Output
// compatibility with the source system depends on this.
func (m *Matcher) MatchOne(anchor *records.SourceRecord) records.MatchResult {
	result := records.MatchResult{AnchorID: anchor.ID, Target: m.Target}

	p := spatial.Project(anchor.Lon, anchor.Lat)

	_, nearestDist, ok := m.Index.Nearest(p, m.MaxDistanceMeters)
	if !ok {
		return result
	}
	result.DistanceM = nearestDist
	result.HasDistance = true

	if strings.TrimSpace(anchor.Name) == "" {
		return result
	}

	// Box query over-approximates the circular neighbourhood; re-filter by
	// exact distance so no candidate beyond the cutoff reaches scoring.
	box := spatial.BoxAround(p, m.MaxDistanceMeters)
	candidates := m.Index.Within(box)
	filtered := candidates[:0]
	for _, c := range candidates {
		if spatial.Distance(p, c.Loc) <= m.MaxDistanceMeters {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return result
	}

	names := make([]string, len(filtered))
	for i, c := range filtered {
		names[i] = c.Record.Name
	}

	bestIdx, score := similarity.BestMatch(m.Scorer, anchor.Name, names)
	if bestIdx < 0 || score < m.ScoreThreshold {
		return result
	}

	best := filtered[bestIdx].Record
	result.Matched = true
	result.CandidateID = best.ID
	result.CandidateName = best.Name
	result.CandidateCategory = strings.Join(best.Categories, ", ")
	result.Score = score
	return result
}
