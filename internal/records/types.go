package records

import "sort"

// Source identifies one of the three catalogs feeding the pipeline.
type Source string

// Catalog sources. Yelp is the anchor catalog; OMF and Overpass are the
// map catalogs matched against it.
const (
	SourceYelp     Source = "yelp"
	SourceOMF      Source = "omf"
	SourceOverpass Source = "overpass"
)

// AllSources lists the sources in default priority order (lower index =
// higher priority).
var AllSources = []Source{SourceYelp, SourceOMF, SourceOverpass}

// KnownSource reports whether s is one of the three catalog sources.
func KnownSource(s Source) bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// Attribute names a conflatable business attribute.
type Attribute string

// Conflatable attributes.
const (
	AttrName     Attribute = "name"
	AttrAddress  Attribute = "address"
	AttrPhone    Attribute = "phone"
	AttrWebsite  Attribute = "website"
	AttrCategory Attribute = "categories"
)

// AllAttributes lists every attribute the conflators handle.
var AllAttributes = []Attribute{AttrName, AttrAddress, AttrPhone, AttrWebsite, AttrCategory}

// SourceRecord is one normalized business record from a single catalog.
// Records are immutable once produced by the normalizer.
type SourceRecord struct {
	ID         string
	Source     Source
	Name       string
	Address    string
	Categories []string
	Phone      string // digits only, last-10 suffix, may be empty
	Website    string
	Lat        float64
	Lon        float64
}

// MatchResult is the outcome of matching one anchor record against one
// target catalog. A nil-equivalent CandidateID (empty string) means no
// candidate survived the distance and score thresholds.
type MatchResult struct {
	AnchorID          string
	Target            Source
	CandidateID       string
	CandidateName     string
	CandidateCategory string
	Score             int     // 0-100 fuzzy score, valid only when Matched
	DistanceM         float64 // nearest-neighbour distance from the anchor
	HasDistance       bool
	Matched           bool
}

// SourceLeg carries the per-target-catalog columns of a triplet row.
type SourceLeg struct {
	ID       string
	Name     string
	Category string
	Score    int
	Distance float64
	Present  bool
}

// TripletRow is one anchor joined with its OMF and Overpass matches.
// Exactly one row exists per anchor; either leg may be absent.
type TripletRow struct {
	PlaceID    string
	BusinessID string
	Name       string
	Address    string
	Category   string
	Lat        float64
	Lon        float64
	OMF        SourceLeg
	Overpass   SourceLeg
}

// AttributeCandidate is one (place, attribute, source) observation with a
// non-empty value. Derived from a triplet row, recomputed per conflation run.
type AttributeCandidate struct {
	PlaceID   string
	Attribute Attribute
	Value     string
	Source    Source
}

// ConflatedPlace is the terminal output row for one place.
type ConflatedPlace struct {
	PlaceID      string
	BestSource   Source
	BestName     string
	BestAddress  string
	BestPhone    string
	BestWebsite  string
	BestCategory string
	// Winning source per attribute, empty when no source had data.
	AttrSource map[Attribute]Source
	LatMedian  float64
	LonMedian  float64
}

// GroundTruth is one trusted row used for ML labeling and evaluation.
type GroundTruth struct {
	PlaceID  string
	Name     string
	Address  string
	Phone    string
	Website  string
	Category string
}

// Priority maps sources to their rank. Lower rank wins ties.
type Priority struct {
	rank map[Source]int
}

// NewPriority builds a ranking from an ordered source list; unlisted sources
// rank last.
func NewPriority(order []Source) *Priority {
	rank := make(map[Source]int, len(order))
	for i, s := range order {
		rank[s] = i
	}
	return &Priority{rank: rank}
}

// DefaultPriority returns the standard yelp > omf > overpass ranking.
func DefaultPriority() *Priority {
	return NewPriority(AllSources)
}

// Rank returns the priority rank of a source (lower is better).
func (p *Priority) Rank(s Source) int {
	if r, ok := p.rank[s]; ok {
		return r
	}
	return len(p.rank) + 1
}

// Order returns the known sources sorted by rank. Rank gaps (from a
// duplicated order list) do not leave empty entries.
func (p *Priority) Order() []Source {
	out := make([]Source, 0, len(p.rank))
	for s := range p.rank {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return p.rank[out[i]] < p.rank[out[j]] })
	return out
}

// Leg returns the triplet's leg for a target catalog. Unknown sources and
// the anchor source report an absent leg.
func (t *TripletRow) Leg(s Source) SourceLeg {
	switch s {
	case SourceOMF:
		return t.OMF
	case SourceOverpass:
		return t.Overpass
	}
	return SourceLeg{}
}
