package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"

	"github.com/poi-conflation/internal/records"
)

// QuadtreeIndex implements Index with an orb quadtree over projected points.
// Build once per target catalog; reads are lock-free and safe to share
// across workers.
type QuadtreeIndex struct {
	tree    *quadtree.Quadtree
	targets []*Target
}

// NewQuadtreeIndex projects and indexes the given records.
func NewQuadtreeIndex(recs []records.SourceRecord) *QuadtreeIndex {
	idx := &QuadtreeIndex{}
	if len(recs) == 0 {
		return idx
	}

	idx.targets = make([]*Target, len(recs))
	bound := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0, 0}}
	for i := range recs {
		t := &Target{Record: &recs[i], Loc: Project(recs[i].Lon, recs[i].Lat)}
		idx.targets[i] = t
		if i == 0 {
			bound = orb.Bound{Min: t.Loc, Max: t.Loc}
		} else {
			bound = bound.Extend(t.Loc)
		}
	}

	idx.tree = quadtree.New(bound)
	for _, t := range idx.targets {
		// Add only fails for points outside the bound, which cannot happen.
		_ = idx.tree.Add(t)
	}
	return idx
}

// Len reports the number of indexed targets.
func (q *QuadtreeIndex) Len() int { return len(q.targets) }

// Nearest returns the closest target within cutoff meters of p.
func (q *QuadtreeIndex) Nearest(p orb.Point, cutoff float64) (*Target, float64, bool) {
	if q.tree == nil {
		return nil, 0, false
	}
	found := q.tree.Find(p)
	if found == nil {
		return nil, 0, false
	}
	t := found.(*Target)
	d := Distance(p, t.Loc)
	if d > cutoff {
		return nil, 0, false
	}
	return t, d, true
}

// Within returns every target inside the bound.
func (q *QuadtreeIndex) Within(bound orb.Bound) []*Target {
	if q.tree == nil {
		return nil
	}
	ptrs := q.tree.InBound(nil, bound)
	out := make([]*Target, 0, len(ptrs))
	for _, p := range ptrs {
		out = append(out, p.(*Target))
	}
	return out
}
