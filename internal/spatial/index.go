// Package spatial provides planar candidate lookup over geo-located records.
//
// All coordinates are projected once into Web-Mercator, where Euclidean
// distance approximates meters. Every distance the pipeline reports is a
// distance in this projected plane; no further reprojection correctness is
// attempted.
package spatial

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"github.com/poi-conflation/internal/records"
)

// Target is one indexed record with its projected location.
type Target struct {
	Record *records.SourceRecord
	Loc    orb.Point // projected (planar meters)
}

// Point implements orb.Pointer.
func (t *Target) Point() orb.Point { return t.Loc }

// Index answers candidate queries for one target catalog. Implementations
// must be safe for concurrent readers once built.
type Index interface {
	// Nearest returns the closest target within cutoff meters of p, with its
	// distance. ok is false when nothing lies within the cutoff.
	Nearest(p orb.Point, cutoff float64) (t *Target, dist float64, ok bool)

	// Within returns every target whose projected point intersects the
	// axis-aligned bound. The result over-approximates a circular
	// neighbourhood; callers re-filter by exact distance.
	Within(bound orb.Bound) []*Target

	// Len reports the number of indexed targets.
	Len() int
}

// Project converts a lon/lat coordinate into the planar space used by the
// index.
func Project(lon, lat float64) orb.Point {
	return project.Point(orb.Point{lon, lat}, project.WGS84.ToMercator)
}

// Distance is the planar Euclidean distance between two projected points.
func Distance(a, b orb.Point) float64 {
	return planar.Distance(a, b)
}

// BoxAround returns the axis-aligned bound [p-d, p+d] in projected meters.
func BoxAround(p orb.Point, d float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{p[0] - d, p[1] - d},
		Max: orb.Point{p[0] + d, p[1] + d},
	}
}
