// Package place merges per-catalog match outputs into canonical places.
package place

import (
	"fmt"

	"github.com/poi-conflation/internal/matcher"
	"github.com/poi-conflation/internal/records"
)

// PlaceIDPrefix marks canonical place identifiers.
const PlaceIDPrefix = "P_"

// AssignPlaceID picks the canonical identifier for an anchor's triplet,
// preferring map-catalog identifiers when present.
func AssignPlaceID(businessID, omfID, overpassID string) string {
	switch {
	case omfID != "":
		return PlaceIDPrefix + omfID
	case overpassID != "":
		return PlaceIDPrefix + overpassID
	default:
		return PlaceIDPrefix + businessID
	}
}

// BuildTriplets outer-joins the OMF and Overpass matched tables on anchor id
// and assigns each anchor its place id. Every anchor present in either table
// yields exactly one row; no anchor is dropped. A physical place whose two
// target matches disagree may receive two distinct place ids; that is a
// known limitation of this stage, not corrected here.
func BuildTriplets(omfRows, overpassRows []matcher.MatchedRow) ([]records.TripletRow, error) {
	overpassByAnchor := make(map[string]matcher.MatchedRow, len(overpassRows))
	for _, row := range overpassRows {
		if _, dup := overpassByAnchor[row.Anchor.ID]; dup {
			return nil, fmt.Errorf("duplicate anchor %s in overpass matched table", row.Anchor.ID)
		}
		overpassByAnchor[row.Anchor.ID] = row
	}

	seen := make(map[string]bool, len(omfRows))
	triplets := make([]records.TripletRow, 0, len(omfRows))

	for _, omfRow := range omfRows {
		if seen[omfRow.Anchor.ID] {
			return nil, fmt.Errorf("duplicate anchor %s in omf matched table", omfRow.Anchor.ID)
		}
		seen[omfRow.Anchor.ID] = true

		t := tripletFromAnchor(omfRow.Anchor)
		t.OMF = legFromResult(omfRow.Result)
		if opRow, ok := overpassByAnchor[omfRow.Anchor.ID]; ok {
			t.Overpass = legFromResult(opRow.Result)
		}
		t.PlaceID = AssignPlaceID(t.BusinessID, t.OMF.ID, t.Overpass.ID)
		triplets = append(triplets, t)
	}

	// Outer join: anchors only present in the overpass table are retained.
	for _, opRow := range overpassRows {
		if seen[opRow.Anchor.ID] {
			continue
		}
		t := tripletFromAnchor(opRow.Anchor)
		t.Overpass = legFromResult(opRow.Result)
		t.PlaceID = AssignPlaceID(t.BusinessID, "", t.Overpass.ID)
		triplets = append(triplets, t)
	}

	return triplets, nil
}

func tripletFromAnchor(a records.SourceRecord) records.TripletRow {
	category := ""
	if len(a.Categories) > 0 {
		category = a.Categories[0]
		for _, c := range a.Categories[1:] {
			category += ", " + c
		}
	}
	return records.TripletRow{
		BusinessID: a.ID,
		Name:       a.Name,
		Address:    a.Address,
		Category:   category,
		Lat:        a.Lat,
		Lon:        a.Lon,
	}
}

func legFromResult(m records.MatchResult) records.SourceLeg {
	if !m.Matched {
		return records.SourceLeg{}
	}
	leg := records.SourceLeg{
		ID:       m.CandidateID,
		Name:     m.CandidateName,
		Category: m.CandidateCategory,
		Score:    m.Score,
		Present:  true,
	}
	if m.HasDistance {
		leg.Distance = m.DistanceM
	}
	return leg
}

// DeriveGroundTruth deduplicates the triplet table into the trusted
// {place_id, name, address} rows used for ML labeling and evaluation. The
// triplet stage's row preservation guarantees full place coverage here.
func DeriveGroundTruth(triplets []records.TripletRow) []records.GroundTruth {
	seen := make(map[string]bool, len(triplets))
	out := make([]records.GroundTruth, 0, len(triplets))
	for _, t := range triplets {
		if seen[t.PlaceID] {
			continue
		}
		seen[t.PlaceID] = true
		out = append(out, records.GroundTruth{
			PlaceID:  t.PlaceID,
			Name:     t.Name,
			Address:  t.Address,
			Category: t.Category,
		})
	}
	return out
}
