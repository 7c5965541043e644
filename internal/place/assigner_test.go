package place

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/matcher"
	"github.com/poi-conflation/internal/records"
)

func anchorRow(id string, result records.MatchResult) matcher.MatchedRow {
	result.AnchorID = id
	return matcher.MatchedRow{
		Anchor: records.SourceRecord{ID: id, Source: records.SourceYelp, Name: "place " + id},
		Result: result,
	}
}

func TestAssignPlaceIDPreference(t *testing.T) {
	assert.Equal(t, "P_omf1", AssignPlaceID("b1", "omf1", "op1"))
	assert.Equal(t, "P_op1", AssignPlaceID("b1", "", "op1"))
	assert.Equal(t, "P_b1", AssignPlaceID("b1", "", ""))
}

func TestBuildTripletsPreservesEveryAnchor(t *testing.T) {
	omf := []matcher.MatchedRow{
		anchorRow("a1", records.MatchResult{Matched: true, CandidateID: "omf1", CandidateName: "one", Score: 90, DistanceM: 12, HasDistance: true}),
		anchorRow("a2", records.MatchResult{}),
		anchorRow("a3", records.MatchResult{Matched: true, CandidateID: "omf3", Score: 85}),
	}
	overpass := []matcher.MatchedRow{
		anchorRow("a1", records.MatchResult{Matched: true, CandidateID: "op1", Score: 88}),
		anchorRow("a2", records.MatchResult{Matched: true, CandidateID: "op2", Score: 81}),
		// a4 only appears in the overpass table.
		anchorRow("a4", records.MatchResult{Matched: true, CandidateID: "op4", Score: 95}),
	}

	triplets, err := BuildTriplets(omf, overpass)
	require.NoError(t, err)
	require.Len(t, triplets, 4, "outer join keeps every distinct anchor")

	byBusiness := make(map[string]records.TripletRow)
	for _, tr := range triplets {
		byBusiness[tr.BusinessID] = tr
	}

	// Both legs matched: the omf id wins the place id.
	a1 := byBusiness["a1"]
	assert.Equal(t, "P_omf1", a1.PlaceID)
	assert.True(t, a1.OMF.Present)
	assert.True(t, a1.Overpass.Present)
	assert.Equal(t, 90, a1.OMF.Score)
	assert.Equal(t, 12.0, a1.OMF.Distance)

	// Only overpass matched.
	a2 := byBusiness["a2"]
	assert.Equal(t, "P_op2", a2.PlaceID)
	assert.False(t, a2.OMF.Present)

	// Only omf matched.
	assert.Equal(t, "P_omf3", byBusiness["a3"].PlaceID)

	// Anchor absent from the omf table still yields a row.
	a4 := byBusiness["a4"]
	assert.Equal(t, "P_op4", a4.PlaceID)
	assert.True(t, a4.Overpass.Present)
}

func TestBuildTripletsNoMatchFallsBackToBusinessID(t *testing.T) {
	triplets, err := BuildTriplets([]matcher.MatchedRow{anchorRow("a9", records.MatchResult{})}, nil)
	require.NoError(t, err)
	require.Len(t, triplets, 1)
	assert.Equal(t, "P_a9", triplets[0].PlaceID)
}

func TestBuildTripletsRejectsDuplicateAnchors(t *testing.T) {
	dup := []matcher.MatchedRow{
		anchorRow("a1", records.MatchResult{}),
		anchorRow("a1", records.MatchResult{}),
	}
	_, err := BuildTriplets(dup, nil)
	assert.Error(t, err)

	_, err = BuildTriplets(nil, dup)
	assert.Error(t, err)
}

func TestDeriveGroundTruthDeduplicatesByPlace(t *testing.T) {
	triplets := []records.TripletRow{
		{PlaceID: "P_1", BusinessID: "a1", Name: "first", Address: "1 main st"},
		{PlaceID: "P_1", BusinessID: "a2", Name: "second", Address: "duplicate"},
		{PlaceID: "P_2", BusinessID: "a3", Name: "other", Category: "pizza"},
	}

	truth := DeriveGroundTruth(triplets)
	require.Len(t, truth, 2)
	assert.Equal(t, "P_1", truth[0].PlaceID)
	assert.Equal(t, "first", truth[0].Name, "first row per place wins")
	assert.Equal(t, "P_2", truth[1].PlaceID)
	assert.Equal(t, "pizza", truth[1].Category)
}
