package place

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/records"
)

func TestTripletTableRoundtrip(t *testing.T) {
	triplets := []records.TripletRow{
		{
			PlaceID: "P_omf1", BusinessID: "a1",
			Name: "joe's pizza", Address: "123 main st", Category: "pizza, italian",
			Lat: 36.1, Lon: -115.1,
			OMF:      records.SourceLeg{ID: "omf1", Name: "joes pizza", Category: "pizza", Score: 92, Distance: 12.34, Present: true},
			Overpass: records.SourceLeg{ID: "op1", Name: "joe pizza", Score: 85, Present: true},
		},
		{
			// No match on either leg.
			PlaceID: "P_a2", BusinessID: "a2", Name: "lone cafe", Lat: 36.2, Lon: -115.2,
		},
	}

	path := filepath.Join(t.TempDir(), "triplets.csv")
	require.NoError(t, WriteTriplets(path, triplets))

	got, err := ReadTriplets(path)
	require.NoError(t, err)
	assert.Equal(t, triplets, got)
}

func TestGroundTruthTableRoundtrip(t *testing.T) {
	truth := []records.GroundTruth{
		{PlaceID: "P_1", Name: "joe's pizza", Address: "123 main st", Category: "pizza"},
		{PlaceID: "P_2", Name: "lone cafe"},
	}

	path := filepath.Join(t.TempDir(), "truth.csv")
	require.NoError(t, WriteGroundTruth(path, truth))

	got, err := ReadGroundTruth(path)
	require.NoError(t, err)
	assert.Equal(t, truth, got)
}
