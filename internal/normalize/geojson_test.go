package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/records"
)

const testFeatureCollection = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [-115.1, 36.1]},
			"properties": {"id": "omf_1", "name": "Joe's Pizza", "category": "Pizza", "phone": "555-123-4567"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "LineString", "coordinates": [[-115.1, 36.1], [-115.2, 36.2]]},
			"properties": {"id": "omf_2", "name": "A Road"}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [-115.3, 36.3]},
			"properties": {"name": "No Explicit Id"}
		}
	]
}`

func TestReadGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omf.geojson")
	require.NoError(t, os.WriteFile(path, []byte(testFeatureCollection), 0o644))

	recs, stats, err := ReadGeoJSON(path, records.SourceOMF)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, 3, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsKept)
	assert.Equal(t, 1, stats.DroppedGeometry)

	assert.Equal(t, "omf_1", recs[0].ID)
	assert.Equal(t, records.SourceOMF, recs[0].Source)
	assert.Equal(t, "joe's pizza", recs[0].Name)
	assert.Equal(t, []string{"pizza"}, recs[0].Categories)
	assert.Equal(t, "5551234567", recs[0].Phone)
	assert.Equal(t, 36.1, recs[0].Lat)
	assert.Equal(t, -115.1, recs[0].Lon)

	// Features without an id property get a stable positional fallback.
	assert.Equal(t, "omf_2", recs[1].ID)
}

func TestReadGeoJSONMissingFile(t *testing.T) {
	_, _, err := ReadGeoJSON(filepath.Join(t.TempDir(), "absent.geojson"), records.SourceOverpass)
	assert.Error(t, err)
}
