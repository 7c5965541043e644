package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poi-conflation/internal/records"
)

func TestReadYelpKeepsValidRows(t *testing.T) {
	input := strings.Join([]string{
		`{"business_id":"b1","name":"Joe's Pizza","address":"123 Main St","latitude":36.1,"longitude":-115.1,"categories":"Pizza, Italian","phone":"(555) 123-4567","website":"https://joespizza.com"}`,
		`{"business_id":"b2","name":"Café München","address":"9 High St","latitude":36.2,"longitude":-115.2,"categories":"","phone":"123"}`,
	}, "\n")

	recs, stats, err := readYelp(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, 2, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsKept)

	assert.Equal(t, "b1", recs[0].ID)
	assert.Equal(t, records.SourceYelp, recs[0].Source)
	assert.Equal(t, "joe's pizza", recs[0].Name)
	assert.Equal(t, "123 main st", recs[0].Address)
	assert.Equal(t, []string{"pizza", "italian"}, recs[0].Categories)
	assert.Equal(t, "5551234567", recs[0].Phone)
	assert.Equal(t, 36.1, recs[0].Lat)
	assert.Equal(t, -115.1, recs[0].Lon)

	assert.Equal(t, "cafe munchen", recs[1].Name)
	assert.Empty(t, recs[1].Phone, "short phone numbers are unusable")
	assert.Nil(t, recs[1].Categories)
}

func TestReadYelpDropRules(t *testing.T) {
	input := strings.Join([]string{
		`not json at all`,
		`{"business_id":"b1","name":"No Coords","latitude":null,"longitude":-115.1}`,
		`{"business_id":"b2","name":"Missing Lon","latitude":36.1}`,
		`{"business_id":"b3","name":"   ","latitude":36.1,"longitude":-115.1}`,
		``,
		`{"business_id":"b4","name":"Kept","latitude":36.1,"longitude":-115.1}`,
	}, "\n")

	recs, stats, err := readYelp(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "b4", recs[0].ID)

	// Blank lines are not counted as rows.
	assert.Equal(t, 5, stats.RowsRead)
	assert.Equal(t, 1, stats.RowsKept)
	assert.Equal(t, 1, stats.DroppedMalformed)
	assert.Equal(t, 2, stats.DroppedNoCoords)
	assert.Equal(t, 1, stats.DroppedNoName)
}
