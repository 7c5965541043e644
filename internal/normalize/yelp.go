package normalize

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/poi-conflation/internal/records"
)

// Stats reports what a normalization pass did. Accumulated locally and
// returned to the caller; the normalizers keep no package-level state.
type Stats struct {
	RowsRead         int
	RowsKept         int
	DroppedMalformed int
	DroppedNoCoords  int
	DroppedNoName    int
	DroppedGeometry  int
}

// String renders the stats as a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("read=%d kept=%d malformed=%d no_coords=%d no_name=%d bad_geometry=%d",
		s.RowsRead, s.RowsKept, s.DroppedMalformed, s.DroppedNoCoords, s.DroppedNoName, s.DroppedGeometry)
}

// yelpBusiness mirrors one line of the Yelp academic business dump. The
// schema is fixed here, validated once; downstream code never guesses at
// column names.
type yelpBusiness struct {
	BusinessID string   `json:"business_id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	PostalCode string   `json:"postal_code"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Categories string   `json:"categories"`
	Phone      string   `json:"phone"`
	Website    string   `json:"website"`
}

// ReadYelp parses a Yelp JSON-lines business file into normalized anchor
// records. Rows missing coordinates or a name are dropped; malformed lines
// are skipped silently and counted.
func ReadYelp(path string) ([]records.SourceRecord, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open yelp file: %w", err)
	}
	defer f.Close()
	return readYelp(f)
}

func readYelp(r io.Reader) ([]records.SourceRecord, Stats, error) {
	var stats Stats
	var out []records.SourceRecord

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		stats.RowsRead++

		var biz yelpBusiness
		if err := json.Unmarshal(line, &biz); err != nil {
			stats.DroppedMalformed++
			continue
		}
		if biz.Latitude == nil || biz.Longitude == nil {
			stats.DroppedNoCoords++
			continue
		}
		name := CleanText(biz.Name)
		if name == "" {
			stats.DroppedNoName++
			continue
		}

		out = append(out, records.SourceRecord{
			ID:         biz.BusinessID,
			Source:     records.SourceYelp,
			Name:       name,
			Address:    CleanText(biz.Address),
			Categories: SplitCategories(biz.Categories),
			Phone:      DigitsSuffix(biz.Phone),
			Website:    CleanText(biz.Website),
			Lat:        *biz.Latitude,
			Lon:        *biz.Longitude,
		})
		stats.RowsKept++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("failed to scan yelp file: %w", err)
	}
	return out, stats, nil
}
