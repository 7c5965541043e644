package conflate

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/poi-conflation/internal/records"
)

// Output column names. The category attribute is plural internally
// ("categories") but consumers expect the singular column names; the rename
// happens here at the boundary, never upstream.
var outputHeader = []string{
	"place_id", "best_source",
	"best_name", "name_source",
	"best_address", "address_source",
	"best_phone", "phone_source",
	"best_website", "website_source",
	"best_category", "category_source",
	"latitude_median", "longitude_median",
}

// WriteOutput writes conflated places as CSV via temp file + rename.
func WriteOutput(path string, places []records.ConflatedPlace) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(outputHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range places {
		row := []string{
			p.PlaceID, string(p.BestSource),
			p.BestName, string(p.AttrSource[records.AttrName]),
			p.BestAddress, string(p.AttrSource[records.AttrAddress]),
			p.BestPhone, string(p.AttrSource[records.AttrPhone]),
			p.BestWebsite, string(p.AttrSource[records.AttrWebsite]),
			p.BestCategory, string(p.AttrSource[records.AttrCategory]),
			strconv.FormatFloat(p.LatMedian, 'f', -1, 64),
			strconv.FormatFloat(p.LonMedian, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// ReadOutput reads a conflated-places CSV written by WriteOutput.
func ReadOutput(path string) ([]records.ConflatedPlace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if len(header) != len(outputHeader) {
		return nil, fmt.Errorf("unexpected column count in %s: got %d want %d", path, len(header), len(outputHeader))
	}

	var out []records.ConflatedPlace
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row in %s: %w", path, err)
		}

		lat, err := strconv.ParseFloat(rec[12], 64)
		if err != nil {
			return nil, fmt.Errorf("bad latitude_median %q: %w", rec[12], err)
		}
		lon, err := strconv.ParseFloat(rec[13], 64)
		if err != nil {
			return nil, fmt.Errorf("bad longitude_median %q: %w", rec[13], err)
		}

		out = append(out, records.ConflatedPlace{
			PlaceID:      rec[0],
			BestSource:   records.Source(rec[1]),
			BestName:     rec[2],
			BestAddress:  rec[4],
			BestPhone:    rec[6],
			BestWebsite:  rec[8],
			BestCategory: rec[10],
			AttrSource: map[records.Attribute]records.Source{
				records.AttrName:     records.Source(rec[3]),
				records.AttrAddress:  records.Source(rec[5]),
				records.AttrPhone:    records.Source(rec[7]),
				records.AttrWebsite:  records.Source(rec[9]),
				records.AttrCategory: records.Source(rec[11]),
			},
			LatMedian: lat,
			LonMedian: lon,
		})
	}
	return out, nil
}
