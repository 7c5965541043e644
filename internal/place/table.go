package place

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/poi-conflation/internal/records"
)

var tripletHeader = []string{
	"place_id", "business_id",
	"name", "address", "category", "latitude", "longitude",
	"omf_id", "omf_name", "omf_category", "omf_score", "omf_distance",
	"overpass_id", "overpass_name", "overpass_category", "overpass_score", "overpass_distance",
}

// WriteTriplets writes the triplet table as CSV via temp file + rename.
func WriteTriplets(path string, triplets []records.TripletRow) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(tripletHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range triplets {
		row := []string{
			t.PlaceID, t.BusinessID,
			t.Name, t.Address, t.Category,
			strconv.FormatFloat(t.Lat, 'f', -1, 64),
			strconv.FormatFloat(t.Lon, 'f', -1, 64),
		}
		row = append(row, encodeLeg(t.OMF)...)
		row = append(row, encodeLeg(t.Overpass)...)
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
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

// ReadTriplets reads a triplet table CSV written by WriteTriplets.
func ReadTriplets(path string) ([]records.TripletRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	var out []records.TripletRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row in %s: %w", path, err)
		}
		if len(rec) != len(tripletHeader) {
			return nil, fmt.Errorf("bad column count in %s: got %d want %d", path, len(rec), len(tripletHeader))
		}

		lat, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("bad latitude %q in %s: %w", rec[5], path, err)
		}
		lon, err := strconv.ParseFloat(rec[6], 64)
		if err != nil {
			return nil, fmt.Errorf("bad longitude %q in %s: %w", rec[6], path, err)
		}

		omf, err := decodeLeg(rec[7:12])
		if err != nil {
			return nil, fmt.Errorf("bad omf leg in %s: %w", path, err)
		}
		overpass, err := decodeLeg(rec[12:17])
		if err != nil {
			return nil, fmt.Errorf("bad overpass leg in %s: %w", path, err)
		}

		out = append(out, records.TripletRow{
			PlaceID:    rec[0],
			BusinessID: rec[1],
			Name:       rec[2],
			Address:    rec[3],
			Category:   rec[4],
			Lat:        lat,
			Lon:        lon,
			OMF:        omf,
			Overpass:   overpass,
		})
	}
	return out, nil
}

func encodeLeg(leg records.SourceLeg) []string {
	if !leg.Present {
		return []string{"", "", "", "", ""}
	}
	return []string{
		leg.ID, leg.Name, leg.Category,
		strconv.Itoa(leg.Score),
		strconv.FormatFloat(leg.Distance, 'f', 2, 64),
	}
}

func decodeLeg(rec []string) (records.SourceLeg, error) {
	if rec[0] == "" {
		return records.SourceLeg{}, nil
	}
	leg := records.SourceLeg{ID: rec[0], Name: rec[1], Category: rec[2], Present: true}
	if rec[3] != "" {
		score, err := strconv.Atoi(rec[3])
		if err != nil {
			return leg, fmt.Errorf("bad score %q: %w", rec[3], err)
		}
		leg.Score = score
	}
	if rec[4] != "" {
		dist, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return leg, fmt.Errorf("bad distance %q: %w", rec[4], err)
		}
		leg.Distance = dist
	}
	return leg, nil
}

// WriteGroundTruth writes the derived ground-truth rows as CSV.
func WriteGroundTruth(path string, rows []records.GroundTruth) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"place_id", "name", "address", "phone", "website", "category"}); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, gt := range rows {
		if err := w.Write([]string{gt.PlaceID, gt.Name, gt.Address, gt.Phone, gt.Website, gt.Category}); err != nil {
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

// ReadGroundTruth reads a ground-truth CSV.
func ReadGroundTruth(path string) ([]records.GroundTruth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var out []records.GroundTruth
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row in %s: %w", path, err)
		}
		out = append(out, records.GroundTruth{
			PlaceID:  get(rec, "place_id"),
			Name:     get(rec, "name"),
			Address:  get(rec, "address"),
			Phone:    get(rec, "phone"),
			Website:  get(rec, "website"),
			Category: get(rec, "category"),
		})
	}
	return out, nil
}
