package normalize

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/poi-conflation/internal/records"
)

func splitStored(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var recordHeader = []string{
	"id", "source", "name", "address", "categories", "phone", "website",
	"latitude", "longitude",
}

// WriteRecords persists normalized records as CSV via a temp sibling and
// rename, so interrupted runs never leave a partial interim file behind.
func WriteRecords(path string, recs []records.SourceRecord) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(recordHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range recs {
		row := []string{
			rec.ID, string(rec.Source), rec.Name, rec.Address,
			strings.Join(rec.Categories, ", "),
			rec.Phone, rec.Website,
			strconv.FormatFloat(rec.Lat, 'f', -1, 64),
			strconv.FormatFloat(rec.Lon, 'f', -1, 64),
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
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", path, err)
	}
	return nil
}

// ReadRecords loads a normalized record CSV written by WriteRecords.
func ReadRecords(path string) ([]records.SourceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var out []records.SourceRecord
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if len(rec) != len(recordHeader) {
			return nil, fmt.Errorf("row has %d columns, want %d", len(rec), len(recordHeader))
		}
		lat, err := strconv.ParseFloat(rec[7], 64)
		if err != nil {
			return nil, fmt.Errorf("bad latitude %q: %w", rec[7], err)
		}
		lon, err := strconv.ParseFloat(rec[8], 64)
		if err != nil {
			return nil, fmt.Errorf("bad longitude %q: %w", rec[8], err)
		}
		out = append(out, records.SourceRecord{
			ID: rec[0], Source: records.Source(rec[1]), Name: rec[2],
			Address: rec[3], Categories: splitStored(rec[4]),
			Phone: rec[5], Website: rec[6],
			Lat: lat, Lon: lon,
		})
	}
	return out, nil
}
