package matcher

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/poi-conflation/internal/records"
)

// MatchedRow is one anchor augmented with its match outcome against a
// single target catalog.
type MatchedRow struct {
	Anchor records.SourceRecord
	Result records.MatchResult
}

var tableHeader = []string{
	"business_id", "name", "address", "categories", "phone", "website",
	"latitude", "longitude",
	"matched_id", "matched_name", "matched_name_score", "matched_category",
	"distance_m_final",
}

// WriteTable writes matched rows as CSV. The file is written via a temp
// sibling and renamed so a crash mid-write never leaves a partial file that
// a resumed run would mistake for durable output.
func WriteTable(path string, rows []MatchedRow) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(tableHeader); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(encodeRow(row)); err != nil {
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

// ReadTable reads a matched-row CSV written by WriteTable.
func ReadTable(path string, target records.Source) ([]MatchedRow, error) {
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
	if len(header) != len(tableHeader) {
		return nil, fmt.Errorf("unexpected column count in %s: got %d want %d", path, len(header), len(tableHeader))
	}

	var rows []MatchedRow
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row in %s: %w", path, err)
		}
		row, err := decodeRow(rec, target)
		if err != nil {
			return nil, fmt.Errorf("bad row in %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func encodeRow(row MatchedRow) []string {
	a, m := row.Anchor, row.Result
	score := ""
	if m.Matched {
		score = strconv.Itoa(m.Score)
	}
	dist := ""
	if m.HasDistance {
		dist = strconv.FormatFloat(m.DistanceM, 'f', 2, 64)
	}
	return []string{
		a.ID, a.Name, a.Address, strings.Join(a.Categories, ", "), a.Phone, a.Website,
		strconv.FormatFloat(a.Lat, 'f', -1, 64),
		strconv.FormatFloat(a.Lon, 'f', -1, 64),
		m.CandidateID, m.CandidateName, score, m.CandidateCategory, dist,
	}
}

func decodeRow(rec []string, target records.Source) (MatchedRow, error) {
	lat, err := strconv.ParseFloat(rec[6], 64)
	if err != nil {
		return MatchedRow{}, fmt.Errorf("bad latitude %q: %w", rec[6], err)
	}
	lon, err := strconv.ParseFloat(rec[7], 64)
	if err != nil {
		return MatchedRow{}, fmt.Errorf("bad longitude %q: %w", rec[7], err)
	}

	row := MatchedRow{
		Anchor: records.SourceRecord{
			ID:      rec[0],
			Source:  records.SourceYelp,
			Name:    rec[1],
			Address: rec[2],
			Phone:   rec[4],
			Website: rec[5],
			Lat:     lat,
			Lon:     lon,
		},
		Result: records.MatchResult{
			AnchorID:          rec[0],
			Target:            target,
			CandidateID:       rec[8],
			CandidateName:     rec[9],
			CandidateCategory: rec[11],
		},
	}
	if rec[3] != "" {
		for _, c := range strings.Split(rec[3], ",") {
			if c = strings.TrimSpace(c); c != "" {
				row.Anchor.Categories = append(row.Anchor.Categories, c)
			}
		}
	}
	if rec[10] != "" {
		score, err := strconv.Atoi(rec[10])
		if err != nil {
			return MatchedRow{}, fmt.Errorf("bad score %q: %w", rec[10], err)
		}
		row.Result.Score = score
		row.Result.Matched = row.Result.CandidateID != ""
	}
	if rec[12] != "" {
		dist, err := strconv.ParseFloat(rec[12], 64)
		if err != nil {
			return MatchedRow{}, fmt.Errorf("bad distance %q: %w", rec[12], err)
		}
		row.Result.DistanceM = dist
		row.Result.HasDistance = true
	}
	return row, nil
}
