package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PlaceSummary is one conflated place as served by the browse API.
type PlaceSummary struct {
	PlaceID      string  `json:"place_id"`
	BestSource   string  `json:"best_source"`
	BestName     string  `json:"best_name"`
	BestAddress  string  `json:"best_address"`
	BestPhone    string  `json:"best_phone,omitempty"`
	BestWebsite  string  `json:"best_website,omitempty"`
	BestCategory string  `json:"best_category,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// PlaceDetail is a place with its member records.
type PlaceDetail struct {
	PlaceSummary
	Members []PlaceMember `json:"members"`
}

// PlaceMember is one source catalog's contribution to a place.
type PlaceMember struct {
	Source   string   `json:"source"`
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Category string   `json:"category,omitempty"`
	Score    *int     `json:"score,omitempty"`
	Distance *float64 `json:"distance_m,omitempty"`
}

// RunStats summarizes a run for the stats endpoint.
type RunStats struct {
	RunID        string  `json:"run_id"`
	RunLabel     string  `json:"run_label"`
	Method       string  `json:"method"`
	TotalPlaces  int     `json:"total_places"`
	OMFMatched   int     `json:"omf_matched"`
	OverpassRate float64 `json:"overpass_match_rate"`
	OMFRate      float64 `json:"omf_match_rate"`
	OverpassHits int     `json:"overpass_matched"`
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, run_label, method, started_at, completed_at, total_places
		FROM conflation_run ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.RunLabel, &r.Method, &r.StartedAt, &r.CompletedAt, &r.TotalPlaces); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRunID returns the most recently completed run.
func (s *Store) LatestRunID() (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(`
		SELECT run_id FROM conflation_run
		WHERE completed_at IS NOT NULL
		ORDER BY completed_at DESC LIMIT 1
	`).Scan(&id)
	if err == sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("no completed runs")
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	return id, nil
}

// ListPlaces pages through a run's conflated places, optionally filtering by
// a case-insensitive name substring.
func (s *Store) ListPlaces(runID uuid.UUID, nameFilter string, limit, offset int) ([]PlaceSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT place_id, COALESCE(best_source,''), COALESCE(best_name,''),
		       COALESCE(best_address,''), COALESCE(best_phone,''),
		       COALESCE(best_website,''), COALESCE(best_category,''),
		       latitude_median, longitude_median
		FROM conflated_place
		WHERE run_id = $1 AND ($2 = '' OR best_name ILIKE '%' || $2 || '%')
		ORDER BY place_id
		LIMIT $3 OFFSET $4
	`, runID, nameFilter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list places: %w", err)
	}
	defer rows.Close()

	var out []PlaceSummary
	for rows.Next() {
		var p PlaceSummary
		if err := rows.Scan(&p.PlaceID, &p.BestSource, &p.BestName, &p.BestAddress,
			&p.BestPhone, &p.BestWebsite, &p.BestCategory, &p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPlace returns one place with its member records, or nil when absent.
func (s *Store) GetPlace(runID uuid.UUID, placeID string) (*PlaceDetail, error) {
	var detail PlaceDetail
	err := s.db.QueryRow(`
		SELECT place_id, COALESCE(best_source,''), COALESCE(best_name,''),
		       COALESCE(best_address,''), COALESCE(best_phone,''),
		       COALESCE(best_website,''), COALESCE(best_category,''),
		       latitude_median, longitude_median
		FROM conflated_place WHERE run_id = $1 AND place_id = $2
	`, runID, placeID).Scan(&detail.PlaceID, &detail.BestSource, &detail.BestName,
		&detail.BestAddress, &detail.BestPhone, &detail.BestWebsite, &detail.BestCategory,
		&detail.Latitude, &detail.Longitude)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT business_id, COALESCE(name,''), COALESCE(category,''),
		       omf_id, COALESCE(omf_name,''), COALESCE(omf_category,''), omf_score, omf_distance,
		       overpass_id, COALESCE(overpass_name,''), COALESCE(overpass_category,''), overpass_score, overpass_distance
		FROM place_triplet WHERE run_id = $1 AND place_id = $2
		ORDER BY business_id
	`, runID, placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var businessID, name, category string
		var omfID, overpassID sql.NullString
		var omfName, omfCategory, overpassName, overpassCategory string
		var omfScore, overpassScore sql.NullInt64
		var omfDist, overpassDist sql.NullFloat64
		if err := rows.Scan(&businessID, &name, &category,
			&omfID, &omfName, &omfCategory, &omfScore, &omfDist,
			&overpassID, &overpassName, &overpassCategory, &overpassScore, &overpassDist); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		detail.Members = append(detail.Members, PlaceMember{
			Source: "yelp", ID: businessID, Name: name, Category: category,
		})
		if omfID.Valid {
			detail.Members = append(detail.Members, PlaceMember{
				Source: "omf", ID: omfID.String, Name: omfName, Category: omfCategory,
				Score: nullableInt(omfScore), Distance: nullableFloat(omfDist),
			})
		}
		if overpassID.Valid {
			detail.Members = append(detail.Members, PlaceMember{
				Source: "overpass", ID: overpassID.String, Name: overpassName, Category: overpassCategory,
				Score: nullableInt(overpassScore), Distance: nullableFloat(overpassDist),
			})
		}
	}
	return &detail, rows.Err()
}

// Stats computes match-rate statistics for a run.
func (s *Store) Stats(runID uuid.UUID) (*RunStats, error) {
	stats := &RunStats{}
	var total int
	err := s.db.QueryRow(`
		SELECT r.run_id::text, r.run_label, r.method, r.total_places,
		       COUNT(t.omf_id), COUNT(t.overpass_id), COUNT(t.business_id)
		FROM conflation_run r
		LEFT JOIN place_triplet t ON t.run_id = r.run_id
		WHERE r.run_id = $1
		GROUP BY r.run_id, r.run_label, r.method, r.total_places
	`, runID).Scan(&stats.RunID, &stats.RunLabel, &stats.Method, &stats.TotalPlaces,
		&stats.OMFMatched, &stats.OverpassHits, &total)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	if total > 0 {
		stats.OMFRate = float64(stats.OMFMatched) / float64(total) * 100
		stats.OverpassRate = float64(stats.OverpassHits) / float64(total) * 100
	}
	return stats, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
