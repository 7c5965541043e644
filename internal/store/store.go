// Package store persists pipeline output in Postgres for the browse API and
// for run-over-run comparison.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/poi-conflation/internal/records"
)

// Store wraps the Postgres connection for pipeline persistence.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for the web handlers.
func (s *Store) DB() *sql.DB { return s.db }

// CreateSchema creates the pipeline tables when absent.
func (s *Store) CreateSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conflation_run (
			run_id        UUID PRIMARY KEY,
			run_label     TEXT NOT NULL,
			method        TEXT NOT NULL,
			started_at    TIMESTAMPTZ NOT NULL,
			completed_at  TIMESTAMPTZ,
			total_places  INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS place_triplet (
			run_id            UUID NOT NULL REFERENCES conflation_run(run_id),
			place_id          TEXT NOT NULL,
			business_id       TEXT NOT NULL,
			name              TEXT,
			address           TEXT,
			category          TEXT,
			latitude          DOUBLE PRECISION,
			longitude         DOUBLE PRECISION,
			omf_id            TEXT,
			omf_name          TEXT,
			omf_category      TEXT,
			omf_score         INTEGER,
			omf_distance      DOUBLE PRECISION,
			overpass_id       TEXT,
			overpass_name     TEXT,
			overpass_category TEXT,
			overpass_score    INTEGER,
			overpass_distance DOUBLE PRECISION,
			PRIMARY KEY (run_id, business_id)
		);

		CREATE TABLE IF NOT EXISTS conflated_place (
			run_id           UUID NOT NULL REFERENCES conflation_run(run_id),
			place_id         TEXT NOT NULL,
			best_source      TEXT,
			best_name        TEXT,
			name_source      TEXT,
			best_address     TEXT,
			address_source   TEXT,
			best_phone       TEXT,
			phone_source     TEXT,
			best_website     TEXT,
			website_source   TEXT,
			best_category    TEXT,
			category_source  TEXT,
			latitude_median  DOUBLE PRECISION,
			longitude_median DOUBLE PRECISION,
			PRIMARY KEY (run_id, place_id)
		);

		CREATE INDEX IF NOT EXISTS idx_place_triplet_place ON place_triplet(place_id);
		CREATE INDEX IF NOT EXISTS idx_conflated_place_name ON conflated_place(best_name);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Run is one persisted pipeline load.
type Run struct {
	RunID       uuid.UUID  `json:"run_id"`
	RunLabel    string     `json:"run_label"`
	Method      string     `json:"method"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TotalPlaces int        `json:"total_places"`
}

// CreateRun records the start of a load.
func (s *Store) CreateRun(label, method string) (*Run, error) {
	run := &Run{
		RunID:     uuid.New(),
		RunLabel:  label,
		Method:    method,
		StartedAt: time.Now(),
	}
	_, err := s.db.Exec(`
		INSERT INTO conflation_run (run_id, run_label, method, started_at)
		VALUES ($1, $2, $3, $4)
	`, run.RunID, run.RunLabel, run.Method, run.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	fmt.Printf("Created conflation run %s: %s (%s)\n", run.RunID, label, method)
	return run, nil
}

// CompleteRun marks a run finished with its place count.
func (s *Store) CompleteRun(runID uuid.UUID, totalPlaces int) error {
	_, err := s.db.Exec(`
		UPDATE conflation_run SET completed_at = $1, total_places = $2 WHERE run_id = $3
	`, time.Now(), totalPlaces, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// LoadTriplets bulk-inserts the triplet table for a run.
func (s *Store) LoadTriplets(runID uuid.UUID, triplets []records.TripletRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO place_triplet (
			run_id, place_id, business_id, name, address, category, latitude, longitude,
			omf_id, omf_name, omf_category, omf_score, omf_distance,
			overpass_id, overpass_name, overpass_category, overpass_score, overpass_distance
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare triplet insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range triplets {
		_, err := stmt.Exec(
			runID, t.PlaceID, t.BusinessID,
			nullIfEmpty(t.Name), nullIfEmpty(t.Address), nullIfEmpty(t.Category),
			t.Lat, t.Lon,
			legID(t.OMF), legName(t.OMF), legCategory(t.OMF), legScore(t.OMF), legDistance(t.OMF),
			legID(t.Overpass), legName(t.Overpass), legCategory(t.Overpass), legScore(t.Overpass), legDistance(t.Overpass),
		)
		if err != nil {
			return fmt.Errorf("failed to insert triplet %s: %w", t.BusinessID, err)
		}
	}
	return tx.Commit()
}

// LoadConflated bulk-inserts conflated places for a run.
func (s *Store) LoadConflated(runID uuid.UUID, places []records.ConflatedPlace) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO conflated_place (
			run_id, place_id, best_source,
			best_name, name_source, best_address, address_source,
			best_phone, phone_source, best_website, website_source,
			best_category, category_source, latitude_median, longitude_median
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare conflated insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range places {
		_, err := stmt.Exec(
			runID, p.PlaceID, nullIfEmpty(string(p.BestSource)),
			nullIfEmpty(p.BestName), attrSource(p, records.AttrName),
			nullIfEmpty(p.BestAddress), attrSource(p, records.AttrAddress),
			nullIfEmpty(p.BestPhone), attrSource(p, records.AttrPhone),
			nullIfEmpty(p.BestWebsite), attrSource(p, records.AttrWebsite),
			nullIfEmpty(p.BestCategory), attrSource(p, records.AttrCategory),
			p.LatMedian, p.LonMedian,
		)
		if err != nil {
			return fmt.Errorf("failed to insert place %s: %w", p.PlaceID, err)
		}
	}
	return tx.Commit()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func attrSource(p records.ConflatedPlace, attr records.Attribute) interface{} {
	if s, ok := p.AttrSource[attr]; ok && s != "" {
		return string(s)
	}
	return nil
}

func legID(l records.SourceLeg) interface{} {
	if !l.Present {
		return nil
	}
	return l.ID
}

func legName(l records.SourceLeg) interface{} {
	if !l.Present {
		return nil
	}
	return l.Name
}

func legCategory(l records.SourceLeg) interface{} {
	if !l.Present || l.Category == "" {
		return nil
	}
	return l.Category
}

func legScore(l records.SourceLeg) interface{} {
	if !l.Present {
		return nil
	}
	return l.Score
}

func legDistance(l records.SourceLeg) interface{} {
	if !l.Present {
		return nil
	}
	return l.Distance
}
