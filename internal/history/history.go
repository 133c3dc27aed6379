// Package history records every hunt in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lucsky/cuid"
	_ "modernc.org/sqlite"

	"github.com/cubny/hotspot"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL,
	input         TEXT NOT NULL,
	decrypt_key   INTEGER NOT NULL,
	policy        TEXT NOT NULL,
	found         INTEGER NOT NULL,
	lat           REAL,
	lon           REAL,
	total_score   REAL,
	cluster_count INTEGER,
	earliest      TEXT,
	trips         INTEGER NOT NULL,
	clusters      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one recorded hunt
type Run struct {
	ID           string
	StartedAt    time.Time
	Input        string
	Key          int64
	Policy       hotspot.Policy
	Found        bool
	Location     hotspot.Location
	TotalScore   float64
	ClusterCount int
	Earliest     time.Time
	Trips        int
	Clusters     int
}

// NewRun describes a finished hunt, result is nil when no hotspot was found
func NewRun(startedAt time.Time, input string, config hotspot.Config, result *hotspot.Result, stats hotspot.Stats) Run {
	r := Run{
		ID:        cuid.New(),
		StartedAt: startedAt.UTC(),
		Input:     input,
		Key:       config.Key,
		Policy:    config.Policy,
		Trips:     stats.Trips,
		Clusters:  stats.Clusters,
	}
	if result != nil {
		r.Found = true
		r.Location = result.Hotspot.Location
		r.TotalScore = result.Hotspot.TotalScore
		r.ClusterCount = result.Hotspot.ClusterCount
		r.Earliest = result.Hotspot.Earliest.UTC()
	}
	return r
}

// Store persists runs
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize history database: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts a run
func (s *Store) Save(ctx context.Context, r Run) error {
	var (
		lat, lon, score sql.NullFloat64
		count           sql.NullInt64
		earliest        sql.NullString
	)
	if r.Found {
		lat = sql.NullFloat64{Float64: r.Location.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: r.Location.Lon, Valid: true}
		score = sql.NullFloat64{Float64: r.TotalScore, Valid: true}
		count = sql.NullInt64{Int64: int64(r.ClusterCount), Valid: true}
		earliest = sql.NullString{String: r.Earliest.Format(time.RFC3339Nano), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, input, decrypt_key, policy, found, lat, lon, total_score, cluster_count, earliest, trips, clusters)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.Format(time.RFC3339Nano), r.Input, r.Key, string(r.Policy), r.Found,
		lat, lon, score, count, earliest, r.Trips, r.Clusters,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, the latest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, input, decrypt_key, policy, found, lat, lon, total_score, cluster_count, earliest, trips, clusters
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r               Run
			startedAt       string
			policy          string
			lat, lon, score sql.NullFloat64
			count           sql.NullInt64
			earliest        sql.NullString
		)
		if err := rows.Scan(&r.ID, &startedAt, &r.Input, &r.Key, &policy, &r.Found,
			&lat, &lon, &score, &count, &earliest, &r.Trips, &r.Clusters); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Policy = hotspot.Policy(policy)
		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("run %s: %w", r.ID, err)
		}
		if r.Found {
			r.Location = hotspot.Location{Lat: lat.Float64, Lon: lon.Float64}
			r.TotalScore = score.Float64
			r.ClusterCount = int(count.Int64)
			if r.Earliest, err = time.Parse(time.RFC3339Nano, earliest.String); err != nil {
				return nil, fmt.Errorf("run %s: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
