package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/oguzhanerr/mst-gis-optimized/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			transmitter_id TEXT NOT NULL,
			longitude REAL NOT NULL,
			latitude REAL NOT NULL,
			antenna_height REAL NOT NULL,
			rx_antenna_height REAL NOT NULL,
			frequency_ghz REAL NOT NULL,
			polarization INTEGER NOT NULL,
			time_percent INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS pipeline_cache (
			phase TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			artifact TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS points (
			run_id TEXT NOT NULL,
			point_id INTEGER NOT NULL,
			distance_km REAL NOT NULL,
			azimuth_deg REAL NOT NULL,
			longitude REAL NOT NULL,
			latitude REAL NOT NULL,
			elevation_m REAL NOT NULL,
			landcover_code INTEGER NOT NULL,
			category INTEGER NOT NULL,
			roughness REAL NOT NULL,
			zone INTEGER NOT NULL,
			PRIMARY KEY (run_id, point_id),
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
		CREATE INDEX IF NOT EXISTS idx_points_run_id ON points(run_id);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (s *SQLiteDB) GetEntry(ctx context.Context, phase string) (*models.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT phase, fingerprint, artifact, created_at FROM pipeline_cache WHERE phase = ?`, phase)

	var e models.CacheEntry
	if err := row.Scan(&e.Phase, &e.Fingerprint, &e.Artifact, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying cache entry: %w", err)
	}
	return &e, nil
}

func (s *SQLiteDB) PutEntry(ctx context.Context, e *models.CacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_cache (phase, fingerprint, artifact, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(phase) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			artifact = excluded.artifact,
			created_at = excluded.created_at`,
		e.Phase, e.Fingerprint, e.Artifact, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("error storing cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteDB) DeleteEntries(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pipeline_cache`); err != nil {
		return fmt.Errorf("error clearing cache entries: %w", err)
	}
	return nil
}

func (s *SQLiteDB) AddRun(ctx context.Context, r *models.Run) error {
	tx := r.Transmitter
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, transmitter_id, longitude, latitude, antenna_height,
			rx_antenna_height, frequency_ghz, polarization, time_percent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, tx.ID, tx.Longitude, tx.Latitude, tx.AntennaHeight,
		tx.RxAntennaHeight, tx.FrequencyGHz, tx.Polarization, tx.TimePercent, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting run: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transmitter_id, longitude, latitude, antenna_height,
			rx_antenna_height, frequency_ghz, polarization, time_percent, created_at
		FROM runs WHERE id = ?`, id)

	r, err := scanRun(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying run: %w", err)
	}
	return r, nil
}

func (s *SQLiteDB) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transmitter_id, longitude, latitude, antenna_height,
			rx_antenna_height, frequency_ghz, polarization, time_percent, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func scanRun(scan func(...any) error) (*models.Run, error) {
	var r models.Run
	tx := &r.Transmitter
	if err := scan(&r.ID, &tx.ID, &tx.Longitude, &tx.Latitude, &tx.AntennaHeight,
		&tx.RxAntennaHeight, &tx.FrequencyGHz, &tx.Polarization, &tx.TimePercent, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteDB) ReplacePoints(ctx context.Context, runID string, pts []models.EnrichedPoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("error clearing points: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (run_id, point_id, distance_km, azimuth_deg, longitude, latitude,
			elevation_m, landcover_code, category, roughness, zone)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing point insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range pts {
		if _, err := stmt.ExecContext(ctx,
			runID, p.ID, p.DistanceKm, p.AzimuthDeg, p.Longitude, p.Latitude,
			p.ElevationM, p.LandCoverCode, p.Category, p.Roughness, int(p.Zone)); err != nil {
			return fmt.Errorf("error inserting point %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteDB) ListPoints(ctx context.Context, runID string) ([]models.EnrichedPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT point_id, distance_km, azimuth_deg, longitude, latitude,
			elevation_m, landcover_code, category, roughness, zone
		FROM points WHERE run_id = ? ORDER BY point_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("error listing points: %w", err)
	}
	defer rows.Close()

	var pts []models.EnrichedPoint
	for rows.Next() {
		var p models.EnrichedPoint
		var zone int
		if err := rows.Scan(&p.ID, &p.DistanceKm, &p.AzimuthDeg, &p.Longitude, &p.Latitude,
			&p.ElevationM, &p.LandCoverCode, &p.Category, &p.Roughness, &zone); err != nil {
			return nil, fmt.Errorf("error scanning point: %w", err)
		}
		p.Zone = models.Zone(zone)
		pts = append(pts, p)
	}
	return pts, rows.Err()
}
