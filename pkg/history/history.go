package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/briefbench/pkg/models"
)

// Recorder persists benchmark sweeps and their runs.
type Recorder interface {
	// StartSweep creates a sweep row and returns its ID.
	StartSweep(ctx context.Context, sw models.Sweep) (string, error)
	// Record stores one run of a sweep.
	Record(ctx context.Context, sweepID string, rec models.BenchmarkRecord) error
}

// Store implements Recorder with a SQLite database.
type Store struct {
	db *sql.DB
}

const createSweepsTable = `
CREATE TABLE IF NOT EXISTS sweeps (
	id TEXT PRIMARY KEY,
	host TEXT NOT NULL,
	target_length INTEGER NOT NULL,
	runs INTEGER NOT NULL,
	report_path TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL
);
`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sweep_id TEXT NOT NULL REFERENCES sweeps(id),
	url TEXT NOT NULL,
	model TEXT NOT NULL,
	run INTEGER NOT NULL,
	elapsed_seconds REAL NOT NULL,
	success INTEGER NOT NULL,
	summary_length INTEGER NOT NULL,
	target_length INTEGER NOT NULL,
	length_match INTEGER NOT NULL,
	cache_exists INTEGER NOT NULL,
	cache_age_hours REAL NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_sweep ON runs(sweep_id, model, url);
`

// New opens the history database and runs auto-migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec(createSweepsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sweeps table: %w", err)
	}
	if _, err := db.Exec(createRunsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate runs table: %w", err)
	}

	return &Store{db: db}, nil
}

// generateSweepID creates an ID like bench_20260221_a3f9c2.
func generateSweepID(now time.Time) string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return fmt.Sprintf("bench_%s_%s", now.UTC().Format("20060102"), hex.EncodeToString(b))
}

// StartSweep stores sweep metadata. An empty ID is generated.
func (s *Store) StartSweep(ctx context.Context, sw models.Sweep) (string, error) {
	if sw.StartedAt.IsZero() {
		sw.StartedAt = time.Now().UTC()
	}
	if sw.ID == "" {
		sw.ID = generateSweepID(sw.StartedAt)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sweeps (id, host, target_length, runs, report_path, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sw.ID, sw.Host, sw.TargetLength, sw.Runs, sw.ReportPath, sw.StartedAt,
	)
	if err != nil {
		return "", fmt.Errorf("start sweep: %w", err)
	}
	return sw.ID, nil
}

// Record stores one benchmark run.
func (s *Store) Record(ctx context.Context, sweepID string, rec models.BenchmarkRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (sweep_id, url, model, run, elapsed_seconds, success, summary_length,
			target_length, length_match, cache_exists, cache_age_hours, error, summary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sweepID, rec.URL, rec.Model, rec.Run, rec.ElapsedSeconds, rec.Success, rec.SummaryLength,
		rec.TargetLength, rec.LengthMatch, rec.CacheExists, rec.CacheAgeHours, rec.Error, rec.SummaryExcerpt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListSweeps returns all sweeps, newest first.
func (s *Store) ListSweeps(ctx context.Context) ([]models.Sweep, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.host, s.target_length, s.runs, s.report_path, s.started_at, COUNT(r.id)
		 FROM sweeps s LEFT JOIN runs r ON r.sweep_id = s.id
		 GROUP BY s.id ORDER BY s.started_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sweeps: %w", err)
	}
	defer rows.Close()

	var sweeps []models.Sweep
	for rows.Next() {
		var sw models.Sweep
		if err := rows.Scan(&sw.ID, &sw.Host, &sw.TargetLength, &sw.Runs, &sw.ReportPath, &sw.StartedAt, &sw.RecordCount); err != nil {
			return nil, fmt.Errorf("scan sweep: %w", err)
		}
		sweeps = append(sweeps, sw)
	}
	return sweeps, rows.Err()
}

// Summary aggregates the runs of a sweep by model and url. The mean covers
// successful runs only.
func (s *Store) Summary(ctx context.Context, sweepID string) ([]models.SweepSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT model, url, COUNT(*), COALESCE(SUM(success), 0),
			COALESCE(AVG(CASE WHEN success THEN elapsed_seconds END), 0),
			COALESCE(SUM(length_match), 0)
		 FROM runs WHERE sweep_id = ?
		 GROUP BY model, url ORDER BY MIN(id)`,
		sweepID,
	)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var out []models.SweepSummary
	for rows.Next() {
		var sum models.SweepSummary
		if err := rows.Scan(&sum.Model, &sum.URL, &sum.Runs, &sum.Successful, &sum.MeanSeconds, &sum.LengthMatch); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
