// Package persistence provides SQLite-based run recording: one row per
// run, one row per simulated month. The simulation never reads it back;
// it exists so finished runs can be inspected and compared after the fact.
package persistence

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/runwaysim/internal/stats"
)

// DB wraps a SQLite connection for run recording.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		population INTEGER NOT NULL,
		months INTEGER NOT NULL,
		chunk_size INTEGER NOT NULL,
		sample_size INTEGER NOT NULL,
		backend TEXT NOT NULL,
		final_slot_ratio REAL NOT NULL,
		divergences INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS monthly_stats (
		run_id TEXT NOT NULL,
		month INTEGER NOT NULL,
		active INTEGER NOT NULL,
		exited INTEGER NOT NULL,
		employed INTEGER NOT NULL,
		unemployed INTEGER NOT NULL,
		mean_runway REAL NOT NULL,
		p10_runway REAL NOT NULL,
		p50_runway REAL NOT NULL,
		p90_runway REAL NOT NULL,
		slot_ratio REAL NOT NULL,
		PRIMARY KEY (run_id, month)
	);

	CREATE INDEX IF NOT EXISTS idx_monthly_run ON monthly_stats(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunInfo is the run-level metadata stored alongside the series.
type RunInfo struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Seed        uint64
	Population  int
	Months      int
	ChunkSize   int
	SampleSize  int
	Backend     string
	Divergences int64
}

// RecordRun stores a completed run and its monthly series in one
// transaction.
func (db *DB) RecordRun(info RunInfo, ts *stats.TimeSeries) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, started_at, finished_at, seed, population, months, chunk_size,
		 sample_size, backend, final_slot_ratio, divergences)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.StartedAt.Unix(), info.FinishedAt.Unix(),
		int64(info.Seed), info.Population, info.Months, info.ChunkSize,
		info.SampleSize, info.Backend, ts.FinalSlotRatio, info.Divergences,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", info.ID, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO monthly_stats
		(run_id, month, active, exited, employed, unemployed,
		 mean_runway, p10_runway, p50_runway, p90_runway, slot_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for m := 0; m < ts.Months(); m++ {
		_, err := stmt.Exec(
			info.ID, m, ts.Active[m], ts.Exited[m], ts.Employed[m],
			ts.Unemployed[m], ts.MeanRunway[m], ts.P10Runway[m],
			ts.P50Runway[m], ts.P90Runway[m], ts.SlotRatio[m],
		)
		if err != nil {
			return fmt.Errorf("insert month %d: %w", m, err)
		}
	}

	return tx.Commit()
}

// MonthlyRow is one stored month of a recorded run.
type MonthlyRow struct {
	Month      int     `db:"month"`
	Active     int64   `db:"active"`
	Exited     int64   `db:"exited"`
	Employed   int64   `db:"employed"`
	Unemployed int64   `db:"unemployed"`
	MeanRunway float64 `db:"mean_runway"`
	P10Runway  float64 `db:"p10_runway"`
	P50Runway  float64 `db:"p50_runway"`
	P90Runway  float64 `db:"p90_runway"`
	SlotRatio  float64 `db:"slot_ratio"`
}

// MonthlySeries returns the stored series for a run, in month order.
func (db *DB) MonthlySeries(runID string) ([]MonthlyRow, error) {
	var rows []MonthlyRow
	err := db.conn.Select(&rows,
		`SELECT month, active, exited, employed, unemployed,
		        mean_runway, p10_runway, p50_runway, p90_runway, slot_ratio
		 FROM monthly_stats WHERE run_id = ? ORDER BY month`,
		runID,
	)
	return rows, err
}

// RunCount returns the number of recorded runs.
func (db *DB) RunCount() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM runs")
	return n, err
}
