// Package archive persists finalized forecast-grid runs to SQLite so past
// runs can be listed and reloaded without keeping JSON files around.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/storm-forecast-grids/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	generated_at TEXT NOT NULL,
	min_lead_time_seconds INTEGER NOT NULL,
	max_lead_time_seconds INTEGER NOT NULL,
	grid_rows INTEGER NOT NULL,
	grid_columns INTEGER NOT NULL,
	projection_family TEXT NOT NULL,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS grid_summaries (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	init_time TEXT NOT NULL,
	covered_cells INTEGER NOT NULL,
	max_probability REAL NOT NULL,
	PRIMARY KEY (run_id, init_time)
);

CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);
`

// Store is a SQLite-backed archive of forecast-grid runs.
type Store struct {
	db *sql.DB
}

// RunSummary describes one archived run.
type RunSummary struct {
	ID          int64
	GeneratedAt time.Time
	InitTimes   int
	GridRows    int
	GridColumns int
}

// Open opens (or creates) the archive database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral archive.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// SQLite allows one writer; a second pooled connection would also see a
	// different database entirely under ":memory:".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveRun archives a forecast set and returns its run ID.
func (s *Store) SaveRun(ctx context.Context, set *domain.GriddedForecastSet) (int64, error) {
	payload, err := json.Marshal(set)
	if err != nil {
		return 0, fmt.Errorf("marshal forecast set: %w", err)
	}

	gridRows, gridColumns := len(set.GridYCoords), len(set.GridXCoords)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (generated_at, min_lead_time_seconds, max_lead_time_seconds,
			grid_rows, grid_columns, projection_family, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		set.GeneratedAt.UTC().Format(time.RFC3339),
		set.MinLeadTimeSeconds,
		set.MaxLeadTimeSeconds,
		gridRows,
		gridColumns,
		string(set.Projection.Family),
		string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("run id: %w", err)
	}

	for _, grid := range set.Grids {
		covered, maxProb := summarize(grid.Probabilities)
		_, err := tx.ExecContext(ctx,
			`INSERT INTO grid_summaries (run_id, init_time, covered_cells, max_probability)
			 VALUES (?, ?, ?, ?)`,
			runID,
			grid.InitTime.UTC().Format(time.RFC3339),
			covered,
			maxProb,
		)
		if err != nil {
			return 0, fmt.Errorf("insert grid summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit archive transaction: %w", err)
	}
	return runID, nil
}

// LoadRun reloads an archived forecast set by run ID.
func (s *Store) LoadRun(ctx context.Context, runID int64) (*domain.GriddedForecastSet, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %d: %w", runID, err)
	}

	var set domain.GriddedForecastSet
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		return nil, fmt.Errorf("parse run %d payload: %w", runID, err)
	}
	return &set, nil
}

// ListRuns returns summaries of all archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.generated_at, r.grid_rows, r.grid_columns,
			(SELECT COUNT(*) FROM grid_summaries g WHERE g.run_id = r.id)
		FROM runs r
		ORDER BY r.generated_at DESC, r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var sum RunSummary
		var generatedAt string
		if err := rows.Scan(&sum.ID, &generatedAt, &sum.GridRows, &sum.GridColumns, &sum.InitTimes); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		sum.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// summarize counts covered (non-NaN) cells and finds the peak probability.
func summarize(m domain.Matrix) (covered int, maxProb float64) {
	for _, row := range m {
		for _, v := range row {
			if math.IsNaN(v) {
				continue
			}
			covered++
			if v > maxProb {
				maxProb = v
			}
		}
	}
	return covered, maxProb
}
