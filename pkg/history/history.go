// Package history records task runs and per-hotel outcomes in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/propgen/pkg/models"
)

// Recorder receives run lifecycle events from the orchestrator.
type Recorder interface {
	// StartRun opens a run and returns its id.
	StartRun(ctx context.Context, task string, total int, startedAt time.Time) (string, error)
	// RecordItem stores the terminal outcome of one hotel.
	RecordItem(ctx context.Context, item models.RunItem) error
	// FinishRun stores the final counters and status of a run.
	FinishRun(ctx context.Context, run models.Run) error
}

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Store implements Recorder with a SQLite database.
type Store struct {
	db *sql.DB
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	task TEXT NOT NULL,
	status TEXT NOT NULL,
	total INTEGER NOT NULL DEFAULT 0,
	succeeded INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_runs_task_time ON runs(task, started_at);
`

const createItemsTable = `
CREATE TABLE IF NOT EXISTS run_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	hotel_id INTEGER NOT NULL,
	status TEXT NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	cached INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	latency_ms INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_run_items_run ON run_items(run_id);
`

// New opens the history database at dbPath and runs auto-migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate runs table: %w", err)
	}
	if _, err := db.Exec(createItemsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run_items table: %w", err)
	}
	return &Store{db: db}, nil
}

// StartRun implements Recorder.
func (s *Store) StartRun(ctx context.Context, task string, total int, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, task, status, total, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, task, string(models.RunRunning), total, startedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// RecordItem implements Recorder.
func (s *Store) RecordItem(ctx context.Context, item models.RunItem) error {
	created := item.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_items (run_id, hotel_id, status, attempts, cached, error, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.RunID, item.HotelID, string(item.Status), item.Attempts, item.Cached, item.Error, item.LatencyMs, created.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record item: %w", err)
	}
	return nil
}

// FinishRun implements Recorder.
func (s *Store) FinishRun(ctx context.Context, run models.Run) error {
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, total = ?, succeeded = ?, failed = ?, skipped = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(run.Status), run.Total, run.Succeeded, run.Failed, run.Skipped, run.Error, finished.UTC(), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}

const runColumns = `id, task, status, total, succeeded, failed, skipped, error, started_at, finished_at`

func scanRun(sc interface{ Scan(...any) error }) (models.Run, error) {
	var r models.Run
	var status string
	var finished sql.NullTime
	if err := sc.Scan(&r.ID, &r.Task, &status, &r.Total, &r.Succeeded, &r.Failed, &r.Skipped, &r.Error, &r.StartedAt, &finished); err != nil {
		return r, err
	}
	r.Status = models.RunStatus(status)
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return r, nil
}

// ListRuns returns the most recent runs, optionally filtered by task.
func (s *Store) ListRuns(ctx context.Context, task string, limit int) ([]models.Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if task != "" {
		q += ` WHERE task = ?`
		args = append(args, task)
	}
	q += ` ORDER BY started_at DESC`
	if limit <= 0 {
		limit = 20
	}
	q += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (models.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return r, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// Items returns the per-hotel outcomes of a run in processing order.
func (s *Store) Items(ctx context.Context, runID string) ([]models.RunItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, hotel_id, status, attempts, cached, error, latency_ms, created_at
		 FROM run_items WHERE run_id = ? ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("run items: %w", err)
	}
	defer rows.Close()

	var items []models.RunItem
	for rows.Next() {
		var it models.RunItem
		var status string
		if err := rows.Scan(&it.RunID, &it.HotelID, &status, &it.Attempts, &it.Cached, &it.Error, &it.LatencyMs, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run item: %w", err)
		}
		it.Status = models.ItemStatus(status)
		items = append(items, it)
	}
	return items, rows.Err()
}

// Prune deletes runs started before cutoff together with their items.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM run_items WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("prune run items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
