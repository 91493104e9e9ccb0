package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	dropTables = `
		DROP TABLE IF EXISTS run_divergences;
		DROP TABLE IF EXISTS runs;
		DROP TABLE IF EXISTS memo;
	`

	createTables = `
		CREATE TABLE IF NOT EXISTS memo (
			value INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TIMESTAMP NOT NULL,
			lower INTEGER NOT NULL,
			upper INTEGER NOT NULL,
			policy TEXT NOT NULL,
			checked INTEGER NOT NULL,
			converged INTEGER NOT NULL,
			halted INTEGER NOT NULL,
			memo_size INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS run_divergences (
			run_id TEXT NOT NULL,
			start INTEGER NOT NULL,
			trace TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id),
			PRIMARY KEY (run_id, start)
		);
	`

	seedMemo = `INSERT OR IGNORE INTO memo (value) VALUES (1)`
)

// SQLiteStore keeps the memo and run history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens the database at path and creates missing tables.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &Error{Kind: IoFailure, Op: "open", Path: path, Err: err}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &Error{Kind: IoFailure, Op: "open", Path: path, Err: err}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTables); err != nil {
		return &Error{Kind: IoFailure, Op: "migrate", Path: s.path, Err: err}
	}
	return nil
}

// Reset drops every table, recreates the schema and seeds the memo with 1.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, dropTables); err != nil {
		return &Error{Kind: IoFailure, Op: "reset", Path: s.path, Err: fmt.Errorf("failed to drop tables: %w", err)}
	}
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, seedMemo); err != nil {
		return &Error{Kind: IoFailure, Op: "reset", Path: s.path, Err: fmt.Errorf("failed to seed memo: %w", err)}
	}
	return nil
}

// Load returns every memoized value in ascending order.
func (s *SQLiteStore) Load(ctx context.Context) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM memo ORDER BY value`)
	if err != nil {
		return nil, &Error{Kind: IoFailure, Op: "load", Path: s.path, Err: err}
	}
	defer rows.Close()

	var values []uint64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, &Error{Kind: DecodeFailure, Op: "load", Path: s.path, Err: err}
		}
		if v == 0 {
			return nil, &Error{Kind: DecodeFailure, Op: "load", Path: s.path, Err: fmt.Errorf("value must be positive")}
		}
		values = append(values, uint64(v))
	}

	if err := rows.Err(); err != nil {
		return nil, &Error{Kind: IoFailure, Op: "load", Path: s.path, Err: err}
	}

	return values, nil
}

// Save inserts values that are not already stored. Existing rows are kept.
func (s *SQLiteStore) Save(ctx context.Context, values []uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: IoFailure, Op: "save", Path: s.path, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO memo (value) VALUES (?)`)
	if err != nil {
		return &Error{Kind: IoFailure, Op: "save", Path: s.path, Err: err}
	}
	defer stmt.Close()

	for _, v := range values {
		if v == 0 {
			return &Error{Kind: EncodeFailure, Op: "save", Path: s.path, Err: fmt.Errorf("refusing to persist zero")}
		}
		// Stored as the int64 bit pattern; Load converts back.
		if _, err := stmt.ExecContext(ctx, int64(v)); err != nil {
			return &Error{Kind: IoFailure, Op: "save", Path: s.path, Err: fmt.Errorf("failed to insert %d: %w", v, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Kind: IoFailure, Op: "save", Path: s.path, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	return nil
}

// Divergence is a candidate whose sequence closed a cycle.
type Divergence struct {
	Start uint64
	Trace []uint64
}

// RunRecord summarizes one sweep.
type RunRecord struct {
	ID          string
	StartedAt   time.Time
	Lower       uint64
	Upper       uint64
	Policy      string
	Checked     int
	Converged   int
	Halted      bool
	MemoSize    int
	Divergences []Divergence
}

// RecordRun stores a run and its divergences in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, run RunRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &Error{Kind: IoFailure, Op: "record run", Path: s.path, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	insertRun := `INSERT INTO runs (id, started_at, lower, upper, policy, checked, converged, halted, memo_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertRun, run.ID, run.StartedAt.UTC(), int64(run.Lower), int64(run.Upper),
		run.Policy, run.Checked, run.Converged, run.Halted, run.MemoSize); err != nil {
		return &Error{Kind: IoFailure, Op: "record run", Path: s.path, Err: fmt.Errorf("failed to insert run: %w", err)}
	}

	insertDivergence := `INSERT INTO run_divergences (run_id, start, trace) VALUES (?, ?, ?)`
	for _, d := range run.Divergences {
		if _, err := tx.ExecContext(ctx, insertDivergence, run.ID, int64(d.Start), encodeTrace(d.Trace)); err != nil {
			return &Error{Kind: IoFailure, Op: "record run", Path: s.path, Err: fmt.Errorf("failed to insert divergence: %w", err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &Error{Kind: IoFailure, Op: "record run", Path: s.path, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	return nil
}

// GetRun fetches a run by ID. It returns nil, nil when the run does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	query := `SELECT id, started_at, lower, upper, policy, checked, converged, halted, memo_size FROM runs WHERE id = ?`

	var run RunRecord
	var lower, upper int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(&run.ID, &run.StartedAt, &lower, &upper,
		&run.Policy, &run.Checked, &run.Converged, &run.Halted, &run.MemoSize)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Kind: IoFailure, Op: "get run", Path: s.path, Err: err}
	}
	run.Lower = uint64(lower)
	run.Upper = uint64(upper)

	rows, err := s.db.QueryContext(ctx, `SELECT start, trace FROM run_divergences WHERE run_id = ? ORDER BY start`, id)
	if err != nil {
		return nil, &Error{Kind: IoFailure, Op: "get run", Path: s.path, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var start int64
		var trace string
		if err := rows.Scan(&start, &trace); err != nil {
			return nil, &Error{Kind: DecodeFailure, Op: "get run", Path: s.path, Err: err}
		}
		values, err := decodeTrace(trace)
		if err != nil {
			return nil, &Error{Kind: DecodeFailure, Op: "get run", Path: s.path, Err: err}
		}
		run.Divergences = append(run.Divergences, Divergence{Start: uint64(start), Trace: values})
	}

	if err := rows.Err(); err != nil {
		return nil, &Error{Kind: IoFailure, Op: "get run", Path: s.path, Err: err}
	}

	return &run, nil
}

// encodeTrace joins a trace as comma-separated decimals.
func encodeTrace(trace []uint64) string {
	parts := make([]string, len(trace))
	for i, v := range trace {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(parts, ",")
}

func decodeTrace(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	values := make([]uint64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid trace value %q: %w", p, err)
		}
		values = append(values, v)
	}
	return values, nil
}
