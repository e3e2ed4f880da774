// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperfetch/pkg/types"
)

// DefaultStorePath is where the history database lives unless configured.
const DefaultStorePath = "ledgers/history.db"

// ErrRunNotFound is returned by Load when no run matches.
var ErrRunNotFound = errors.New("run not found")

// Store persists frozen ledgers in SQLite so past runs can be listed,
// reported and bundled.
type Store struct {
	db *sql.DB
}

// RunInfo is the summary row of one persisted run.
type RunInfo struct {
	RunID          string
	StartedAt      time.Time
	FinishedAt     time.Time
	Total          int
	Downloaded     int
	NotFound       int
	Undownloadable int
	TotalBytes     int64
}

// OpenStore opens or creates the history database at path, creating the
// parent directory and schema as needed.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total INTEGER NOT NULL,
			downloaded INTEGER NOT NULL,
			not_found INTEGER NOT NULL,
			undownloadable INTEGER NOT NULL,
			total_bytes INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			record_id TEXT NOT NULL,
			title TEXT,
			status TEXT NOT NULL,
			local_path TEXT,
			source_used TEXT,
			access_type TEXT,
			url TEXT,
			bytes_written INTEGER,
			attempts INTEGER,
			error_detail TEXT,
			duration_ms INTEGER,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_record_id ON outcomes(record_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save writes a frozen ledger, replacing any earlier copy of the same run.
func (s *Store) Save(ctx context.Context, l *Ledger) error {
	if !l.Frozen() {
		return fmt.Errorf("saving run %s: ledger not frozen", l.RunID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM outcomes WHERE run_id = ?`, l.RunID); err != nil {
		return fmt.Errorf("clearing outcomes: %w", err)
	}

	sum := l.Summary
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, started_at, finished_at, total, downloaded, not_found, undownloadable, total_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.RunID,
		formatTime(l.StartedAt),
		formatTime(l.FinishedAt),
		sum.Total,
		sum.ByStatus[types.StatusDownloaded],
		sum.NotFound,
		sum.Undownloadable,
		sum.TotalBytes,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, position, record_id, title, status, local_path, source_used,
			access_type, url, bytes_written, attempts, error_detail, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range l.Entries {
		_, err := stmt.ExecContext(ctx,
			l.RunID, i, e.RecordID, e.Title, string(e.Status), e.LocalPath, string(e.SourceUsed),
			string(e.AccessType), e.URL, e.BytesWritten, e.Attempts, e.ErrorDetail, e.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("inserting outcome %s: %w", e.RecordID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing run %s: %w", l.RunID, err)
	}
	return nil
}

// Load returns the frozen ledger for runID. A unique prefix of a run ID
// is accepted.
func (s *Store) Load(ctx context.Context, runID string) (*Ledger, error) {
	id, err := s.resolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	var started, finished string
	err = s.db.QueryRowContext(ctx,
		`SELECT started_at, COALESCE(finished_at, '') FROM runs WHERE id = ?`, id,
	).Scan(&started, &finished)
	if err != nil {
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, COALESCE(title, ''), status, COALESCE(local_path, ''), COALESCE(source_used, ''),
			COALESCE(access_type, ''), COALESCE(url, ''), COALESCE(bytes_written, 0), COALESCE(attempts, 0),
			COALESCE(error_detail, ''), COALESCE(duration_ms, 0)
		 FROM outcomes WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading outcomes: %w", err)
	}
	defer rows.Close()

	l := New(id, parseTime(started))
	for rows.Next() {
		var (
			e                      types.RetrievalOutcome
			status, source, access string
			durationMS             int64
		)
		if err := rows.Scan(&e.RecordID, &e.Title, &status, &e.LocalPath, &source,
			&access, &e.URL, &e.BytesWritten, &e.Attempts, &e.ErrorDetail, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		e.Status = types.Status(status)
		e.SourceUsed = types.Source(source)
		e.AccessType = types.AccessType(access)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		l.Entries = append(l.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}

	l.Freeze(parseTime(finished))
	return l, nil
}

func (s *Store) resolveRunID(ctx context.Context, runID string) (string, error) {
	if runID == "" {
		return "", ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC, started_at DESC LIMIT 2`,
		runID, runID+"%", runID)
	if err != nil {
		return "", fmt.Errorf("looking up run %s: %w", runID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scanning run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch {
	case len(ids) == 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	case ids[0] == runID || len(ids) == 1:
		return ids[0], nil
	}
	return "", fmt.Errorf("run id prefix %q is ambiguous", runID)
}

// ListRuns returns the most recent runs, newest first. A limit of zero
// or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunInfo, error) {
	query := `SELECT id, started_at, COALESCE(finished_at, ''), total, downloaded, not_found, undownloadable, total_bytes
		FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var (
			r                 RunInfo
			started, finished string
		)
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Total, &r.Downloaded,
			&r.NotFound, &r.Undownloadable, &r.TotalBytes); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
