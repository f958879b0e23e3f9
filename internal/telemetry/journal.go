package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/turtacn/Rover/internal/supervisor"
	"github.com/turtacn/Rover/pkg/errors"
	"github.com/turtacn/Rover/pkg/logger"
	"github.com/turtacn/Rover/pkg/protocol"
)

// Fixed width so the text column sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS cycles (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		mode        TEXT NOT NULL DEFAULT '',
		mission     TEXT NOT NULL DEFAULT '',
		decision    TEXT NOT NULL,
		unit        TEXT NOT NULL DEFAULT '',
		outcome     TEXT NOT NULL,
		error_code  INTEGER NOT NULL DEFAULT 0,
		error       TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cycles_started_at ON cycles(started_at)`,
}

// Journal is the sqlite-backed cycle history. The supervisor writes it and
// the telemetry service reads it.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens or creates the journal at path. ":memory:" gives a
// private in-memory journal.
func OpenJournal(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return &Journal{db: db}, nil
}

// Record stores one cycle. A record with an existing ID replaces it.
func (j *Journal) Record(ctx context.Context, r protocol.CycleRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cycles
		 (id, started_at, finished_at, mode, mission, decision, unit, outcome, error_code, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
		r.Mode, r.Mission, r.Decision, r.Unit, r.Outcome, r.ErrorCode, r.Error)
	if err != nil {
		return errors.New(errors.ErrCodeJournalFailure, "JournalRecord", "inserting cycle", err)
	}
	return nil
}

// Recent returns up to limit cycles, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]protocol.CycleRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, mode, mission, decision, unit, outcome, error_code, error
		 FROM cycles ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.New(errors.ErrCodeJournalFailure, "JournalRecent", "querying cycles", err)
	}
	defer rows.Close()

	records := []protocol.CycleRecord{}
	for rows.Next() {
		var r protocol.CycleRecord
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.Mode, &r.Mission, &r.Decision, &r.Unit, &r.Outcome, &r.ErrorCode, &r.Error); err != nil {
			return nil, errors.New(errors.ErrCodeJournalFailure, "JournalRecent", "scanning cycle", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, errors.New(errors.ErrCodeJournalFailure, "JournalRecent", "cycle "+r.ID+" has a corrupt start time", err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, errors.New(errors.ErrCodeJournalFailure, "JournalRecent", "cycle "+r.ID+" has a corrupt finish time", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.ErrCodeJournalFailure, "JournalRecent", "iterating cycles", err)
	}
	return records, nil
}

// Count returns the number of stored cycles with the given outcome, or all
// cycles when outcome is empty.
func (j *Journal) Count(ctx context.Context, outcome string) (int, error) {
	var n int
	var err error
	if outcome == "" {
		err = j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles`).Scan(&n)
	} else {
		err = j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cycles WHERE outcome = ?`, outcome).Scan(&n)
	}
	if err != nil {
		return 0, errors.New(errors.ErrCodeJournalFailure, "JournalCount", "counting cycles", err)
	}
	return n, nil
}

func (j *Journal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Report implements supervisor.Reporter. Quiet cycles are not journaled;
// a write failure is logged and never reaches the control loop.
func (j *Journal) Report(ctx context.Context, r supervisor.CycleReport) {
	if r.Quiet() {
		return
	}
	if err := j.Record(context.WithoutCancel(ctx), r.Record()); err != nil {
		logger.Log.Error("Telemetry: Journal write failed", "cycle", r.ID, "err", err)
	}
}

// Personal.AI order the ending
