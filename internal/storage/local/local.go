// Package local keeps the stage-run log in a SQLite file for the CLI.
package local

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/storage"
)

// Log is a SQLite-backed stage-run log.
type Log struct {
	db *sql.DB
}

// Open opens (or creates) the log at dir/state.db.
func Open(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS stage_runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  TEXT NOT NULL,
		stage       TEXT NOT NULL,
		persona     TEXT NOT NULL DEFAULT '',
		input_kind  TEXT NOT NULL,
		status      TEXT NOT NULL,
		error_class TEXT NOT NULL DEFAULT '',
		started_at  INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating stage_runs table: %w", err)
	}

	return &Log{db: db}, nil
}

// RecordStageRun appends one resolved stage call.
func (l *Log) RecordStageRun(ctx context.Context, run models.StageRun) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO stage_runs (session_id, stage, persona, input_kind, status, error_class, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.SessionID, run.Stage, run.Persona, string(run.InputKind),
		string(run.Status), run.ErrorClass, run.StartedAt.UnixMilli(), run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("inserting stage run: %w", err)
	}
	return nil
}

// QueryStageRuns returns the most recent runs matching q.
func (l *Log) QueryStageRuns(ctx context.Context, q models.StageRunQuery) ([]models.StageRun, error) {
	where, args := storage.RunFilter(q, func(int) string { return "?" })
	args = append(args, storage.RunLimit(q))
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, session_id, stage, persona, input_kind, status, error_class, started_at, duration_ms
		 FROM stage_runs`+where+`
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying stage runs: %w", err)
	}
	defer rows.Close()

	var result []models.StageRun
	for rows.Next() {
		var r models.StageRun
		var kind, status string
		var started int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Stage, &r.Persona, &kind, &status,
			&r.ErrorClass, &started, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("scanning stage run: %w", err)
		}
		r.InputKind = models.InputKind(kind)
		r.Status = models.RunStatus(status)
		r.StartedAt = time.UnixMilli(started).UTC()
		result = append(result, r)
	}
	return result, rows.Err()
}

// GetStageStats returns per-stage outcome counts.
func (l *Log) GetStageStats(ctx context.Context) ([]storage.StageStat, error) {
	rows, err := l.db.QueryContext(ctx, storage.StatsQuery())
	if err != nil {
		return nil, fmt.Errorf("querying stage stats: %w", err)
	}
	defer rows.Close()

	var stats []storage.StageStat
	for rows.Next() {
		var s storage.StageStat
		if err := rows.Scan(&s.Stage, &s.Total, &s.Succeeded, &s.Failed, &s.Discarded, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("scanning stage stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}
