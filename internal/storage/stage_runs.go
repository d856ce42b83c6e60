package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// DefaultRunLimit caps stage-run listings without an explicit limit.
const DefaultRunLimit = 50

// RecordStageRun appends one resolved stage call to the log.
func (db *DB) RecordStageRun(ctx context.Context, run models.StageRun) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO stage_runs (session_id, stage, persona, input_kind, status, error_class, started_at, duration_ms)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		run.SessionID, run.Stage, nullable(run.Persona), string(run.InputKind),
		string(run.Status), nullable(run.ErrorClass), run.StartedAt, run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("inserting stage run: %w", err)
	}
	return nil
}

// QueryStageRuns returns the most recent runs matching q.
func (db *DB) QueryStageRuns(ctx context.Context, q models.StageRunQuery) ([]models.StageRun, error) {
	where, args := runFilter(q, func(n int) string { return fmt.Sprintf("$%d", n) })
	args = append(args, runLimit(q))
	rows, err := db.Pool.Query(ctx,
		`SELECT id, session_id, stage, COALESCE(persona, ''), input_kind, status,
		 COALESCE(error_class, ''), started_at, duration_ms
		 FROM stage_runs`+where+`
		 ORDER BY started_at DESC, id DESC
		 LIMIT $`+fmt.Sprint(len(args)),
		args...)
	if err != nil {
		return nil, fmt.Errorf("querying stage runs: %w", err)
	}
	defer rows.Close()

	var result []models.StageRun
	for rows.Next() {
		var r models.StageRun
		var kind, status string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Stage, &r.Persona, &kind, &status,
			&r.ErrorClass, &r.StartedAt, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("scanning stage run: %w", err)
		}
		r.InputKind = models.InputKind(kind)
		r.Status = models.RunStatus(status)
		result = append(result, r)
	}
	return result, rows.Err()
}

// runFilter builds a WHERE clause for q. placeholder renders the n-th
// bind parameter in the target dialect.
func runFilter(q models.StageRunQuery, placeholder func(n int) string) (string, []any) {
	var conds []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, col+" = "+placeholder(len(args)))
	}
	if q.SessionID != "" {
		add("session_id", q.SessionID)
	}
	if q.Stage != "" {
		add("stage", q.Stage)
	}
	if q.Status != "" {
		add("status", string(q.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func runLimit(q models.StageRunQuery) int {
	if q.Limit <= 0 || q.Limit > 500 {
		return DefaultRunLimit
	}
	return q.Limit
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
