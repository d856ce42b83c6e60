package storage

import (
	"context"
	"fmt"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
)

// StageStat aggregates the run log for one stage.
type StageStat struct {
	Stage         string  `json:"stage"`
	Total         int64   `json:"total"`
	Succeeded     int64   `json:"succeeded"`
	Failed        int64   `json:"failed"`
	Discarded     int64   `json:"discarded"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

// statsQuery is shared with the SQLite log.
const statsQuery = `SELECT stage, COUNT(*),
	SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END),
	SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
	SUM(CASE WHEN status = 'discarded' THEN 1 ELSE 0 END),
	COALESCE(AVG(duration_ms), 0)
	FROM stage_runs
	GROUP BY stage
	ORDER BY stage`

// StatsQuery returns the aggregate query for callers on other drivers.
func StatsQuery() string { return statsQuery }

// GetStageStats returns per-stage outcome counts.
func (db *DB) GetStageStats(ctx context.Context) ([]StageStat, error) {
	rows, err := db.Pool.Query(ctx, statsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying stage stats: %w", err)
	}
	defer rows.Close()

	var stats []StageStat
	for rows.Next() {
		var s StageStat
		if err := rows.Scan(&s.Stage, &s.Total, &s.Succeeded, &s.Failed, &s.Discarded, &s.AvgDurationMs); err != nil {
			return nil, fmt.Errorf("scanning stage stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// RunFilter exposes the WHERE builder for other SQL dialects.
func RunFilter(q models.StageRunQuery, placeholder func(n int) string) (string, []any) {
	return runFilter(q, placeholder)
}

// RunLimit returns the effective row limit for q.
func RunLimit(q models.StageRunQuery) int { return runLimit(q) }
