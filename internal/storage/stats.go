package storage

import (
	"context"
	"fmt"
	"time"
)

// LogStats holds aggregate statistics about a user's committed workouts.
type LogStats struct {
	TotalLogs     int64        `json:"total_logs"`
	TotalSets     int64        `json:"total_sets"`
	TotalRoutines int64        `json:"total_routines"`
	EarliestLog   *time.Time   `json:"earliest_log"`
	LatestLog     *time.Time   `json:"latest_log"`
	LogsBySource  []SourceStat `json:"logs_by_source"`
}

// SourceStat holds summary stats for logs of one source.
type SourceStat struct {
	Source        string `json:"source"`
	Count         int64  `json:"count"`
	TotalMinutes  int64  `json:"total_minutes"`
	TotalCalories int64  `json:"total_calories"`
}

// GetLogStats returns aggregate statistics for a user's stored workouts.
func (db *DB) GetLogStats(ctx context.Context, userID int) (*LogStats, error) {
	stats := &LogStats{LogsBySource: []SourceStat{}}

	// Logs and date range
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(workout_date)::timestamptz, MAX(workout_date)::timestamptz
		 FROM workout_logs WHERE user_id = $1`, userID,
	).Scan(&stats.TotalLogs, &stats.EarliestLog, &stats.LatestLog)
	if err != nil {
		return nil, fmt.Errorf("counting workout logs: %w", err)
	}

	// Total sets
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM workout_log_details d
		 JOIN workout_logs l ON l.id = d.log_id
		 WHERE l.user_id = $1`, userID,
	).Scan(&stats.TotalSets)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	// Routines
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM routines WHERE user_id = $1`, userID,
	).Scan(&stats.TotalRoutines)
	if err != nil {
		return nil, fmt.Errorf("counting routines: %w", err)
	}

	// Logs by source
	rows, err := db.Pool.Query(ctx,
		`SELECT source, COUNT(*), COALESCE(SUM(duration_minutes), 0), COALESCE(SUM(estimated_calories), 0)
		 FROM workout_logs
		 WHERE user_id = $1
		 GROUP BY source
		 ORDER BY COUNT(*) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying logs by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s SourceStat
		if err := rows.Scan(&s.Source, &s.Count, &s.TotalMinutes, &s.TotalCalories); err != nil {
			return nil, fmt.Errorf("scanning source stat: %w", err)
		}
		stats.LogsBySource = append(stats.LogsBySource, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
