package storage

import (
	"context"
	"fmt"
	"time"
)

// RoutinePeriodSummary holds aggregated log stats for one routine within a period.
type RoutinePeriodSummary struct {
	Routine       string  `json:"routine"`
	Count         int     `json:"count"`
	AvgMinutes    float64 `json:"avg_minutes"`
	TotalCalories int     `json:"total_calories"`
}

// StrengthVolumeSummary holds aggregated set volume for a period.
type StrengthVolumeSummary struct {
	WorkingSets       int     `json:"working_sets"`
	TotalReps         int     `json:"total_reps"`
	TonnageKg         float64 `json:"tonnage_kg"`
	Sessions          int     `json:"sessions"`
	AvgSetsPerSession float64 `json:"avg_sets_per_session"`
}

// TrainingSummaryPeriod holds combined routine and volume data for one time period.
type TrainingSummaryPeriod struct {
	Period   string                 `json:"period"`
	Routines []RoutinePeriodSummary `json:"routines"`
	Strength *StrengthVolumeSummary `json:"strength,omitempty"`
}

// GetTrainingSummary returns per-routine and set volume stats per period,
// newest period first. bucket is "week" or "month".
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	// Query 1: logs grouped by period + routine
	logRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, workout_date)::date AS period,
		        routine_name,
		        COUNT(*)::int,
		        AVG(duration_minutes)::float8,
		        COALESCE(SUM(estimated_calories), 0)::int
		 FROM workout_logs
		 WHERE workout_date >= $2 AND workout_date < $3 AND user_id = $4
		 GROUP BY period, routine_name
		 ORDER BY period DESC, COUNT(*) DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying routine summary: %w", err)
	}
	defer logRows.Close()

	// Build map of period -> routine summaries
	periodMap := make(map[string]*TrainingSummaryPeriod)
	var periodOrder []string

	for logRows.Next() {
		var periodTime time.Time
		var rs RoutinePeriodSummary
		if err := logRows.Scan(&periodTime, &rs.Routine, &rs.Count, &rs.AvgMinutes, &rs.TotalCalories); err != nil {
			return nil, fmt.Errorf("scanning routine summary: %w", err)
		}
		key := periodTime.Format("2006-01-02")
		if _, ok := periodMap[key]; !ok {
			periodMap[key] = &TrainingSummaryPeriod{Period: key}
			periodOrder = append(periodOrder, key)
		}
		periodMap[key].Routines = append(periodMap[key].Routines, rs)
	}
	if err := logRows.Err(); err != nil {
		return nil, err
	}

	// Query 2: set volume grouped by period
	volumeRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, l.workout_date)::date AS period,
		        COUNT(*)::int AS working_sets,
		        COALESCE(SUM(d.reps_completed), 0)::int AS total_reps,
		        COALESCE(SUM(d.weight_used * d.reps_completed), 0)::float8 AS tonnage,
		        COUNT(DISTINCT l.id)::int AS sessions
		 FROM workout_log_details d
		 JOIN workout_logs l ON l.id = d.log_id
		 WHERE l.workout_date >= $2 AND l.workout_date < $3 AND l.user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying volume summary: %w", err)
	}
	defer volumeRows.Close()

	for volumeRows.Next() {
		var periodTime time.Time
		var sv StrengthVolumeSummary
		if err := volumeRows.Scan(&periodTime, &sv.WorkingSets, &sv.TotalReps, &sv.TonnageKg, &sv.Sessions); err != nil {
			return nil, fmt.Errorf("scanning volume summary: %w", err)
		}
		sv.AvgSetsPerSession = avgPerSession(sv.WorkingSets, sv.Sessions)
		key := periodTime.Format("2006-01-02")
		if _, ok := periodMap[key]; !ok {
			periodMap[key] = &TrainingSummaryPeriod{Period: key}
			periodOrder = append(periodOrder, key)
		}
		periodMap[key].Strength = &sv
	}
	if err := volumeRows.Err(); err != nil {
		return nil, err
	}

	// Assemble result in order
	result := make([]TrainingSummaryPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

func avgPerSession(sets, sessions int) float64 {
	if sessions == 0 {
		return 0
	}
	return float64(sets) / float64(sessions)
}

// truncInterval maps a bucket name to the field date_trunc expects.
// Unknown buckets fall back to month.
func truncInterval(bucket string) string {
	switch bucket {
	case "week", "1 week":
		return "week"
	default:
		return "month"
	}
}
