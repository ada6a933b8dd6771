package storage

import (
	"context"
	"fmt"

	"github.com/claude/liftlog/internal/models"
)

// LastPerformance returns the set-indexed values of the most recent committed
// log for the query's scope. "Most recent" is the highest log id, never a
// timestamp. An empty history is not an error.
func (db *DB) LastPerformance(ctx context.Context, q models.HistoryQuery) (models.PerformanceHistory, error) {
	switch q.Scope {
	case models.ScopeRoutine:
		return db.lastPerformanceForRoutine(ctx, q.UserID, q.RoutineID)
	case models.ScopeGlobal:
		return db.lastPerformancePerExercise(ctx, q.UserID, q.ExerciseIDs)
	default:
		return nil, fmt.Errorf("unknown history scope %q", q.Scope)
	}
}

func (db *DB) lastPerformanceForRoutine(ctx context.Context, userID int, routineID int64) (models.PerformanceHistory, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT d.exercise_id, d.set_number, d.weight_used, d.reps_completed
		 FROM workout_log_details d
		 WHERE d.log_id = (
			SELECT id FROM workout_logs
			WHERE user_id = $1 AND routine_id = $2
			ORDER BY id DESC
			LIMIT 1
		 )
		 ORDER BY d.id ASC`,
		userID, routineID)
	if err != nil {
		return nil, fmt.Errorf("querying routine history: %w", err)
	}
	defer rows.Close()
	return scanPerformance(rows)
}

func (db *DB) lastPerformancePerExercise(ctx context.Context, userID int, exerciseIDs []string) (models.PerformanceHistory, error) {
	if len(exerciseIDs) == 0 {
		return models.PerformanceHistory{}, nil
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT d.exercise_id, d.set_number, d.weight_used, d.reps_completed
		 FROM workout_log_details d
		 JOIN (
			SELECT d2.exercise_id, MAX(d2.log_id) AS log_id
			FROM workout_log_details d2
			JOIN workout_logs l ON l.id = d2.log_id
			WHERE l.user_id = $1 AND d2.exercise_id = ANY($2)
			GROUP BY d2.exercise_id
		 ) latest ON latest.exercise_id = d.exercise_id AND latest.log_id = d.log_id
		 ORDER BY d.id ASC`,
		userID, exerciseIDs)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()
	return scanPerformance(rows)
}

func scanPerformance(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) (models.PerformanceHistory, error) {
	history := models.PerformanceHistory{}
	for rows.Next() {
		var (
			exerciseID string
			setNumber  int
			weight     float64
			reps       int
		)
		if err := rows.Scan(&exerciseID, &setNumber, &weight, &reps); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		history.Add(exerciseID, setNumber, performanceFromRow(weight, reps))
	}
	return history, rows.Err()
}

// performanceFromRow treats zero as "not recorded" so a bodyweight set does not
// hint a 0 kg weight.
func performanceFromRow(weight float64, reps int) models.SetPerformance {
	var p models.SetPerformance
	if weight > 0 {
		w := weight
		p.Weight = &w
	}
	if reps > 0 {
		r := reps
		p.Reps = &r
	}
	return p
}
