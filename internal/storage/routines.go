package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

// ErrRoutineNotFound is returned when a routine id does not resolve for the user.
var ErrRoutineNotFound = errors.New("routine not found")

// GetRoutine loads a routine and its exercises ordered by position.
func (db *DB) GetRoutine(ctx context.Context, userID int, routineID int64) (*models.Routine, error) {
	var r models.Routine
	err := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, name, description, estimated_duration_min, created_at
		 FROM routines
		 WHERE id = $1 AND user_id = $2`,
		routineID, userID,
	).Scan(&r.ID, &r.UserID, &r.Name, &r.Description, &r.EstimatedDurationMin, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("routine %d: %w", routineID, ErrRoutineNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying routine %d: %w", routineID, err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_id, name, muscle_group_main, equipment_required, position,
		 planned_sets, rest_seconds, target_reps_min, target_reps_max, notes
		 FROM routine_exercises
		 WHERE routine_id = $1
		 ORDER BY position ASC`,
		routineID)
	if err != nil {
		return nil, fmt.Errorf("querying routine exercises: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.RoutineExercise
		if err := rows.Scan(&e.ExerciseID, &e.Name, &e.MuscleGroupMain, &e.EquipmentRequired, &e.Position,
			&e.PlannedSets, &e.RestSeconds, &e.TargetRepsMin, &e.TargetRepsMax, &e.Notes); err != nil {
			return nil, fmt.Errorf("scanning routine exercise: %w", err)
		}
		r.Exercises = append(r.Exercises, e)
	}
	return &r, rows.Err()
}

// ListRoutines returns the user's routines without their exercises.
func (db *DB) ListRoutines(ctx context.Context, userID int) ([]models.Routine, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, name, description, estimated_duration_min, created_at
		 FROM routines
		 WHERE user_id = $1
		 ORDER BY name ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying routines: %w", err)
	}
	defer rows.Close()

	var result []models.Routine
	for rows.Next() {
		var r models.Routine
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.Description, &r.EstimatedDurationMin, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning routine: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// CreateRoutine inserts a routine with its exercises in one transaction and
// returns the generated id. Exercise positions follow slice order.
func (db *DB) CreateRoutine(ctx context.Context, r models.Routine) (int64, error) {
	var id int64
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO routines (user_id, name, description, estimated_duration_min)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			r.UserID, r.Name, r.Description, r.EstimatedDurationMin,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("inserting routine: %w", err)
		}

		batch := &pgx.Batch{}
		for i, e := range r.Exercises {
			batch.Queue(
				`INSERT INTO routine_exercises (routine_id, position, exercise_id, name, muscle_group_main,
				 equipment_required, planned_sets, rest_seconds, target_reps_min, target_reps_max, notes)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
				id, i+1, e.ExerciseID, e.Name, e.MuscleGroupMain, e.EquipmentRequired,
				e.PlannedSets, e.RestSeconds, e.TargetRepsMin, e.TargetRepsMax, e.Notes)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting routine exercises: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}
