package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutLogRow is a row ready for insertion into the workout_logs table.
type WorkoutLogRow struct {
	ID                int64     `json:"id"`
	UserID            int       `json:"user_id"`
	RoutineID         *int64    `json:"routine_id,omitempty"`
	RoutineName       string    `json:"routine_name"`
	DurationMinutes   int       `json:"duration_minutes"`
	EstimatedCalories int       `json:"estimated_calories"`
	Notes             string    `json:"notes"`
	WorkoutDate       time.Time `json:"workout_date"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	Source            string    `json:"source"`
}

// WorkoutLogDetailRow is a row for the workout_log_details table.
type WorkoutLogDetailRow struct {
	LogID         int64   `json:"log_id"`
	ExerciseID    string  `json:"exercise_id"`
	ExerciseName  string  `json:"exercise_name"`
	SetNumber     int     `json:"set_number"`
	WeightUsed    float64 `json:"weight_used"`
	RepsCompleted int     `json:"reps_completed"`
	Notes         string  `json:"notes"`
}

// WorkoutLog is a committed log with its detail rows.
type WorkoutLog struct {
	WorkoutLogRow
	Details []WorkoutLogDetailRow `json:"details"`
}

// Log sources.
const (
	SourceSession = "session"
	SourceAlpha   = "alpha_progression"
)

// SnapshotVersion is the current schema tag of SessionSnapshot.
const SnapshotVersion = 1

// SessionSnapshot is the locally persisted recovery record of a live session.
type SessionSnapshot struct {
	SessionID          uuid.UUID                  `json:"session_id"`
	RoutineID          int64                      `json:"routine_id"`
	RoutineName        string                     `json:"routine_name"`
	StartTime          time.Time                  `json:"start_time"`
	LastSaved          time.Time                  `json:"last_saved"`
	BaseExercises      map[string]WorkoutExercise `json:"base_exercises"`
	BaseOrder          []string                   `json:"base_order"`
	TemporaryExercises []WorkoutExercise          `json:"temporary_exercises"`
	Version            int                        `json:"version"`
}
