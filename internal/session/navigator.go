package session

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

// Confirmation summarizes a committed workout for the confirmation screen.
type Confirmation struct {
	SessionID         uuid.UUID `json:"session_id"`
	LogID             int64     `json:"log_id"`
	RoutineName       string    `json:"routine_name"`
	WorkoutDate       time.Time `json:"workout_date"`
	DurationMinutes   int       `json:"duration_minutes"`
	EstimatedCalories int       `json:"estimated_calories"`
	SetsLogged        int       `json:"sets_logged"`
	SetsDropped       int       `json:"sets_dropped"`
}

// Navigator resolves the intents a session raises into screen transitions.
// Each session gets its own Navigator.
type Navigator interface {
	// ToConfirmation shows the confirmation. done must be called once the
	// transition has completed; it tears down the session's local state.
	ToConfirmation(ctx context.Context, c Confirmation, done func())
	// Back leaves the session for the workout list.
	Back(ctx context.Context)
	// OpenExercisePicker opens the picker with the exercises already in the
	// session so it can mark or exclude them.
	OpenExercisePicker(ctx context.Context, current []models.WorkoutExercise)
}

// NavigatorFactory returns the Navigator of a new session.
type NavigatorFactory func(sessionID uuid.UUID) Navigator

// NopNavigator ignores intents and completes transitions immediately.
type NopNavigator struct{}

func (NopNavigator) ToConfirmation(_ context.Context, _ Confirmation, done func()) { done() }
func (NopNavigator) Back(context.Context)                                          {}
func (NopNavigator) OpenExercisePicker(context.Context, []models.WorkoutExercise)  {}
