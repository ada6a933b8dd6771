package storage

import (
	"context"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
)

func intPtr(v int) *int { return &v }

func insertLog(t *testing.T, db *DB, userID int, routineID *int64, started time.Time, details ...models.WorkoutLogDetailRow) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := db.CreateWorkoutLog(ctx, models.WorkoutLogRow{
		UserID:      userID,
		RoutineID:   routineID,
		RoutineName: "Push Day",
		WorkoutDate: started.Truncate(24 * time.Hour),
		StartedAt:   started,
		FinishedAt:  started.Add(45 * time.Minute),
	})
	if err != nil {
		t.Fatalf("CreateWorkoutLog: %v", err)
	}
	if err := db.CreateWorkoutLogDetails(ctx, id, details); err != nil {
		t.Fatalf("CreateWorkoutLogDetails: %v", err)
	}
	return id
}

func insertRoutine(t *testing.T, db *DB, userID int) int64 {
	t.Helper()
	id, err := db.CreateRoutine(context.Background(), models.Routine{
		UserID: userID,
		Name:   "Push Day",
		Exercises: []models.RoutineExercise{
			{ExerciseID: "bench_press", Name: "Bench Press", PlannedSets: 2, TargetRepsMin: intPtr(6)},
			{ExerciseID: "dips", Name: "Dips", PlannedSets: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateRoutine: %v", err)
	}
	return id
}

// TestLastPerformanceRoutineUsesHighestLogID verifies the routine scope reads
// only the log with the highest id, even when an older-dated log was
// committed after a newer-dated one.
func TestLastPerformanceRoutineUsesHighestLogID(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	routineID := insertRoutine(t, db, 1)

	insertLog(t, db, 1, &routineID, time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC),
		models.WorkoutLogDetailRow{ExerciseID: "bench_press", SetNumber: 1, WeightUsed: 100, RepsCompleted: 8},
		models.WorkoutLogDetailRow{ExerciseID: "bench_press", SetNumber: 2, WeightUsed: 100, RepsCompleted: 6},
	)
	insertLog(t, db, 1, &routineID, time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
		models.WorkoutLogDetailRow{ExerciseID: "bench_press", SetNumber: 1, WeightUsed: 90, RepsCompleted: 10},
		models.WorkoutLogDetailRow{ExerciseID: "dips", SetNumber: 1, RepsCompleted: 12},
	)

	h, err := db.LastPerformance(ctx, models.HistoryQuery{Scope: models.ScopeRoutine, UserID: 1, RoutineID: routineID})
	if err != nil {
		t.Fatalf("LastPerformance: %v", err)
	}

	p, ok := h.Lookup("bench_press", 1)
	if !ok || p.Weight == nil || *p.Weight != 90 || p.Reps == nil || *p.Reps != 10 {
		t.Errorf("bench set 1 = %+v, want 90 kg x 10 from the latest log", p)
	}
	if _, ok := h.Lookup("bench_press", 2); ok {
		t.Error("bench set 2 came from an older log")
	}
	dips, ok := h.Lookup("dips", 1)
	if !ok || dips.Weight != nil || dips.Reps == nil || *dips.Reps != 12 {
		t.Errorf("dips set 1 = %+v, want no weight and 12 reps", dips)
	}
}

// TestLastPerformanceGlobalPerExercise verifies the global scope picks the
// highest log id per exercise across routines and ignores other users.
func TestLastPerformanceGlobalPerExercise(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	routineID := insertRoutine(t, db, 1)
	other, err := db.GetOrCreateUser(ctx, "bob@example.com", "Bob")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}

	insertLog(t, db, 1, &routineID, time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC),
		models.WorkoutLogDetailRow{ExerciseID: "bench_press", SetNumber: 1, WeightUsed: 100, RepsCompleted: 5},
		models.WorkoutLogDetailRow{ExerciseID: "dips", SetNumber: 1, WeightUsed: 10, RepsCompleted: 8},
	)
	insertLog(t, db, 1, nil, time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC),
		models.WorkoutLogDetailRow{ExerciseID: "bench_press", SetNumber: 1, WeightUsed: 80, RepsCompleted: 12},
	)
	insertLog(t, db, other, nil, time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
		models.WorkoutLogDetailRow{ExerciseID: "dips", SetNumber: 1, WeightUsed: 40, RepsCompleted: 3},
	)

	h, err := db.LastPerformance(ctx, models.HistoryQuery{
		Scope:       models.ScopeGlobal,
		UserID:      1,
		ExerciseIDs: []string{"bench_press", "dips", "squat"},
	})
	if err != nil {
		t.Fatalf("LastPerformance: %v", err)
	}

	if p, ok := h.Lookup("bench_press", 1); !ok || *p.Weight != 80 || *p.Reps != 12 {
		t.Errorf("bench set 1 = %+v, want 80 kg x 12", p)
	}
	if p, ok := h.Lookup("dips", 1); !ok || *p.Weight != 10 || *p.Reps != 8 {
		t.Errorf("dips set 1 = %+v, want 10 kg x 8 (other user's log ignored)", p)
	}
	if _, ok := h.Lookup("squat", 1); ok {
		t.Error("squat has no history but got one")
	}
}

// TestLastPerformanceEmpty verifies a routine without logs yields an empty
// history and an unknown scope is rejected.
func TestLastPerformanceEmpty(t *testing.T) {
	db := requireDB(t)
	ctx := context.Background()
	routineID := insertRoutine(t, db, 1)

	h, err := db.LastPerformance(ctx, models.HistoryQuery{Scope: models.ScopeRoutine, UserID: 1, RoutineID: routineID})
	if err != nil {
		t.Fatalf("LastPerformance: %v", err)
	}
	if len(h) != 0 {
		t.Errorf("history = %+v, want empty", h)
	}

	if _, err := db.LastPerformance(ctx, models.HistoryQuery{Scope: "weekly", UserID: 1}); err == nil {
		t.Error("unknown scope: want error")
	}
}
