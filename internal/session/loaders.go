package session

import (
	"context"

	"github.com/claude/liftlog/internal/models"
)

// RoutineReader loads a routine template. A missing routine is reported with
// an error wrapping storage.ErrRoutineNotFound.
type RoutineReader interface {
	GetRoutine(ctx context.Context, userID int, routineID int64) (*models.Routine, error)
}

// HistoryReader loads the most recent recorded values per exercise and set.
type HistoryReader interface {
	LastPerformance(ctx context.Context, q models.HistoryQuery) (models.PerformanceHistory, error)
}

func exerciseIDs(r *models.Routine) []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Exercises))
	for _, e := range r.Exercises {
		ids = append(ids, e.ExerciseID)
	}
	return ids
}
