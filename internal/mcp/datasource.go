package mcp

import (
	"context"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	GetRoutine(ctx context.Context, userID int, routineID int64) (*models.Routine, error)
	ListRoutines(ctx context.Context, userID int) ([]models.Routine, error)
	LastPerformance(ctx context.Context, q models.HistoryQuery) (models.PerformanceHistory, error)
	QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error)
	GetWorkoutLog(ctx context.Context, logID int64, userID int) (*models.WorkoutLog, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
