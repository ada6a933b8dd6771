package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultTimeRange returns start/end defaulting to the last 30 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -30)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// splitIDs parses a comma-separated exercise id list, dropping blanks.
func splitIDs(s string) []string {
	var ids []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// --- Tool definitions ---

var toolListRoutines = mcp.NewTool("list_routines",
	mcp.WithDescription("List the user's workout routines (id, name, description, estimated duration)."),
)

var toolGetRoutine = mcp.NewTool("get_routine",
	mcp.WithDescription("Retrieve one routine with its planned exercises in order, including planned set counts and target rep ranges."),
	mcp.WithNumber("routine_id", mcp.Required(), mcp.Description("Routine ID")),
)

var toolGetLastPerformance = mcp.NewTool("get_last_performance",
	mcp.WithDescription("Weight and reps per set from the most recent committed workout. Scope 'routine' reads the last log of one routine; scope 'global' reads, per exercise, the last log that contains it."),
	mcp.WithString("scope", mcp.Description("History scope. Defaults to 'global'."), mcp.Enum("routine", "global")),
	mcp.WithNumber("routine_id", mcp.Description("Routine ID, required for scope 'routine'")),
	mcp.WithString("exercise_ids", mcp.Description("Comma-separated exercise IDs, required for scope 'global' (e.g. 'bench_press,squat')")),
)

var toolGetWorkoutLogs = mcp.NewTool("get_workout_logs",
	mcp.WithDescription("Query committed workout logs by workout date, newest first. Each log includes duration, estimated calories, notes, and every logged set."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date, exclusive. Defaults to now.")),
)

var toolGetWorkoutLog = mcp.NewTool("get_workout_log",
	mcp.WithDescription("Retrieve one committed workout log with its sets."),
	mcp.WithNumber("log_id", mcp.Required(), mcp.Description("Workout log ID")),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Training overview per week or month: sessions and average duration per routine, plus working sets, reps and tonnage per period."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 30 days ago.")),
	mcp.WithString("end", mcp.Description("End date, exclusive. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Period size. Defaults to 'month'."), mcp.Enum("week", "month")),
)

// --- Tool handlers ---

func (h *handlers) listRoutines(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	routines, err := h.ds.ListRoutines(ctx, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp list_routines", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if routines == nil {
		routines = []models.Routine{}
	}
	return jsonResult(routines)
}

func (h *handlers) getRoutine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("routine_id")
	if err != nil {
		return mcp.NewToolResultError("routine_id parameter is required"), nil
	}

	r, err := h.ds.GetRoutine(ctx, UserIDFromContext(ctx), int64(id))
	if errors.Is(err, storage.ErrRoutineNotFound) {
		return mcp.NewToolResultError("routine not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_routine", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(r)
}

func (h *handlers) getLastPerformance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := models.HistoryQuery{
		Scope:  models.HistoryScope(req.GetString("scope", string(models.ScopeGlobal))),
		UserID: UserIDFromContext(ctx),
	}
	switch q.Scope {
	case models.ScopeRoutine:
		id, err := req.RequireInt("routine_id")
		if err != nil {
			return mcp.NewToolResultError("routine_id parameter is required for scope 'routine'"), nil
		}
		q.RoutineID = int64(id)
	case models.ScopeGlobal:
		q.ExerciseIDs = splitIDs(req.GetString("exercise_ids", ""))
		if len(q.ExerciseIDs) == 0 {
			return mcp.NewToolResultError("exercise_ids parameter is required for scope 'global'"), nil
		}
	default:
		return mcp.NewToolResultError("scope must be 'routine' or 'global'"), nil
	}

	history, err := h.ds.LastPerformance(ctx, q)
	if err != nil {
		h.log.Error("mcp get_last_performance", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if history == nil {
		history = models.PerformanceHistory{}
	}
	return jsonResult(history)
}

func (h *handlers) getWorkoutLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	logs, err := h.ds.QueryWorkoutLogs(ctx, start, end, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_workout_logs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if logs == nil {
		logs = []models.WorkoutLog{}
	}
	return jsonResult(logs)
}

func (h *handlers) getWorkoutLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("log_id")
	if err != nil {
		return mcp.NewToolResultError("log_id parameter is required"), nil
	}

	l, err := h.ds.GetWorkoutLog(ctx, int64(id), UserIDFromContext(ctx))
	if errors.Is(err, storage.ErrWorkoutLogNotFound) {
		return mcp.NewToolResultError("workout log not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout_log", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(l)
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}
	bucket := req.GetString("bucket", "month")
	if bucket != "week" && bucket != "month" {
		return mcp.NewToolResultError("bucket must be 'week' or 'month'"), nil
	}

	periods, err := h.ds.GetTrainingSummary(ctx, start, end, bucket, UserIDFromContext(ctx))
	if err != nil {
		h.log.Error("mcp get_training_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if periods == nil {
		periods = []storage.TrainingSummaryPeriod{}
	}
	return jsonResult(periods)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
