package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/jackc/pgx/v5"
)

// ErrWorkoutLogNotFound is returned when a log id does not resolve for the user.
var ErrWorkoutLogNotFound = errors.New("workout log not found")

// LogWriter persists committed workouts. *DB satisfies it directly, and so
// does the transaction handle InTx passes to its callback.
type LogWriter interface {
	CreateWorkoutLog(ctx context.Context, row models.WorkoutLogRow) (int64, error)
	CreateWorkoutLogDetails(ctx context.Context, logID int64, rows []models.WorkoutLogDetailRow) error
}

var (
	_ LogWriter    = (*DB)(nil)
	_ ImportWriter = (*DB)(nil)
	_ ImportWriter = (*txLogWriter)(nil)
)

// CreateWorkoutLog inserts a log row and returns its generated id.
func (db *DB) CreateWorkoutLog(ctx context.Context, row models.WorkoutLogRow) (int64, error) {
	return createWorkoutLog(ctx, db.Pool, row)
}

// CreateWorkoutLogDetails batch-inserts the detail rows of one log.
func (db *DB) CreateWorkoutLogDetails(ctx context.Context, logID int64, rows []models.WorkoutLogDetailRow) error {
	return createWorkoutLogDetails(ctx, db.Pool, logID, rows)
}

// InTx runs fn with a LogWriter bound to a single transaction. The
// transaction commits only if fn returns nil.
func (db *DB) InTx(ctx context.Context, fn func(LogWriter) error) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		return fn(&txLogWriter{q: tx})
	})
}

// ImportWriter is a LogWriter that can also replace previously imported logs.
type ImportWriter interface {
	LogWriter
	DeleteImportedLog(ctx context.Context, userID int, source string, startedAt time.Time) error
}

// InImportTx is InTx with an ImportWriter, so a re-imported log is replaced
// atomically.
func (db *DB) InImportTx(ctx context.Context, fn func(ImportWriter) error) error {
	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		return fn(&txLogWriter{q: tx})
	})
}

type txLogWriter struct {
	q querier
}

func (w *txLogWriter) DeleteImportedLog(ctx context.Context, userID int, source string, startedAt time.Time) error {
	return deleteImportedLog(ctx, w.q, userID, source, startedAt)
}

func (w *txLogWriter) CreateWorkoutLog(ctx context.Context, row models.WorkoutLogRow) (int64, error) {
	return createWorkoutLog(ctx, w.q, row)
}

func (w *txLogWriter) CreateWorkoutLogDetails(ctx context.Context, logID int64, rows []models.WorkoutLogDetailRow) error {
	return createWorkoutLogDetails(ctx, w.q, logID, rows)
}

func createWorkoutLog(ctx context.Context, q querier, row models.WorkoutLogRow) (int64, error) {
	source := row.Source
	if source == "" {
		source = models.SourceSession
	}
	var id int64
	err := q.QueryRow(ctx,
		`INSERT INTO workout_logs (user_id, routine_id, routine_name, duration_minutes, estimated_calories,
		 notes, workout_date, started_at, finished_at, source)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING id`,
		row.UserID, row.RoutineID, row.RoutineName, row.DurationMinutes, row.EstimatedCalories,
		row.Notes, row.WorkoutDate, row.StartedAt, row.FinishedAt, source,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting workout log: %w", err)
	}
	return id, nil
}

func createWorkoutLogDetails(ctx context.Context, q querier, logID int64, rows []models.WorkoutLogDetailRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO workout_log_details (log_id, exercise_id, exercise_name, set_number,
		weight_used, reps_completed, notes) VALUES `
	args := make([]any, 0, len(rows)*7)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 7
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7,
		))
		args = append(args, logID, r.ExerciseID, r.ExerciseName, r.SetNumber,
			r.WeightUsed, r.RepsCompleted, r.Notes)
	}

	query += strings.Join(valueStrings, ",")

	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting workout log details for log %d: %w", logID, err)
	}
	return nil
}

// QueryWorkoutLogs retrieves logs whose workout_date falls in [start, end),
// newest first, each with its details.
func (db *DB) QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLog, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, user_id, routine_id, routine_name, duration_minutes, estimated_calories,
		 notes, workout_date, started_at, finished_at, source
		 FROM workout_logs
		 WHERE workout_date >= $1 AND workout_date < $2 AND user_id = $3
		 ORDER BY id DESC`,
		start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying workout logs: %w", err)
	}

	var logs []models.WorkoutLog
	for rows.Next() {
		var l models.WorkoutLog
		if err := scanWorkoutLog(rows, &l.WorkoutLogRow); err != nil {
			rows.Close()
			return nil, err
		}
		logs = append(logs, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range logs {
		details, err := db.queryDetails(ctx, logs[i].ID)
		if err != nil {
			return nil, err
		}
		logs[i].Details = details
	}
	return logs, nil
}

// GetWorkoutLog retrieves a single log with its details.
func (db *DB) GetWorkoutLog(ctx context.Context, logID int64, userID int) (*models.WorkoutLog, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT id, user_id, routine_id, routine_name, duration_minutes, estimated_calories,
		 notes, workout_date, started_at, finished_at, source
		 FROM workout_logs
		 WHERE id = $1 AND user_id = $2`,
		logID, userID)

	var l models.WorkoutLog
	if err := scanWorkoutLog(row, &l.WorkoutLogRow); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("log %d: %w", logID, ErrWorkoutLogNotFound)
		}
		return nil, err
	}

	details, err := db.queryDetails(ctx, logID)
	if err != nil {
		return nil, err
	}
	l.Details = details
	return &l, nil
}

func (db *DB) queryDetails(ctx context.Context, logID int64) ([]models.WorkoutLogDetailRow, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT log_id, exercise_id, exercise_name, set_number, weight_used, reps_completed, notes
		 FROM workout_log_details
		 WHERE log_id = $1
		 ORDER BY id ASC`,
		logID)
	if err != nil {
		return nil, fmt.Errorf("querying workout log details: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutLogDetailRow
	for rows.Next() {
		var d models.WorkoutLogDetailRow
		if err := rows.Scan(&d.LogID, &d.ExerciseID, &d.ExerciseName, &d.SetNumber,
			&d.WeightUsed, &d.RepsCompleted, &d.Notes); err != nil {
			return nil, fmt.Errorf("scanning workout log detail: %w", err)
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func scanWorkoutLog(row pgx.Row, l *models.WorkoutLogRow) error {
	err := row.Scan(&l.ID, &l.UserID, &l.RoutineID, &l.RoutineName, &l.DurationMinutes, &l.EstimatedCalories,
		&l.Notes, &l.WorkoutDate, &l.StartedAt, &l.FinishedAt, &l.Source)
	if err != nil {
		return fmt.Errorf("scanning workout log: %w", err)
	}
	return nil
}

// DeleteImportedLog removes a previously imported log that started at the same
// instant, so re-imports reflect the latest parser output. Session logs are
// never touched.
func (db *DB) DeleteImportedLog(ctx context.Context, userID int, source string, startedAt time.Time) error {
	return deleteImportedLog(ctx, db.Pool, userID, source, startedAt)
}

func deleteImportedLog(ctx context.Context, q querier, userID int, source string, startedAt time.Time) error {
	if source == models.SourceSession {
		return fmt.Errorf("refusing to delete %q logs", source)
	}
	_, err := q.Exec(ctx,
		`DELETE FROM workout_logs WHERE user_id = $1 AND source = $2 AND started_at = $3`,
		userID, source, startedAt)
	if err != nil {
		return fmt.Errorf("deleting imported log: %w", err)
	}
	return nil
}
