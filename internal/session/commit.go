package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// DefaultCaloriesPerMinute is the flat burn rate used for the estimate.
const DefaultCaloriesPerMinute = 8.0

// TxWriter is a LogWriter that can run both writes in one transaction.
type TxWriter interface {
	storage.LogWriter
	InTx(ctx context.Context, fn func(storage.LogWriter) error) error
}

// CommitInput is the composed state handed to the Committer.
type CommitInput struct {
	UserID      int
	RoutineID   *int64
	RoutineName string
	StartTime   time.Time
	Notes       string
	Exercises   []models.WorkoutExercise
}

// CommitResult describes a successful write.
type CommitResult struct {
	LogID             int64     `json:"log_id"`
	WorkoutDate       time.Time `json:"workout_date"`
	DurationMinutes   int       `json:"duration_minutes"`
	EstimatedCalories int       `json:"estimated_calories"`
	SetsLogged        int       `json:"sets_logged"`
	SetsDropped       int       `json:"sets_dropped"`
}

// Committer validates a composed session and writes it durably.
type Committer struct {
	writer            storage.LogWriter
	now               func() time.Time
	loc               *time.Location
	caloriesPerMinute float64
	metrics           *metrics.Manager
	log               *slog.Logger
}

func NewCommitter(w storage.LogWriter, now func() time.Time, loc *time.Location, caloriesPerMinute float64, m *metrics.Manager, log *slog.Logger) *Committer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	if caloriesPerMinute <= 0 {
		caloriesPerMinute = DefaultCaloriesPerMinute
	}
	return &Committer{
		writer:            w,
		now:               now,
		loc:               loc,
		caloriesPerMinute: caloriesPerMinute,
		metrics:           m,
		log:               log,
	}
}

// DurationMinutes rounds the elapsed time to whole minutes. Clock skew that
// puts end before start yields zero.
func DurationMinutes(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return int(math.Round(float64(ms) / 60000))
}

// EstimateCalories is the flat per-minute estimate, rounded.
func EstimateCalories(minutes int, perMinute float64) int {
	return int(math.Round(float64(minutes) * perMinute))
}

// WorkoutDay returns the calendar day of t in loc, as midnight UTC of that
// date, so a DATE column stores the user's local day.
func WorkoutDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidSet reports whether a set is written: a positive set number and a
// positive weight or rep count. Unparsable weight counts as absent.
func ValidSet(s models.ExerciseSet) bool {
	if s.SetNumber <= 0 {
		return false
	}
	w, _ := s.Weight.Float()
	return w > 0 || repsRecorded(s.Reps)
}

// repsRecorded reports whether reps is a positive count a detail row can hold.
func repsRecorded(reps *int) bool {
	return reps != nil && *reps > 0 && *reps <= MaxReps
}

// DetailRows converts the valid sets of exercises into detail rows and
// counts the sets dropped.
func DetailRows(exercises []models.WorkoutExercise) ([]models.WorkoutLogDetailRow, int) {
	var (
		rows    []models.WorkoutLogDetailRow
		dropped int
	)
	for _, ex := range exercises {
		for _, s := range ex.Sets {
			if !ValidSet(s) {
				dropped++
				continue
			}
			row := models.WorkoutLogDetailRow{
				ExerciseID:   ex.ID,
				ExerciseName: ex.Name,
				SetNumber:    s.SetNumber,
				Notes:        s.Notes,
			}
			if w, ok := s.Weight.Float(); ok && w > 0 {
				row.WeightUsed = w
			}
			if repsRecorded(s.Reps) {
				row.RepsCompleted = *s.Reps
			}
			rows = append(rows, row)
		}
	}
	return rows, dropped
}

// Commit writes the log row and one detail row per valid set. With a
// TxWriter both writes share a transaction; otherwise a details failure after
// the log row is reported as ErrPartialWriteFailed.
func (c *Committer) Commit(ctx context.Context, in CommitInput) (*CommitResult, error) {
	finished := c.now()
	duration := DurationMinutes(in.StartTime, finished)
	details, dropped := DetailRows(in.Exercises)

	row := models.WorkoutLogRow{
		UserID:            in.UserID,
		RoutineID:         in.RoutineID,
		RoutineName:       in.RoutineName,
		DurationMinutes:   duration,
		EstimatedCalories: EstimateCalories(duration, c.caloriesPerMinute),
		Notes:             in.Notes,
		WorkoutDate:       WorkoutDay(in.StartTime, c.loc),
		StartedAt:         in.StartTime,
		FinishedAt:        finished,
		Source:            models.SourceSession,
	}

	if err := ctx.Err(); err != nil {
		return nil, c.fail(&CommitError{Kind: ErrWriteFailed, Retryable: true, Err: err})
	}

	start := time.Now()
	logID, err := c.write(ctx, row, details)
	c.metrics.HistCommitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.fail(err)
	}

	c.metrics.CounterCommits.WithLabelValues(metrics.CommitSuccess).Inc()
	c.metrics.CounterSetsLogged.Add(float64(len(details)))
	c.metrics.CounterSetsDropped.Add(float64(dropped))
	if dropped > 0 {
		c.log.Debug("sets skipped at commit", "log_id", logID, "dropped", dropped, "reason", ErrValidationSkipped)
	}

	return &CommitResult{
		LogID:             logID,
		WorkoutDate:       row.WorkoutDate,
		DurationMinutes:   row.DurationMinutes,
		EstimatedCalories: row.EstimatedCalories,
		SetsLogged:        len(details),
		SetsDropped:       dropped,
	}, nil
}

func (c *Committer) write(ctx context.Context, row models.WorkoutLogRow, details []models.WorkoutLogDetailRow) (int64, error) {
	if tx, ok := c.writer.(TxWriter); ok {
		var logID int64
		err := tx.InTx(ctx, func(w storage.LogWriter) error {
			id, err := w.CreateWorkoutLog(ctx, row)
			if err != nil {
				return err
			}
			if err := w.CreateWorkoutLogDetails(ctx, id, details); err != nil {
				return err
			}
			logID = id
			return nil
		})
		if err != nil {
			return 0, &CommitError{Kind: ErrWriteFailed, Retryable: true, Err: err}
		}
		return logID, nil
	}

	logID, err := c.writer.CreateWorkoutLog(ctx, row)
	if err != nil {
		return 0, &CommitError{Kind: ErrWriteFailed, Retryable: true, Err: err}
	}
	if err := c.writer.CreateWorkoutLogDetails(ctx, logID, details); err != nil {
		return 0, &CommitError{Kind: ErrPartialWriteFailed, LogID: logID, Retryable: true, Err: err}
	}
	return logID, nil
}

func (c *Committer) fail(err error) error {
	outcome := metrics.CommitWriteFailed
	if errors.Is(err, ErrPartialWriteFailed) {
		outcome = metrics.CommitPartialWrite
	}
	c.metrics.CounterCommits.WithLabelValues(outcome).Inc()
	c.log.Error("workout commit failed", "error", err)
	return fmt.Errorf("committing workout: %w", err)
}
