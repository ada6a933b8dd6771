package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationAndCalories(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	d := DurationMinutes(start, start.Add(125000*time.Millisecond))
	assert.Equal(t, 2, d)
	assert.Equal(t, 16, EstimateCalories(d, DefaultCaloriesPerMinute))

	assert.Equal(t, 3, DurationMinutes(start, start.Add(150*time.Second)))
	assert.Equal(t, 0, DurationMinutes(start, start.Add(-time.Minute)))
}

func TestValidSet(t *testing.T) {
	cases := []struct {
		name string
		set  models.ExerciseSet
		want bool
	}{
		{"zero weight zero reps", models.ExerciseSet{SetNumber: 1, Weight: "0", Reps: intPtr(0)}, false},
		{"zero weight five reps", models.ExerciseSet{SetNumber: 1, Weight: "0", Reps: intPtr(5)}, true},
		{"set number zero", models.ExerciseSet{SetNumber: 0, Weight: "50", Reps: intPtr(5)}, false},
		{"trailing decimal", models.ExerciseSet{SetNumber: 2, Weight: "12."}, true},
		{"unparsable weight", models.ExerciseSet{SetNumber: 2, Weight: "heavy"}, false},
		{"empty", models.ExerciseSet{SetNumber: 3}, false},
		{"reps beyond column range", models.ExerciseSet{SetNumber: 1, Reps: intPtr(MaxReps + 1)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidSet(tc.set))
		})
	}
}

func TestDetailRows(t *testing.T) {
	rows, dropped := DetailRows([]models.WorkoutExercise{
		{ID: "bench_press", Name: "Bench Press", Sets: []models.ExerciseSet{
			{SetNumber: 1, Weight: "12.", Reps: intPtr(10), Notes: "easy"},
			{SetNumber: 2},
		}},
		{ID: "pullup", Name: "Pull-up", Sets: []models.ExerciseSet{
			{SetNumber: 1, Reps: intPtr(8)},
			{SetNumber: 2, Weight: "40", Reps: intPtr(MaxReps + 1)},
			{SetNumber: 3, Reps: intPtr(MaxReps + 1)},
		}},
	})
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []models.WorkoutLogDetailRow{
		{ExerciseID: "bench_press", ExerciseName: "Bench Press", SetNumber: 1, WeightUsed: 12, RepsCompleted: 10, Notes: "easy"},
		{ExerciseID: "pullup", ExerciseName: "Pull-up", SetNumber: 1, RepsCompleted: 8},
		{ExerciseID: "pullup", ExerciseName: "Pull-up", SetNumber: 2, WeightUsed: 40},
	}, rows)
}

func TestWorkoutDayUsesLocalCalendar(t *testing.T) {
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	// 03:30 UTC on the 15th is still the 14th in Los Angeles.
	instant := time.Date(2026, 3, 15, 3, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), WorkoutDay(instant, loc))
}

func newTestCommitter(w storage.LogWriter, now time.Time, m *metrics.Manager) *Committer {
	return NewCommitter(w, func() time.Time { return now }, time.UTC, 0, m, discardLogger())
}

func TestCommitter_WritesLogAndDetails(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	w := newFakeWriter()
	m := metrics.NewTestManager()
	c := newTestCommitter(fakeTxWriter{w}, start.Add(125*time.Second), m)

	routineID := int64(4)
	res, err := c.Commit(context.Background(), CommitInput{
		UserID:      1,
		RoutineID:   &routineID,
		RoutineName: "Legs",
		StartTime:   start,
		Exercises: []models.WorkoutExercise{{ID: "squat", Name: "Squat", Sets: []models.ExerciseSet{
			{SetNumber: 1, Weight: "100", Reps: intPtr(5)},
			{SetNumber: 2, Weight: "0", Reps: intPtr(0)},
		}}},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.DurationMinutes)
	assert.Equal(t, 16, res.EstimatedCalories)
	assert.Equal(t, 1, res.SetsLogged)
	assert.Equal(t, 1, res.SetsDropped)

	require.Len(t, w.logs, 1)
	log := w.logs[0]
	assert.Equal(t, res.LogID, log.ID)
	assert.Equal(t, "Legs", log.RoutineName)
	assert.Equal(t, models.SourceSession, log.Source)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), log.WorkoutDate)
	require.Len(t, w.details[res.LogID], 1)
	assert.Equal(t, 100.0, w.details[res.LogID][0].WeightUsed)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterCommits.WithLabelValues(metrics.CommitSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterSetsDropped))
}

func TestCommitter_NoValidSetsStillWritesLog(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	w := newFakeWriter()
	c := newTestCommitter(w, start.Add(40*time.Minute), metrics.NewTestManager())

	res, err := c.Commit(context.Background(), CommitInput{UserID: 1, StartTime: start,
		Exercises: []models.WorkoutExercise{{ID: "squat", Sets: []models.ExerciseSet{{SetNumber: 1}}}}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.SetsLogged)
	assert.Equal(t, 320, res.EstimatedCalories)
	assert.Equal(t, 1, w.logCount())
	assert.Empty(t, w.details[res.LogID])
}

func TestCommitter_TwoPhasePartialFailure(t *testing.T) {
	w := newFakeWriter()
	w.failDetails = errors.New("connection reset")
	m := metrics.NewTestManager()
	c := newTestCommitter(w, time.Now(), m)

	_, err := c.Commit(context.Background(), CommitInput{UserID: 1, StartTime: time.Now(),
		Exercises: []models.WorkoutExercise{{ID: "squat", Sets: []models.ExerciseSet{{SetNumber: 1, Reps: intPtr(5)}}}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialWriteFailed)

	var ce *CommitError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Retryable)
	assert.Equal(t, int64(1), ce.LogID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterCommits.WithLabelValues(metrics.CommitPartialWrite)))
}

func TestCommitter_TransactionRollsBack(t *testing.T) {
	w := newFakeWriter()
	w.failDetails = errors.New("constraint violation")
	c := newTestCommitter(fakeTxWriter{w}, time.Now(), metrics.NewTestManager())

	_, err := c.Commit(context.Background(), CommitInput{UserID: 1, StartTime: time.Now(),
		Exercises: []models.WorkoutExercise{{ID: "squat", Sets: []models.ExerciseSet{{SetNumber: 1, Reps: intPtr(5)}}}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.NotErrorIs(t, err, ErrPartialWriteFailed)
	assert.Equal(t, 0, w.logCount())
}

func TestCommitter_CanceledContext(t *testing.T) {
	w := newFakeWriter()
	c := newTestCommitter(w, time.Now(), metrics.NewTestManager())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Commit(ctx, CommitInput{UserID: 1, StartTime: time.Now()})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, w.logCount())
}
