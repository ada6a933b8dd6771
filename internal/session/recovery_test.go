package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/localstore"
	"github.com/claude/liftlog/internal/metrics"
	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(start time.Time) models.SessionSnapshot {
	return models.SessionSnapshot{
		SessionID:   uuid.New(),
		RoutineID:   1,
		RoutineName: "Push Day",
		StartTime:   start,
		BaseExercises: map[string]models.WorkoutExercise{
			"bench_press": {ID: "bench_press", Sets: []models.ExerciseSet{{SetNumber: 1, Weight: "60", Reps: intPtr(8)}}},
		},
		BaseOrder: []string{"bench_press"},
	}
}

func TestRecoveryCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	kv := localstore.NewMemory()
	c := NewRecoveryCache(kv, 1, 24*time.Hour, clock.Now, metrics.NewTestManager(), discardLogger())

	snap := sampleSnapshot(clock.Now())
	require.NoError(t, c.Save(ctx, snap))
	clock.Advance(23 * time.Hour)

	got, err := c.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, snap.SessionID, got.SessionID)
	assert.Equal(t, models.SnapshotVersion, got.Version)
	assert.Equal(t, snap.BaseExercises, got.BaseExercises)
	assert.True(t, got.LastSaved.Equal(clock.Now().Add(-23*time.Hour)))
}

func TestRecoveryCache_StaleIsDeletedOnRead(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	kv := localstore.NewMemory()
	m := metrics.NewTestManager()
	c := NewRecoveryCache(kv, 1, 24*time.Hour, clock.Now, m, discardLogger())

	require.NoError(t, c.Save(ctx, sampleSnapshot(clock.Now())))
	clock.Advance(24*time.Hour + time.Second)

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, keyAbsent(t, kv, RecoveryKey(1)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterRecovery.WithLabelValues(metrics.RecoveryStale)))
}

func TestRecoveryCache_ExactlyAtThresholdIsValid(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewRecoveryCache(localstore.NewMemory(), 1, 24*time.Hour, clock.Now, metrics.NewTestManager(), discardLogger())

	require.NoError(t, c.Save(ctx, sampleSnapshot(clock.Now())))
	clock.Advance(24 * time.Hour)

	got, err := c.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestRecoveryCache_CorruptIsDeleted(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	kv := localstore.NewMemory()
	m := metrics.NewTestManager()
	c := NewRecoveryCache(kv, 1, 24*time.Hour, clock.Now, m, discardLogger())

	future := sampleSnapshot(clock.Now())
	future.Version = 99
	future.LastSaved = clock.Now()
	data, err := json.Marshal(future)
	require.NoError(t, err)

	for _, raw := range [][]byte{[]byte("garbage"), data} {
		require.NoError(t, kv.Set(ctx, RecoveryKey(1), raw))
		got, err := c.Load(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.True(t, keyAbsent(t, kv, RecoveryKey(1)))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterRecovery.WithLabelValues(metrics.RecoveryCorrupt)))
}

func TestRecoveryCache_SlotPerUser(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	kv := localstore.NewMemory()
	a := NewRecoveryCache(kv, 1, 0, clock.Now, metrics.NewTestManager(), discardLogger())
	b := NewRecoveryCache(kv, 2, 0, clock.Now, metrics.NewTestManager(), discardLogger())

	require.NoError(t, a.Save(ctx, sampleSnapshot(clock.Now())))
	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, a.Clear(ctx))
	assert.True(t, keyAbsent(t, kv, RecoveryKey(1)))
}

func TestDecodeSnapshot_ReportsCorruption(t *testing.T) {
	_, err := decodeSnapshot([]byte(`{"version":1}`))
	assert.ErrorIs(t, err, ErrCacheCorrupt)
}
