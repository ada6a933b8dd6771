package session

import (
	"context"
	"log/slog"
	"testing"

	"github.com/claude/liftlog/internal/localstore"
	"github.com/claude/liftlog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestTemporaryStore_AddSuppressesDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewTemporaryStore(localstore.NewMemory(), 1, 7, discardLogger())

	added, err := s.Add(ctx, []models.WorkoutExercise{{ID: "curl", Name: "Curl"}})
	require.NoError(t, err)
	require.Equal(t, 1, added)
	_, err = s.Update(ctx, 0, func(ex models.WorkoutExercise) models.WorkoutExercise {
		ex.Sets[0].Weight = "12.5"
		return ex
	})
	require.NoError(t, err)
	before := s.List()

	added, err = s.Add(ctx, []models.WorkoutExercise{
		{ID: "curl", Name: "Curl again"},
		{ID: "shrug"},
		{ID: "shrug"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, before[0], list[0])
	assert.Equal(t, "shrug", list[1].ID)
	assert.Equal(t, []models.ExerciseSet{{SetNumber: 1}}, list[1].Sets)
}

func TestTemporaryStore_AddKeepsSeedSets(t *testing.T) {
	ctx := context.Background()
	s := NewTemporaryStore(localstore.NewMemory(), 1, 7, discardLogger())

	_, err := s.Add(ctx, []models.WorkoutExercise{{
		ID:   "lunge",
		Sets: []models.ExerciseSet{{SetNumber: 4}, {SetNumber: 9, Reps: intPtr(10)}},
	}})
	require.NoError(t, err)
	list := s.List()
	require.Len(t, list[0].Sets, 2)
	assert.Equal(t, 1, list[0].Sets[0].SetNumber)
	assert.Equal(t, 2, list[0].Sets[1].SetNumber)
	assert.Equal(t, 10, *list[0].Sets[1].Reps)
}

func TestTemporaryStore_PersistsPerRoutine(t *testing.T) {
	ctx := context.Background()
	kv := localstore.NewMemory()

	a := NewTemporaryStore(kv, 1, 7, discardLogger())
	_, err := a.Add(ctx, []models.WorkoutExercise{{ID: "curl"}})
	require.NoError(t, err)
	_, err = a.AppendSet(ctx, 0)
	require.NoError(t, err)

	reloaded := NewTemporaryStore(kv, 1, 7, discardLogger())
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, a.List(), reloaded.List())

	other := NewTemporaryStore(kv, 1, 8, discardLogger())
	require.NoError(t, other.Load(ctx))
	assert.Equal(t, 0, other.Len())
}

func TestTemporaryStore_OutOfRangeIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := localstore.NewMemory()
	s := NewTemporaryStore(kv, 1, 7, discardLogger())

	ok, err := s.Update(ctx, 0, func(ex models.WorkoutExercise) models.WorkoutExercise { return ex })
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.AppendSet(ctx, -1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, kv.Len())
}

func TestTemporaryStore_ClearRemovesRecord(t *testing.T) {
	ctx := context.Background()
	kv := localstore.NewMemory()
	s := NewTemporaryStore(kv, 1, 7, discardLogger())
	_, err := s.Add(ctx, []models.WorkoutExercise{{ID: "curl"}})
	require.NoError(t, err)
	require.False(t, keyAbsent(t, kv, TemporaryKey(1, 7)))

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
	assert.True(t, keyAbsent(t, kv, TemporaryKey(1, 7)))
}

func TestTemporaryStore_CorruptRecordIsRemoved(t *testing.T) {
	ctx := context.Background()
	kv := localstore.NewMemory()
	require.NoError(t, kv.Set(ctx, TemporaryKey(1, 7), []byte("{not json")))

	s := NewTemporaryStore(kv, 1, 7, discardLogger())
	require.NoError(t, s.Load(ctx))
	assert.Equal(t, 0, s.Len())
	assert.True(t, keyAbsent(t, kv, TemporaryKey(1, 7)))
}
