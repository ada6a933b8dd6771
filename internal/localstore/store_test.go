package localstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the Get/Set/Remove contract every driver must satisfy.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "recovery:1")
	require.True(t, errors.Is(err, ErrNotFound), "missing key should be ErrNotFound, got %v", err)

	require.NoError(t, s.Set(ctx, "recovery:1", []byte(`{"v":1}`)))
	got, err := s.Get(ctx, "recovery:1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(got))

	require.NoError(t, s.Set(ctx, "recovery:1", []byte(`{"v":2}`)))
	got, err = s.Get(ctx, "recovery:1")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(got), "Set should overwrite")

	require.NoError(t, s.Remove(ctx, "recovery:1"))
	_, err = s.Get(ctx, "recovery:1")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, s.Remove(ctx, "never-set"), "removing a missing key is not an error")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

// TestSQLiteStoreSurvivesReopen verifies values persist across a close/open
// cycle, which is what recovery after a process restart relies on.
func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenSQLite(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "temporary:1:7", []byte("[]")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "temporary:1:7")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

// TestMemoryStoreCopiesValues verifies callers can't mutate stored bytes.
func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'x'
	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "etcd"})
	assert.Error(t, err)
}
