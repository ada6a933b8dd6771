package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutosaver_DebouncesBursts(t *testing.T) {
	var saves atomic.Int32
	a := NewAutosaver(20*time.Millisecond, func() { saves.Add(1) })

	for i := 0; i < 10; i++ {
		a.Schedule()
	}
	require.Eventually(t, func() bool { return saves.Load() == 1 }, time.Second, 5*time.Millisecond)
	a.Wait()
	assert.False(t, a.Pending())
	assert.Equal(t, int32(1), saves.Load())
}

func TestAutosaver_StopCancelsPending(t *testing.T) {
	var saves atomic.Int32
	a := NewAutosaver(time.Hour, func() { saves.Add(1) })

	a.Schedule()
	require.True(t, a.Pending())
	a.Stop()
	a.Wait()
	a.Schedule()

	assert.False(t, a.Pending())
	assert.Equal(t, int32(0), saves.Load())
}

func TestAutosaver_FlushRunsPendingSave(t *testing.T) {
	var saves atomic.Int32
	a := NewAutosaver(time.Hour, func() { saves.Add(1) })

	assert.False(t, a.Flush())
	a.Schedule()
	assert.True(t, a.Flush())
	assert.Equal(t, int32(1), saves.Load())
	assert.False(t, a.Pending())
	a.Wait()
}
