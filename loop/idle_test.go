package loop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdle_RunsOnce(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	var calls int
	l.WatchIdle(1, func() { calls++ })
	l.runIdle()
	l.runIdle()
	assert.Equal(t, 1, calls)
}

func TestIdle_Unwatch(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	l.WatchIdle(1, func() {})
	assert.True(t, l.UnwatchIdle(1))
	assert.False(t, l.UnwatchIdle(1))
}

func TestIdle_ReregistrationDuringDrain(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	var calls int
	l.WatchIdle(1, func() {
		calls++
		l.WatchIdle(1, func() { calls++ })
	})
	l.runIdle()
	assert.Equal(t, 1, calls)
	l.runIdle()
	assert.Equal(t, 2, calls)
}
