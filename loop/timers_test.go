package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchTime_DuplicateID(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.WatchTime(1, func() {}, Rel(time.Hour)))
	err = l.WatchTime(1, func() {}, Rel(time.Hour))
	assert.ErrorIs(t, err, ErrDuplicateTimerID)
}

func TestWatchTime_FiresAndReschedulesPeriodic(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	var fired int
	require.NoError(t, l.WatchTime(1, func() { fired++ }, Periodic(time.Millisecond)))

	base := time.Now()
	l.nowFunc = func() time.Time { return base }

	next := l.runDueTimers(base.Add(time.Millisecond))
	assert.Equal(t, 1, fired)
	assert.True(t, l.WatchingTime(1))
	assert.GreaterOrEqual(t, next, time.Duration(0))
}

func TestUnwatchTime(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	cb := func() {}
	require.NoError(t, l.WatchTime(1, cb, Rel(time.Hour)))
	assert.True(t, l.WatchingTime(1))

	got := l.UnwatchTime(1)
	assert.NotNil(t, got)
	assert.False(t, l.WatchingTime(1))
	assert.Nil(t, l.UnwatchTime(1))
}

func TestRunDueTimers_NoneDue(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.WatchTime(1, func() {}, Rel(time.Hour)))
	next := l.runDueTimers(time.Now())
	assert.Greater(t, next, time.Duration(0))
}

func TestRunDueTimers_Empty(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, time.Duration(-1), l.runDueTimers(time.Now()))
}

func TestWatchTime_OneShotThenPeriodic(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	var fired int
	require.NoError(t, l.WatchTime(1, func() { fired++ }, OneShotThenPeriodic(time.Millisecond, time.Hour)))

	now := time.Now()
	l.runDueTimers(now.Add(time.Millisecond))
	assert.Equal(t, 1, fired)
	assert.True(t, l.WatchingTime(1))

	// should not fire again until the (much longer) periodic interval elapses
	l.runDueTimers(now.Add(2 * time.Millisecond))
	assert.Equal(t, 1, fired)
}
