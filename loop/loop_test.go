package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUID_Monotonic(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	a := l.UUID()
	b := l.UUID()
	assert.Less(t, a, b)
}

func TestOnce_ClosedLoopErrors(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	require.NoError(t, l.Close())

	err = l.Once(0)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunStop(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	started := make(chan struct{})
	stopped := make(chan error, 1)
	l.RunAsync(func(err error) { stopped <- err })

	go func() {
		close(started)
	}()
	<-started

	time.Sleep(10 * time.Millisecond)
	l.Stop()

	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestInvokeCallback_RecoversPanic(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	assert.NotPanics(t, func() {
		l.invokeCallback(func() { panic("boom") })
	})
}

func TestStop_NoOpWhenNotRunning(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	assert.NotPanics(t, func() { l.Stop() })
}
