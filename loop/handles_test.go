package loop

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReadHandle_FiresOnData(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	fired := make(chan struct{}, 1)
	require.NoError(t, l.WatchReadHandle(int(r.Fd()), func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := l.poller.Poll(10); err != nil {
			t.Fatalf("poll: %v", err)
		}
		select {
		case <-fired:
			return
		default:
		}
	}
	t.Fatal("timed out waiting for read readiness")
}

func TestUnwatchReadHandle_NotWatched(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	err = l.UnwatchReadHandle(int(r.Fd()))
	assert.ErrorIs(t, err, ErrFDNotWatched)
}

func TestWatchReadHandle_DuplicateRegistration(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	defer l.Close()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	require.NoError(t, l.WatchReadHandle(int(r.Fd()), func() {}))
	err = l.WatchReadHandle(int(r.Fd()), func() {})
	assert.ErrorIs(t, err, ErrFDAlreadyWatched)
}
