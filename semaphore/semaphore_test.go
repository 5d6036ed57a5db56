package semaphore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-asyncipc/builder"
	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/process"
)

// TestMain gatekeeps the test binary, same as package routine's.
func TestMain(m *testing.M) {
	if process.MaybeReexec() {
		return
	}
	os.Exit(m.Run())
}

var lockDir = filepath.Join(os.TempDir(), "go-asyncipc-semaphore-test")

func init() {
	os.MkdirAll(lockDir, 0o755)
	RegisterType("sem-a", "", builder.NewFileLock(lockDir))
}

func newLoop(t *testing.T) *loop.Loop {
	t.Helper()
	l, err := loop.New()
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func pumpUntil(t *testing.T, l *loop.Loop, timeout time.Duration, done func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if done() {
			return
		}
		require.NoError(t, l.Once(10*time.Millisecond))
	}
	t.Fatal("timed out waiting for condition")
}

func TestSemaphore_RaiseResetsLockInChild(t *testing.T) {
	lockPath := filepath.Join(lockDir, "lock-sem-a")
	os.Remove(lockPath)

	l := newLoop(t)
	s, err := New(l, Config{Name: "sem-a"})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Close() })

	ok, err := s.Raise()
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = os.Stat(lockPath)
	assert.NoError(t, err, "Raise must have created the lock file")

	pumpUntil(t, l, 3*time.Second, func() bool {
		_, statErr := os.Stat(lockPath)
		return os.IsNotExist(statErr)
	})
}

func TestSemaphore_RaiseWhenContendedDoesNotCall(t *testing.T) {
	lockPath := filepath.Join(lockDir, "lock-sem-a")
	os.Remove(lockPath)
	t.Cleanup(func() { os.Remove(lockPath) })

	lock := builder.NewFileLock(lockDir)
	ok, err := lock.Set(context.Background(), "sem-a", true)
	require.NoError(t, err)
	require.True(t, ok)

	l := newLoop(t)
	s, err := New(l, Config{Name: "sem-a"})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Close() })

	ok, err = s.Raise()
	require.NoError(t, err)
	assert.True(t, ok, "Raise on a contended lock still returns true without calling")
}
