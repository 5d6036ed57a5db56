package builder

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBuilder(t *testing.T) {
	b := New(Config{TempDir: "/tmp", Pathname: "x.pl"}, true)
	assert.Equal(t, Config{TempDir: "/tmp", Pathname: "x.pl"}, b.Config())
	assert.True(t, b.Debug())
	assert.NotNil(t, b.Lock())
	assert.NotNil(t, b.Log())
}

func TestMemoryLock_SetReset(t *testing.T) {
	l := NewMemoryLock()
	ctx := context.Background()

	ok, err := l.Set(ctx, "k", true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Set(ctx, "k", true)
	require.NoError(t, err)
	assert.False(t, ok, "second Set on a held key must fail")

	require.NoError(t, l.Reset(ctx, "k", 0))

	ok, err = l.Set(ctx, "k", true)
	require.NoError(t, err)
	assert.True(t, ok, "Set after Reset must succeed")
}

func TestRunCmd(t *testing.T) {
	b := New(Config{}, false)
	proc, err := b.RunCmd(context.Background(), exec.Command("/bin/true"))
	require.NoError(t, err)
	require.NotNil(t, proc)
	_, _ = proc.Wait()
}

func TestFileLock_SetReset(t *testing.T) {
	l := NewFileLock(t.TempDir())
	ctx := context.Background()

	ok, err := l.Set(ctx, "k", true)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Set(ctx, "k", true)
	require.NoError(t, err)
	assert.False(t, ok, "second Set on a held key must fail")

	require.NoError(t, l.Reset(ctx, "k", 0))

	ok, err = l.Set(ctx, "k", true)
	require.NoError(t, err)
	assert.True(t, ok, "Set after Reset must succeed")
}

func TestFileLock_ResetMissingKeyIsNoop(t *testing.T) {
	l := NewFileLock(t.TempDir())
	assert.NoError(t, l.Reset(context.Background(), "never-set", 0))
}
