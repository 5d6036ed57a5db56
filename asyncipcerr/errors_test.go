package asyncipcerr

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNewUnspecified(t *testing.T) {
	err := NewUnspecified("name")
	require.Error(t, err)
	require.Contains(t, err.Error(), "name")
	var target *Unspecified
	require.True(t, errors.As(err, &target))
	require.Equal(t, "name", target.Param)
}

func TestNewIOError(t *testing.T) {
	require.Nil(t, NewIOError("read", nil))

	err := NewIOError("read", unix.EAGAIN)
	require.Error(t, err)
	require.True(t, errors.Is(err, unix.EAGAIN))
}

func TestIsNonFatal(t *testing.T) {
	require.True(t, IsNonFatal(unix.EAGAIN))
	require.True(t, IsNonFatal(unix.EWOULDBLOCK))
	require.True(t, IsNonFatal(unix.EINTR))
	require.False(t, IsNonFatal(unix.EPIPE))
}

func TestIsEPIPE(t *testing.T) {
	require.True(t, IsEPIPE(unix.EPIPE))
	require.False(t, IsEPIPE(unix.EAGAIN))
	require.False(t, IsEPIPE(NewIOError("write", unix.EAGAIN)))
}
