package channel

import (
	"syscall"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/loop"
)

// Socketpair creates a connected pair of AF_UNIX/SOCK_STREAM file
// descriptors, a Channel's underlying transport. The returned fds are
// both full-duplex; callers that want a
// strict reader/writer pair (e.g. Routine's call channel) should call
// ShutdownWrite/ShutdownRead on the appropriate side after handing the
// other fd to a child process.
func Socketpair() (a, b int, err error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return 0, 0, asyncipcerr.NewIOError("socketpair", err)
	}
	return fds[0], fds[1], nil
}

// NewPair constructs two Channels sharing a single process (same Loop),
// connected by a fresh Socketpair. Useful for in-process tests and for
// same-process duplex use; cross-process use (Routine) constructs one
// Channel per side independently, after the fd crosses fork/exec.
func NewPair(l *loop.Loop, nameA, nameB string, cfg Config) (a, b *Channel, err error) {
	fdA, fdB, err := Socketpair()
	if err != nil {
		return nil, nil, err
	}
	cfgA, cfgB := cfg, cfg
	cfgA.Name, cfgA.FD = nameA, fdA
	cfgB.Name, cfgB.FD = nameB, fdB
	a, err = New(l, cfgA)
	if err != nil {
		syscall.Close(fdA)
		syscall.Close(fdB)
		return nil, nil, err
	}
	b, err = New(l, cfgB)
	if err != nil {
		a.Close()
		syscall.Close(fdB)
		return nil, nil, err
	}
	return a, b, nil
}
