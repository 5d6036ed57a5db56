// Package handle implements the FD-level notifier: a notifier owning up
// to two file descriptors (the same fd for duplex, distinct fds for
// half-duplex), with read/write readiness toggled by installing or
// removing Loop FD watchers.
package handle

import (
	"syscall"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/future"
	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/notifier"
)

// Handle is the FD-level notifier.
type Handle struct {
	*notifier.Base

	l *loop.Loop

	readFD  int
	writeFD int // == readFD for a duplex handle

	onReadReady  func()
	onWriteReady func()
	onClosed     func()

	wantReadReady  bool
	wantWriteReady bool

	closed bool

	closeFutures []*future.Future

	autostart bool
}

// Config supplies Handle's construction-time fields.
type Config struct {
	Name    string
	ReadFD  int
	WriteFD int // 0 (or equal to ReadFD) means duplex over the same fd

	OnReadReady  func()
	OnWriteReady func()
	OnClosed     func()

	Autostart bool
}

// New constructs a Handle over the given fd(s).
func New(l *loop.Loop, cfg Config) (*Handle, error) {
	base, err := notifier.New(l, notifier.Config{Type: "handle", Name: cfg.Name, Autostart: cfg.Autostart})
	if err != nil {
		return nil, err
	}
	writeFD := cfg.WriteFD
	if writeFD == 0 {
		writeFD = cfg.ReadFD
	}
	h := &Handle{
		Base:         base,
		l:            l,
		readFD:       cfg.ReadFD,
		writeFD:      writeFD,
		onReadReady:  cfg.OnReadReady,
		onWriteReady: cfg.OnWriteReady,
		onClosed:     cfg.OnClosed,
		autostart:    cfg.Autostart,
	}
	return h, nil
}

// SetOnReadReady installs the read-readiness callback after
// construction. Needed by callers (e.g. package stream) that must build
// a Handle before the object whose readiness callback it is wiring to
// exists yet.
func (h *Handle) SetOnReadReady(cb func()) { h.onReadReady = cb }

// SetOnWriteReady installs the write-readiness callback after
// construction. See SetOnReadReady.
func (h *Handle) SetOnWriteReady(cb func()) { h.onWriteReady = cb }

// ReadFD returns the read-side file descriptor.
func (h *Handle) ReadFD() int { return h.readFD }

// WriteFD returns the write-side file descriptor.
func (h *Handle) WriteFD() int { return h.writeFD }

// SetWantReadReady arms or disarms read readiness. Arming requires
// OnReadReady to be set.
func (h *Handle) SetWantReadReady(want bool) error {
	if want == h.wantReadReady {
		return nil
	}
	if want {
		if h.onReadReady == nil {
			return asyncipcerr.NewUnspecified("on_read_ready")
		}
		if err := h.l.WatchReadHandle(h.readFD, h.onReadReady); err != nil {
			return err
		}
	} else {
		if err := h.l.UnwatchReadHandle(h.readFD); err != nil {
			return err
		}
	}
	h.wantReadReady = want
	return nil
}

// SetWantWriteReady arms or disarms write readiness. Arming requires
// OnWriteReady to be set.
func (h *Handle) SetWantWriteReady(want bool) error {
	if want == h.wantWriteReady {
		return nil
	}
	if want {
		if h.onWriteReady == nil {
			return asyncipcerr.NewUnspecified("on_write_ready")
		}
		if err := h.l.WatchWriteHandle(h.writeFD, h.onWriteReady); err != nil {
			return err
		}
	} else {
		if err := h.l.UnwatchWriteHandle(h.writeFD); err != nil {
			return err
		}
	}
	h.wantWriteReady = want
	return nil
}

// WantReadReady reports whether read readiness is currently armed.
func (h *Handle) WantReadReady() bool { return h.wantReadReady }

// WantWriteReady reports whether write readiness is currently armed.
func (h *Handle) WantWriteReady() bool { return h.wantWriteReady }

// Close is idempotent: stops watchers, closes owned fds, fires
// OnClosed, and resolves every pending close future.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true

	if h.wantReadReady {
		h.l.UnwatchReadHandle(h.readFD)
		h.wantReadReady = false
	}
	if h.wantWriteReady {
		h.l.UnwatchWriteHandle(h.writeFD)
		h.wantWriteReady = false
	}

	var firstErr error
	if err := syscall.Close(h.readFD); err != nil && firstErr == nil {
		firstErr = err
	}
	if h.writeFD != h.readFD {
		if err := syscall.Close(h.writeFD); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if h.onClosed != nil {
		h.onClosed()
	}

	for _, f := range h.closeFutures {
		f.Done()
	}
	h.closeFutures = nil

	return firstErr
}

// NewCloseFuture returns a Future that resolves on Close. Cancelling it
// removes it from the pending list.
func (h *Handle) NewCloseFuture() *future.Future {
	if h.closed {
		f := future.New(h.l, nil)
		f.Done()
		return f
	}
	var f *future.Future
	f = future.New(h.l, func() {
		for i, cf := range h.closeFutures {
			if cf == f {
				h.closeFutures = append(h.closeFutures[:i], h.closeFutures[i+1:]...)
				break
			}
		}
	})
	h.closeFutures = append(h.closeFutures, f)
	return f
}

// SetHandle stops current watchers, replaces the owned fd(s), and
// re-arms each direction that was watched before the swap (both
// directions when Autostart is set).
func (h *Handle) SetHandle(readFD, writeFD int) error {
	wasReadReady := h.wantReadReady
	wasWriteReady := h.wantWriteReady

	if h.wantReadReady {
		h.l.UnwatchReadHandle(h.readFD)
		h.wantReadReady = false
	}
	if h.wantWriteReady {
		h.l.UnwatchWriteHandle(h.writeFD)
		h.wantWriteReady = false
	}

	h.readFD = readFD
	if writeFD == 0 {
		writeFD = readFD
	}
	h.writeFD = writeFD
	h.closed = false

	if h.autostart || wasReadReady {
		if err := h.SetWantReadReady(true); err != nil {
			return err
		}
	}
	if h.autostart || wasWriteReady {
		if err := h.SetWantWriteReady(true); err != nil {
			return err
		}
	}
	return nil
}
