//go:build darwin

package loop

import (
	"golang.org/x/sys/unix"
)

const maxTrackedFDs = 65536

// ioEvents is a bitmask of readiness conditions reported by the poller,
// translated from the raw kqueue filter/flags pair so Poll's dispatch
// logic doesn't need to know the backend's native constants.
type ioEvents uint32

const (
	eventRead ioEvents = 1 << iota
	eventWrite
	eventError
	eventHangup
)

// ioEventsFromKevent translates one kqueue event into ioEvents.
func ioEventsFromKevent(ev *unix.Kevent_t) ioEvents {
	var e ioEvents
	switch ev.Filter {
	case unix.EVFILT_READ:
		e |= eventRead
	case unix.EVFILT_WRITE:
		e |= eventWrite
	}
	if ev.Flags&unix.EV_EOF != 0 {
		e |= eventHangup
	}
	if ev.Flags&unix.EV_ERROR != 0 {
		e |= eventError
	}
	return e
}

type fdRegistration struct {
	onRead  func()
	onWrite func()
	active  bool
}

// poller wraps a kqueue instance, mirroring loop/poller_linux.go's API so
// Loop's platform-independent code never branches on OS.
type poller struct {
	kq       int
	fds      [maxTrackedFDs]fdRegistration
	eventBuf [256]unix.Kevent_t
}

func newPoller() (*poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &poller{kq: kq}, nil
}

func (p *poller) Close() error {
	return unix.Close(p.kq)
}

func (p *poller) apply(fd int, filter int16, flags uint16) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (p *poller) RegisterRead(fd int, cb func()) error {
	if fd < 0 || fd >= maxTrackedFDs {
		return ErrFDOutOfRange
	}
	reg := &p.fds[fd]
	if reg.onRead != nil {
		return ErrFDAlreadyWatched
	}
	if err := p.apply(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE); err != nil {
		return err
	}
	reg.onRead = cb
	reg.active = true
	return nil
}

func (p *poller) RegisterWrite(fd int, cb func()) error {
	if fd < 0 || fd >= maxTrackedFDs {
		return ErrFDOutOfRange
	}
	reg := &p.fds[fd]
	if reg.onWrite != nil {
		return ErrFDAlreadyWatched
	}
	if err := p.apply(fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE); err != nil {
		return err
	}
	reg.onWrite = cb
	reg.active = true
	return nil
}

func (p *poller) UnregisterRead(fd int) error {
	if fd < 0 || fd >= maxTrackedFDs {
		return ErrFDOutOfRange
	}
	reg := &p.fds[fd]
	if reg.onRead == nil {
		return ErrFDNotWatched
	}
	reg.onRead = nil
	if reg.onWrite == nil {
		reg.active = false
	}
	return p.apply(fd, unix.EVFILT_READ, unix.EV_DELETE)
}

func (p *poller) UnregisterWrite(fd int) error {
	if fd < 0 || fd >= maxTrackedFDs {
		return ErrFDOutOfRange
	}
	reg := &p.fds[fd]
	if reg.onWrite == nil {
		return ErrFDNotWatched
	}
	reg.onWrite = nil
	if reg.onRead == nil {
		reg.active = false
	}
	return p.apply(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
}

// Poll waits up to timeoutMs for readiness, dispatching callbacks inline.
func (p *poller) Poll(timeoutMs int) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}
	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Ident)
		if fd < 0 || fd >= maxTrackedFDs {
			continue
		}
		reg := p.fds[fd]
		flags := ioEventsFromKevent(&p.eventBuf[i])
		if flags&eventRead != 0 && reg.onRead != nil {
			reg.onRead()
		}
		if flags&eventWrite != 0 && reg.onWrite != nil {
			reg.onWrite()
		}
	}
	return n, nil
}
