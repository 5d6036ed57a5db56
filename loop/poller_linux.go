//go:build linux

package loop

import (
	"golang.org/x/sys/unix"
)

// maxTrackedFDs bounds the direct-index table the poller uses to avoid a
// map lookup on the hot dispatch path. This poller is only ever touched
// from the Loop's single driving goroutine, so it needs no locking.
const maxTrackedFDs = 65536

// ioEvents is a bitmask of readiness conditions reported by the poller,
// translated from the raw epoll event flags so Poll's dispatch logic
// doesn't need to know the backend's native constants.
type ioEvents uint32

const (
	eventRead ioEvents = 1 << iota
	eventWrite
	eventError
	eventHangup
)

// ioEventsFromEpoll translates a raw epoll Events field into ioEvents.
func ioEventsFromEpoll(raw uint32) ioEvents {
	var e ioEvents
	if raw&unix.EPOLLIN != 0 {
		e |= eventRead
	}
	if raw&unix.EPOLLOUT != 0 {
		e |= eventWrite
	}
	if raw&unix.EPOLLERR != 0 {
		e |= eventError
	}
	if raw&unix.EPOLLHUP != 0 {
		e |= eventHangup
	}
	return e
}

type fdRegistration struct {
	onRead  func()
	onWrite func()
	active  bool
}

// poller wraps an epoll instance, dispatching readiness inline to the
// registered per-fd callbacks. Registration is additive per direction:
// RegisterRead and RegisterWrite are independent so Stream's four
// want-readiness flags can each toggle one side without disturbing the
// other.
type poller struct {
	epfd     int
	fds      [maxTrackedFDs]fdRegistration
	eventBuf [256]unix.EpollEvent
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &poller{epfd: epfd}, nil
}

func (p *poller) Close() error {
	return unix.Close(p.epfd)
}

func (p *poller) epollMask(fd int) uint32 {
	reg := p.fds[fd]
	var mask uint32
	if reg.onRead != nil {
		mask |= unix.EPOLLIN
	}
	if reg.onWrite != nil {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// RegisterRead arms read readiness on fd, invoking cb (with no arguments)
// each time the fd becomes readable, until UnregisterRead is called.
func (p *poller) RegisterRead(fd int, cb func()) error {
	return p.register(fd, true, cb)
}

// RegisterWrite arms write readiness on fd.
func (p *poller) RegisterWrite(fd int, cb func()) error {
	return p.register(fd, false, cb)
}

func (p *poller) register(fd int, read bool, cb func()) error {
	if fd < 0 || fd >= maxTrackedFDs {
		return ErrFDOutOfRange
	}
	reg := &p.fds[fd]
	firstForFD := !reg.active
	if read {
		if reg.onRead != nil {
			return ErrFDAlreadyWatched
		}
		reg.onRead = cb
	} else {
		if reg.onWrite != nil {
			return ErrFDAlreadyWatched
		}
		reg.onWrite = cb
	}
	reg.active = true
	ev := &unix.EpollEvent{Events: p.epollMask(fd), Fd: int32(fd)}
	if firstForFD {
		return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev)
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

// UnregisterRead disarms read readiness on fd.
func (p *poller) UnregisterRead(fd int) error { return p.unregister(fd, true) }

// UnregisterWrite disarms write readiness on fd.
func (p *poller) UnregisterWrite(fd int) error { return p.unregister(fd, false) }

func (p *poller) unregister(fd int, read bool) error {
	if fd < 0 || fd >= maxTrackedFDs {
		return ErrFDOutOfRange
	}
	reg := &p.fds[fd]
	if read {
		if reg.onRead == nil {
			return ErrFDNotWatched
		}
		reg.onRead = nil
	} else {
		if reg.onWrite == nil {
			return ErrFDNotWatched
		}
		reg.onWrite = nil
	}
	if reg.onRead == nil && reg.onWrite == nil {
		reg.active = false
		return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	}
	ev := &unix.EpollEvent{Events: p.epollMask(fd), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev)
}

// Poll waits up to timeoutMs (negative blocks indefinitely, 0 returns
// immediately) for readiness, dispatching callbacks inline. Returns the
// number of fds with dispatched events.
func (p *poller) Poll(timeoutMs int) (int, error) {
	n, err := unix.EpollWait(p.epfd, p.eventBuf[:], timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		fd := int(p.eventBuf[i].Fd)
		if fd < 0 || fd >= maxTrackedFDs {
			continue
		}
		reg := p.fds[fd]
		flags := ioEventsFromEpoll(p.eventBuf[i].Events)
		if flags&(eventRead|eventHangup|eventError) != 0 && reg.onRead != nil {
			reg.onRead()
		}
		if flags&(eventWrite|eventError) != 0 && reg.onWrite != nil {
			reg.onWrite()
		}
	}
	return n, nil
}
