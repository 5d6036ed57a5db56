package loop

// WatchReadHandle arms read readiness for fd, invoking cb each time it
// becomes readable. Readiness is level-triggered, not edge-triggered:
// cb fires again on the next poll if fd is still readable.
func (l *Loop) WatchReadHandle(fd int, cb func()) error {
	return l.poller.RegisterRead(fd, func() { l.invokeCallback(cb) })
}

// WatchWriteHandle arms write readiness for fd.
func (l *Loop) WatchWriteHandle(fd int, cb func()) error {
	return l.poller.RegisterWrite(fd, func() { l.invokeCallback(cb) })
}

// UnwatchReadHandle disarms read readiness for fd.
func (l *Loop) UnwatchReadHandle(fd int) error {
	return l.poller.UnregisterRead(fd)
}

// UnwatchWriteHandle disarms write readiness for fd.
func (l *Loop) UnwatchWriteHandle(fd int) error {
	return l.poller.UnregisterWrite(fd)
}
