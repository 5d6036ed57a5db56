package loop

// IdleFunc runs once the current batch of events has drained.
type IdleFunc func()

// WatchIdle schedules cb to run after the current batch of events has
// drained. The entry is removed before cb executes, guaranteeing
// one-shot semantics even if cb re-registers the same id.
func (l *Loop) WatchIdle(id uint64, cb IdleFunc) {
	l.idle[id] = cb
}

// UnwatchIdle cancels a pending idle callback, returning true if one was
// removed.
func (l *Loop) UnwatchIdle(id uint64) bool {
	_, ok := l.idle[id]
	delete(l.idle, id)
	return ok
}

// runIdle drains and invokes every currently-pending idle callback. Each
// entry is removed from the map before invocation so a handler that
// re-registers under the same id is not immediately re-entered within
// this drain.
func (l *Loop) runIdle() {
	if len(l.idle) == 0 {
		return
	}
	batch := l.idle
	l.idle = make(map[uint64]IdleFunc, len(batch))
	for _, cb := range batch {
		l.invokeCallback(cb)
	}
}
