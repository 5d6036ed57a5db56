package loop

import (
	"container/heap"
	"time"
)

// TimerFunc is invoked when a timer fires.
type TimerFunc func()

// IntervalMode selects how WatchTime interprets after/interval.
type IntervalMode int

const (
	// IntervalPeriodic fires repeatedly every `after`. This is the
	// "interval absent" case.
	IntervalPeriodic IntervalMode = iota
	// IntervalAbs treats `after` as an absolute wall-clock time and fires
	// once.
	IntervalAbs
	// IntervalRel fires once after the relative duration `after`.
	IntervalRel
	// IntervalOneShotThenPeriodic fires once after `after`, then
	// periodically at the separate `interval` duration.
	IntervalOneShotThenPeriodic
)

// TimerSpec describes a single watch_time registration.
type TimerSpec struct {
	Mode     IntervalMode
	After    time.Duration // relative delay; used by Periodic, Rel, OneShotThenPeriodic
	At       time.Time     // absolute fire time; used by Abs
	Interval time.Duration // repeat period; used by OneShotThenPeriodic
}

// Periodic builds a TimerSpec that fires every period ("interval
// absent" case).
func Periodic(period time.Duration) TimerSpec {
	return TimerSpec{Mode: IntervalPeriodic, After: period}
}

// Abs builds a one-shot TimerSpec firing at the given absolute time.
func Abs(at time.Time) TimerSpec {
	return TimerSpec{Mode: IntervalAbs, At: at}
}

// Rel builds a one-shot TimerSpec firing after the given relative delay.
func Rel(after time.Duration) TimerSpec {
	return TimerSpec{Mode: IntervalRel, After: after}
}

// OneShotThenPeriodic builds a TimerSpec that fires once after `after`,
// then repeats every `interval`.
func OneShotThenPeriodic(after, interval time.Duration) TimerSpec {
	return TimerSpec{Mode: IntervalOneShotThenPeriodic, After: after, Interval: interval}
}

type timerEntry struct {
	id        uint64
	when      time.Time
	repeat    time.Duration // 0 means one-shot
	cb        TimerFunc
	cancelled bool
	index     int // heap index, maintained by container/heap
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *timerHeap) Push(x any)         { e := x.(*timerEntry); e.index = len(*h); *h = append(*h, e) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// WatchTime installs a timer identified by id. Returns an error if id is
// already in use (I1: no two timers share an id).
func (l *Loop) WatchTime(id uint64, cb TimerFunc, spec TimerSpec) error {
	if _, exists := l.timerIndex[id]; exists {
		return l.newErrDuplicateTimer(id)
	}

	after := spec.After
	if after < 0 {
		after = 0
	}

	var when time.Time
	var repeat time.Duration
	switch spec.Mode {
	case IntervalAbs:
		when = spec.At
		if d := time.Until(when); d < 0 {
			when = l.now()
		}
	case IntervalRel:
		when = l.now().Add(after)
	case IntervalOneShotThenPeriodic:
		when = l.now().Add(after)
		repeat = spec.Interval
	default: // IntervalPeriodic
		when = l.now().Add(after)
		repeat = after
	}

	e := &timerEntry{id: id, when: when, repeat: repeat, cb: cb}
	l.timerIndex[id] = e
	heap.Push(&l.timers, e)
	return nil
}

// UnwatchTime cancels the timer and returns its callback, or nil if id
// was not being watched.
func (l *Loop) UnwatchTime(id uint64) TimerFunc {
	e, ok := l.timerIndex[id]
	if !ok {
		return nil
	}
	delete(l.timerIndex, id)
	e.cancelled = true
	if e.index >= 0 {
		heap.Remove(&l.timers, e.index)
	}
	return e.cb
}

// WatchingTime reports whether id is currently an active timer.
func (l *Loop) WatchingTime(id uint64) bool {
	_, ok := l.timerIndex[id]
	return ok
}

// runDueTimers pops and invokes every timer due at or before now,
// rescheduling periodic timers. Returns the duration until the next
// timer fires, or -1 if no timers remain.
func (l *Loop) runDueTimers(now time.Time) time.Duration {
	for len(l.timers) > 0 {
		next := l.timers[0]
		if next.when.After(now) {
			break
		}
		heap.Pop(&l.timers)
		if next.cancelled {
			continue
		}
		if next.repeat > 0 {
			next.when = now.Add(next.repeat)
			heap.Push(&l.timers, next)
		} else {
			delete(l.timerIndex, next.id)
		}
		l.invokeCallback(next.cb)
	}
	if len(l.timers) == 0 {
		return -1
	}
	return l.timers[0].when.Sub(now)
}
