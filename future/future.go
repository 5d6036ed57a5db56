// Package future implements the loop-bound promise described in spec
// 4.3: a value that settles exactly once, driven by a single owning
// Loop rather than a general-purpose scheduler.
package future

import (
	"sync"
	"time"

	"github.com/joeycumines/go-asyncipc/loop"
)

// State is the lifecycle of a Future.
type State int

const (
	Pending State = iota
	Done
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ReadyFunc is invoked when a Future settles successfully.
type ReadyFunc func(values ...any)

// CancelFunc is invoked when a Future is cancelled.
type CancelFunc func()

// Future is a loop-bound promise: Await drives the owning Loop via Once
// until the Future settles, rather than blocking on an independent
// runtime.
type Future struct {
	l *loop.Loop

	mu      sync.Mutex
	state   State
	values  []any
	err     error
	details []any

	onReady  []ReadyFunc
	onCancel []CancelFunc
	onSettle []SettleFunc

	cancelCB func()
}

// SettleFunc is invoked exactly once, however the Future settles.
type SettleFunc func(state State)

// New constructs a pending Future bound to l. cancelCB, if non-nil, runs
// when Cancel is called on a still-pending Future, before onCancel
// handlers fire.
func New(l *loop.Loop, cancelCB func()) *Future {
	return &Future{l: l, cancelCB: cancelCB}
}

// State returns the current lifecycle state.
func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done settles the Future successfully with values, if still pending.
func (f *Future) Done(values ...any) {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.state = Done
	f.values = values
	handlers := f.onReady
	settle := f.onSettle
	f.onReady = nil
	f.onCancel = nil
	f.onSettle = nil
	f.mu.Unlock()

	for _, h := range handlers {
		h(values...)
	}
	for _, h := range settle {
		h(Done)
	}
}

// Fail settles the Future as failed with err and optional details, if
// still pending.
func (f *Future) Fail(err error, details ...any) {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.state = Failed
	f.err = err
	f.details = details
	settle := f.onSettle
	f.onReady = nil
	f.onCancel = nil
	f.onSettle = nil
	f.mu.Unlock()

	for _, h := range settle {
		h(Failed)
	}
}

// Cancel transitions a pending Future to Cancelled, running the
// construction-time cancel callback (if any) then every registered
// OnCancel handler. A no-op if already settled.
func (f *Future) Cancel() {
	f.mu.Lock()
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.state = Cancelled
	handlers := f.onCancel
	settle := f.onSettle
	f.onReady = nil
	f.onCancel = nil
	f.onSettle = nil
	cb := f.cancelCB
	f.mu.Unlock()

	if cb != nil {
		cb()
	}
	for _, h := range handlers {
		h()
	}
	for _, h := range settle {
		h(Cancelled)
	}
}

// Err returns the failure reason, or nil if the Future didn't fail.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Details returns any extra failure details passed to Fail.
func (f *Future) Details() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details
}

// Values returns the values passed to Done.
func (f *Future) Values() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

// OnSettle registers cb to run once the Future reaches any terminal
// state (Done, Failed, or Cancelled). Used internally by adopt_future to
// observe failures, since Fail has no dedicated notification hook of its
// own.
func (f *Future) OnSettle(cb SettleFunc) {
	f.mu.Lock()
	state := f.state
	if state == Pending {
		f.onSettle = append(f.onSettle, cb)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	cb(state)
}

// OnReady registers cb to run when the Future settles with Done. If
// already Done, cb runs immediately with the existing values.
func (f *Future) OnReady(cb ReadyFunc) {
	f.mu.Lock()
	if f.state == Done {
		values := f.values
		f.mu.Unlock()
		cb(values...)
		return
	}
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.onReady = append(f.onReady, cb)
	f.mu.Unlock()
}

// OnCancel registers cb to run if the Future is cancelled. If already
// cancelled, cb runs immediately.
func (f *Future) OnCancel(cb CancelFunc) {
	f.mu.Lock()
	if f.state == Cancelled {
		f.mu.Unlock()
		cb()
		return
	}
	if f.state != Pending {
		f.mu.Unlock()
		return
	}
	f.onCancel = append(f.onCancel, cb)
	f.mu.Unlock()
}

// Await drives the owning Loop via Once until the Future settles, or
// timeout elapses (timeout < 0 means wait indefinitely). Returns the
// done values, or an error: the Fail reason, or a deadline-exceeded
// error on timeout.
func (f *Future) Await(timeout time.Duration) ([]any, error) {
	var deadline time.Time
	hasDeadline := timeout >= 0
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		switch f.State() {
		case Done:
			return f.Values(), nil
		case Failed:
			return nil, f.Err()
		case Cancelled:
			return nil, ErrCancelled
		}

		remaining := time.Duration(-1)
		if hasDeadline {
			remaining = time.Until(deadline)
			if remaining <= 0 {
				return nil, ErrTimeout
			}
		}
		if err := f.l.Once(minDuration(remaining, 20*time.Millisecond)); err != nil {
			return nil, err
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < 0 {
		return b
	}
	if a < b {
		return a
	}
	return b
}

// DoneLater schedules Done(values...) to run on the next loop tick via
// the owning Loop's idle hook, rather than settling synchronously.
func (f *Future) DoneLater(values ...any) {
	id := f.l.UUID()
	f.l.WatchIdle(id, func() { f.Done(values...) })
}

// FailLater schedules Fail(err, details...) to run on the next loop
// tick. A no-op if err is nil.
func (f *Future) FailLater(err error, details ...any) {
	if err == nil {
		return
	}
	id := f.l.UUID()
	f.l.WatchIdle(id, func() { f.Fail(err, details...) })
}
