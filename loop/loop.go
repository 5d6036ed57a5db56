package loop

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
)

// Logger is the structured logger used for diagnostics the loop can't
// surface any other way: panics recovered from user callbacks, and
// poll-cycle errors that aren't returned to a caller.
type Logger = logiface.Logger[*stumpy.Event]

// Loop is a single-threaded cooperative reactor. The zero value is not
// usable; construct one with New.
type Loop struct {
	poller *poller

	timers     timerHeap
	timerIndex map[uint64]*timerEntry

	idle map[uint64]IdleFunc

	children map[int]*childWatcher

	signals map[os.Signal]*signalState

	pendingMu      sync.Mutex
	pendingSignals []pendingSignal

	uuidCounter atomic.Uint64

	stopStack []chan struct{}
	closed    bool

	logger *Logger

	// nowFunc is overridable by tests; defaults to time.Now.
	nowFunc func() time.Time
}

// Option configures a Loop at construction.
type Option func(*Loop)

// WithLogger overrides the structured logger used for recovered panics
// and poll errors. The default logs to stderr via stumpy.
func WithLogger(l *Logger) Option {
	return func(lo *Loop) { lo.logger = l }
}

// New constructs a Loop, creating the platform poller (epoll on Linux,
// kqueue on Darwin).
func New(opts ...Option) (*Loop, error) {
	p, err := newPoller()
	if err != nil {
		return nil, asyncipcerr.NewIOError("new_poller", err)
	}
	l := &Loop{
		poller:     p,
		timerIndex: make(map[uint64]*timerEntry),
		idle:       make(map[uint64]IdleFunc),
		children:   make(map[int]*childWatcher),
		signals:    make(map[os.Signal]*signalState),
		logger:     stumpy.L.New(),
		nowFunc:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// UUID returns a monotonically increasing id, distinct from any id
// minted by this Loop before. It is a plain counter, not a UUID string:
// this only promises per-process uniqueness.
func (l *Loop) UUID() uint64 {
	return l.uuidCounter.Add(1)
}

func (l *Loop) now() time.Time {
	return l.nowFunc()
}

// invokeCallback runs cb, recovering and logging any panic rather than
// letting it unwind out of the loop's dispatcher. Operations never raise
// from within the loop: user callbacks that throw are logged and do not
// abort the loop.
func (l *Loop) invokeCallback(cb func()) {
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Err().Any("panic", r).Log("callback panicked")
		}
	}()
	cb()
}

// Close releases the poller and any OS signal handlers. The Loop must
// not be running.
func (l *Loop) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	for sig, st := range l.signals {
		signal.Stop(st.ch)
		close(st.stop)
		delete(l.signals, sig)
	}
	return l.poller.Close()
}

// Once runs exactly one iteration of the loop: deliver ready signals and
// child exits, fire due timers, poll for fd readiness up to timeout (or
// block indefinitely if timeout < 0, or return immediately if
// timeout == 0), then drain idle callbacks. It may be called standalone,
// without Run, for manual pumping.
func (l *Loop) Once(timeout time.Duration) error {
	if l.closed {
		return ErrClosed
	}

	l.runSignals()
	l.runChildExits()

	now := l.now()
	next := l.runDueTimers(now)

	timeoutMs := durationToPollMs(timeout, next)
	if _, err := l.poller.Poll(timeoutMs); err != nil {
		if asyncipcerr.IsNonFatal(err) {
			return nil
		}
		return asyncipcerr.NewIOError("poll", err)
	}

	l.runIdle()
	return nil
}

func durationToPollMs(requested, nextTimer time.Duration) int {
	if requested < 0 {
		if nextTimer < 0 {
			return -1
		}
		return msCeil(nextTimer)
	}
	if nextTimer >= 0 && nextTimer < requested {
		return msCeil(nextTimer)
	}
	return msCeil(requested)
}

func msCeil(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return int(ms)
}

// Run drives the loop until Stop is called on the most recently installed
// stop signal. Nested calls to Run are supported: each push installs a
// fresh stop channel, and the corresponding Stop only releases that
// innermost Run.
func (l *Loop) Run() error {
	stop := make(chan struct{})
	l.stopStack = append(l.stopStack, stop)
	defer func() {
		l.stopStack = l.stopStack[:len(l.stopStack)-1]
	}()

	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := l.Once(50 * time.Millisecond); err != nil {
			return err
		}
	}
}

// RunAsync starts the loop on a background goroutine and returns
// immediately. cb, if non-nil, is invoked (on that goroutine) once Run
// returns.
func (l *Loop) RunAsync(cb func(error)) {
	go func() {
		err := l.Run()
		if cb != nil {
			cb(err)
		}
	}()
}

// Stop releases the innermost active Run call. It is a no-op if the loop
// isn't running.
func (l *Loop) Stop() {
	if len(l.stopStack) == 0 {
		return
	}
	stop := l.stopStack[len(l.stopStack)-1]
	select {
	case <-stop:
	default:
		close(stop)
	}
}
