// Package builder implements the external collaborator contract: the
// thing a Factory injects into every notifier for temp-dir/pathname
// configuration, debug gating, cross-process locking, structured
// logging, and spawning external commands. This is deliberately kept
// external to the core (the factory façade and config-object injection
// are not core concerns), so this package is a reference implementation
// a caller may swap out, not a fixture the rest of the module depends on
// internally.
package builder

import (
	"context"
	"os"
	"os/exec"
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Config carries the small bag of construction-time settings the
// Builder contract requires.
type Config struct {
	TempDir  string
	Pathname string
}

// Lock is the cross-process/external-coordination dependency Semaphore
// wraps: Set attempts to acquire key, Reset releases it.
type Lock interface {
	Set(ctx context.Context, key string, async bool) (bool, error)
	Reset(ctx context.Context, key string, pid int) error
}

// Builder is the external collaborator interface every notifier
// requires: config, debug gating, the Lock dependency, a type-erased
// structured logger, and a RunCmd hook for spawning external commands (distinct
// from package process's self-reexec Routine children — RunCmd is for
// arbitrary one-off external tools a Builder-aware caller needs).
type Builder interface {
	Config() Config
	Debug() bool
	Lock() Lock
	Log() *logiface.Logger[logiface.Event]
	RunCmd(ctx context.Context, cmd *exec.Cmd) (*os.Process, error)
}

// defaultBuilder is the reference Builder implementation: an in-memory
// Lock (sufficient for single-process coordination/tests; a real
// cross-host deployment would back Lock with flock(2) or an external
// lock service) plus stumpy-backed logging and plain os/exec spawning.
type defaultBuilder struct {
	cfg   Config
	debug bool
	lock  Lock
	log   *logiface.Logger[*stumpy.Event]
}

// New constructs the reference Builder.
func New(cfg Config, debug bool) Builder {
	return &defaultBuilder{
		cfg:   cfg,
		debug: debug,
		lock:  NewMemoryLock(),
		log:   stumpy.L.New(),
	}
}

func (b *defaultBuilder) Config() Config { return b.cfg }
func (b *defaultBuilder) Debug() bool    { return b.debug }
func (b *defaultBuilder) Lock() Lock     { return b.lock }
func (b *defaultBuilder) Log() *logiface.Logger[logiface.Event] {
	return b.log.Logger()
}

// RunCmd starts cmd and returns its *os.Process; it does not wait for
// completion, matching "run_cmd(cmd, opts) -> handle-with-pid".
func (b *defaultBuilder) RunCmd(_ context.Context, cmd *exec.Cmd) (*os.Process, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd.Process, nil
}

// memoryLock is an in-process Lock: a set of held keys guarded by a
// mutex. Set(async=true) never blocks, matching the only mode
// Semaphore.raise uses.
type memoryLock struct {
	mu   sync.Mutex
	held map[string]int // key -> holder pid
}

// NewMemoryLock constructs an in-process Lock suitable for single-host
// coordination and tests.
func NewMemoryLock() Lock {
	return &memoryLock{held: map[string]int{}}
}

func (l *memoryLock) Set(_ context.Context, key string, _ bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return false, nil
	}
	l.held[key] = os.Getpid()
	return true, nil
}

func (l *memoryLock) Reset(_ context.Context, key string, _ int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
