// Package semaphore implements the Semaphore notifier: a thin
// specialisation of Routine whose single on_recv handler resets an
// external Lock keyed by the semaphore's identity and the caller's pid.
//
// Like package routine, this carries self-reexec's constraint into its
// own API: a semaphore type's Lock and identity must be registered via
// RegisterType from an init() function (reachable, and identical, in
// every process execution — parent and re-exec'd child alike), not
// captured ad hoc inside New, which only the parent ever runs.
package semaphore

import (
	"context"
	"os"
	"sync"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/builder"
	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/routine"
)

var (
	mu    sync.Mutex
	types = map[string]registeredType{}
)

type registeredType struct {
	identity string
	lock     builder.Lock
}

func workerTypeFor(name string) string { return "semaphore:" + name }

// RegisterType associates name with lock (keyed by identity, defaulting
// to name) and registers the matching routine worker type so a
// re-exec'd child can find its handler. Call this from an init(),
// exactly as routine.RegisterWorker requires.
func RegisterType(name string, identity string, lock builder.Lock) {
	if identity == "" {
		identity = name
	}

	mu.Lock()
	types[name] = registeredType{identity: identity, lock: lock}
	mu.Unlock()

	handler := func(args []any) (any, error) {
		// Semaphore's call frame is [identity, pid] — identity stands in
		// for the generic call-id slot (call(identity, pid)), so pid is
		// args[1], not the args[2] a call-id-then-args frame would use.
		var pid int
		if len(args) > 1 {
			pid, _ = args[1].(int)
		}
		return nil, lock.Reset(context.Background(), identity, pid)
	}

	routine.RegisterWorker(workerTypeFor(name), routine.WorkerSpec{
		Handlers: []routine.Handler{handler},
	})
}

func lookupType(name string) (registeredType, bool) {
	mu.Lock()
	defer mu.Unlock()
	rt, ok := types[name]
	return rt, ok
}

// Config supplies Semaphore's construction-time fields.
type Config struct {
	Name string

	Debug   bool
	TempDir string
}

// Semaphore wraps a single-handler Routine whose child process resets
// its registered Lock on every call, and whose parent-side Raise
// attempts to acquire that Lock before making that call.
type Semaphore struct {
	*routine.Routine

	identity string
	lock     builder.Lock
}

// New constructs a Semaphore bound to l, using the type previously
// passed to RegisterType under cfg.Name.
func New(l *loop.Loop, cfg Config) (*Semaphore, error) {
	rt, ok := lookupType(cfg.Name)
	if !ok {
		return nil, asyncipcerr.NewUnspecified("semaphore_type")
	}

	r, err := routine.New(l, routine.Config{
		Name:       cfg.Name,
		WorkerType: workerTypeFor(cfg.Name),
		Debug:      cfg.Debug,
		TempDir:    cfg.TempDir,
	})
	if err != nil {
		return nil, err
	}

	return &Semaphore{Routine: r, identity: rt.identity, lock: rt.lock}, nil
}

// Raise attempts to acquire the Lock for this semaphore's identity; on
// success it makes one call(identity, pid) to the worker, which will
// reset the Lock once it processes that call. Returns true unless
// acquiring or calling genuinely failed — a contended Lock is not an
// error: it simply returns true without calling.
func (s *Semaphore) Raise() (bool, error) {
	ok, err := s.lock.Set(context.Background(), s.identity, true)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return s.Call(s.identity, os.Getpid()), nil
}

// Close stops the underlying Routine and defensively resets the Lock,
// logging (not raising) on failure.
func (s *Semaphore) Close() error {
	err := s.Stop()
	if rerr := s.lock.Reset(context.Background(), s.identity, os.Getpid()); rerr != nil {
		defaultLogger.Err().Str("identity", s.identity).Err(rerr).Log("semaphore defensive lock reset failed")
	}
	return err
}
