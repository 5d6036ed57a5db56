// Package routine implements the Routine notifier: a Process plus one
// or more Channels, driving either a synchronous recv-compute-reply loop
// or an asynchronous nested event loop in the child, composed by wiring
// a re-exec'd command to a pair of channels plus an exit watcher.
//
// Go's self-reexec has no shared memory between parent and child (see
// package process's doc comment): a worker's Handlers/Before/After must
// therefore be registered under a stable name from an init() function
// (RegisterWorker), reachable in every process before main() calls
// process.MaybeReexec, rather than captured as ad-hoc closures when a
// Routine is constructed at runtime. Config then just names which
// registered WorkerType a given Routine instance runs.
package routine

import (
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/channel"
	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/notifier"
	"github.com/joeycumines/go-asyncipc/process"
)

// Handler is one on_recv callback: it receives the call frame (element
// 0 is always the call id) and returns a value to send back on every
// return channel, paired with that same call id.
type Handler func(args []any) (any, error)

// WorkerSpec describes the child-side behavior of one worker type: the
// on_recv handlers (one per call channel), whether return channels are
// opened, and the optional async nested-loop hooks.
type WorkerSpec struct {
	// Handlers is one entry per call channel. More than one handler
	// forces async call-channel mode.
	Handlers []Handler

	// Returns, when true, opens one return channel child->parent per
	// call channel.
	Returns bool

	// Async forces async call-channel mode even with a single handler.
	Async bool

	MaxCalls int

	Before func()
	After  func()
}

var (
	specMu sync.Mutex
	specs  = map[string]WorkerSpec{}
)

func closureNameFor(workerType string) string { return "routine:" + workerType }

// RegisterWorker associates workerType with spec, and registers the
// matching re-exec closure with package process so a freshly re-exec'd
// child — which starts from this same init()-time call, not from
// whatever runtime call graph constructed a Routine in the parent —
// can find it. Call this from an init() in any package that defines
// routine worker types, before main() calls process.MaybeReexec.
func RegisterWorker(workerType string, spec WorkerSpec) {
	specMu.Lock()
	specs[workerType] = spec
	specMu.Unlock()

	async := spec.Async || len(spec.Handlers) > 1
	cfg := childConfig{
		handlers: spec.Handlers,
		returns:  spec.Returns,
		maxCalls: spec.MaxCalls,
		before:   spec.Before,
		after:    spec.After,
		async:    async,
	}
	process.Register(closureNameFor(workerType), func() { runChild(cfg) })
}

func lookupSpec(workerType string) (WorkerSpec, bool) {
	specMu.Lock()
	defer specMu.Unlock()
	spec, ok := specs[workerType]
	return spec, ok
}

// Config supplies Routine's construction-time fields.
type Config struct {
	Name string

	// WorkerType names a spec previously passed to RegisterWorker.
	WorkerType string

	OnReturn func(callID any, result any)

	// OnExit, when set, is invoked once the child process has been
	// reaped, letting a caller (e.g. package pool) notice a worker died
	// and remove it from whatever collection holds it.
	OnExit func(pid, status int)

	Debug   bool
	TempDir string
}

// Routine composes a Process with its call/return Channels.
type Routine struct {
	*notifier.Base

	l   *loop.Loop
	cfg Config

	proc *process.Process

	callCh []*channel.Channel // parent-side, write
	retCh  []*channel.Channel // parent-side, read (async)

	running bool
}

// isFalsy reports whether v is the zero value for its dynamic type, or
// nil — the "falsy" test used to decide whether Call should stamp a
// fresh call id.
func isFalsy(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case int:
		return t == 0
	}
	return false
}

// New constructs a Routine bound to l: it creates one socketpair (call
// channel) and, if the registered spec's Returns is set, a second
// (return channel) per handler, then builds the parent-side Process and
// Channels. It does not start anything; call Start. Raises (returns an
// error) if cfg.WorkerType was never passed to RegisterWorker, or the
// worker spec has no handlers.
func New(l *loop.Loop, cfg Config) (*Routine, error) {
	spec, ok := lookupSpec(cfg.WorkerType)
	if !ok || len(spec.Handlers) == 0 {
		return nil, asyncipcerr.NewUnspecified("on_recv")
	}
	base, err := notifier.New(l, notifier.Config{Type: "routine", Name: cfg.Name})
	if err != nil {
		return nil, err
	}

	r := &Routine{Base: base, l: l, cfg: cfg}

	var extraFiles []*os.File
	var closeOnErr []*os.File
	defer func() {
		for _, f := range closeOnErr {
			f.Close()
		}
	}()

	for i := range spec.Handlers {
		parentFD, childFD, err := channel.Socketpair()
		if err != nil {
			return nil, err
		}
		childFile := os.NewFile(uintptr(childFD), "call-child")
		closeOnErr = append(closeOnErr, childFile)

		cc, err := channel.New(l, channel.Config{Name: cfg.Name + ".call." + strconv.Itoa(i), FD: parentFD, WriteMode: channel.Async})
		if err != nil {
			return nil, err
		}
		r.callCh = append(r.callCh, cc)
		extraFiles = append(extraFiles, childFile)

		if spec.Returns {
			childRetFD, parentRetFD, err := channel.Socketpair()
			if err != nil {
				return nil, err
			}
			childRetFile := os.NewFile(uintptr(childRetFD), "return-child")
			closeOnErr = append(closeOnErr, childRetFile)

			rc, err := channel.New(l, channel.Config{
				Name: cfg.Name + ".return." + strconv.Itoa(i), FD: parentRetFD, ReadMode: channel.Async,
				OnRecv: r.onReturn,
			})
			if err != nil {
				return nil, err
			}
			r.retCh = append(r.retCh, rc)
			extraFiles = append(extraFiles, childRetFile)
		}
	}

	proc, err := process.New(l, process.Config{
		Name:       cfg.Name + ".proc",
		Kind:       process.CodeClosure,
		Closure:    closureNameFor(cfg.WorkerType),
		ExtraFiles: extraFiles,
		Debug:      cfg.Debug,
		TempDir:    cfg.TempDir,
		OnExit:     cfg.OnExit,
	})
	if err != nil {
		return nil, err
	}
	r.proc = proc

	closeOnErr = nil // ownership now held by ExtraFiles / Channels
	return r, nil
}

func (r *Routine) onReturn(rec channel.Record) {
	if len(rec) < 2 || r.cfg.OnReturn == nil {
		return
	}
	r.cfg.OnReturn(rec[0], rec[1])
}

// Start starts the Process and, implicitly, the parent-side channel
// watches installed at construction.
func (r *Routine) Start() error {
	if r.running {
		return nil
	}
	if err := r.proc.Start(); err != nil {
		return err
	}
	r.running = true
	return nil
}

// Stop stops the Process and closes the parent-side channels.
func (r *Routine) Stop() error {
	if !r.running {
		return nil
	}
	r.running = false
	err := r.proc.Stop()
	for _, c := range r.callCh {
		c.Close()
	}
	for _, c := range r.retCh {
		c.Close()
	}
	return err
}

// Call enqueues args on call channel 0. Returns false without side
// effect if the Routine isn't running.
func (r *Routine) Call(args ...any) bool {
	return r.CallChannel(0, args...)
}

// CallChannel enqueues args on call channel i, stamping a fresh call id
// as args[0] if it is falsy (nil, "", or 0).
func (r *Routine) CallChannel(i int, args ...any) bool {
	if !r.running || i < 0 || i >= len(r.callCh) {
		return false
	}
	if len(args) == 0 {
		args = []any{uuid.NewString()}
	} else if isFalsy(args[0]) {
		args[0] = uuid.NewString()
	}
	return r.callCh[i].Send(args) == nil
}

// Running reports whether the Routine has been started.
func (r *Routine) Running() bool { return r.running }
