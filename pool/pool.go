// Package pool implements the Function (Pool) notifier: a bounded
// collection of Routines, dispatched round-robin, created on demand and
// respawned automatically when a worker's process exits.
package pool

import (
	"strconv"
	"sync"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/notifier"
	"github.com/joeycumines/go-asyncipc/routine"
)

// Config supplies Pool's construction-time fields.
type Config struct {
	Name string

	// WorkerType names a spec previously passed to routine.RegisterWorker;
	// every worker in the pool runs this type.
	WorkerType string

	MaxWorkers int

	// OnReturn is invoked with the worker index, call id and result
	// whenever any worker's return channel fires.
	OnReturn func(workerIndex int, callID any, result any)

	Debug   bool
	TempDir string
}

// Pool is the round-robin Routine collection.
type Pool struct {
	*notifier.Base

	l   *loop.Loop
	cfg Config

	mu      sync.Mutex
	workers map[int]*routine.Routine
}

// cursors holds the per-pool-name round-robin cursor. It is keyed by
// pool name rather than by *Pool so that a pool recreated under the
// same name (e.g. after Close then New) resumes where the last
// instance left off: the cursor stays stable across destroys.
var (
	cursorMu sync.Mutex
	cursors  = map[string]int{}
)

// New constructs a Pool bound to l. It does not create any workers;
// they are built on first use by Call.
func New(l *loop.Loop, cfg Config) (*Pool, error) {
	if cfg.MaxWorkers <= 0 {
		return nil, asyncipcerr.NewUnspecified("max_workers")
	}
	base, err := notifier.New(l, notifier.Config{Type: "pool", Name: cfg.Name})
	if err != nil {
		return nil, err
	}
	return &Pool{
		Base:    base,
		l:       l,
		cfg:     cfg,
		workers: map[int]*routine.Routine{},
	}, nil
}

func workerName(poolName string, i int) string {
	return poolName + "." + strconv.Itoa(i)
}

// nextIndex advances and returns the pool's shared cursor, mod
// MaxWorkers.
func (p *Pool) nextIndex() int {
	cursorMu.Lock()
	defer cursorMu.Unlock()
	i := cursors[p.cfg.Name] % p.cfg.MaxWorkers
	cursors[p.cfg.Name] = (i + 1) % p.cfg.MaxWorkers
	return i
}

// worker returns the Routine at slot i, constructing and starting one
// on demand if the slot is empty.
func (p *Pool) worker(i int) *routine.Routine {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.workers[i]; ok {
		return w
	}

	idx := i
	w, err := routine.New(p.l, routine.Config{
		Name:       workerName(p.cfg.Name, i),
		WorkerType: p.cfg.WorkerType,
		Debug:      p.cfg.Debug,
		TempDir:    p.cfg.TempDir,
		OnReturn: func(callID, result any) {
			if p.cfg.OnReturn != nil {
				p.cfg.OnReturn(idx, callID, result)
			}
		},
		OnExit: func(int, int) { p.removeWorker(idx) },
	})
	if err != nil {
		defaultLogger.Err().Err(err).Str("worker", workerName(p.cfg.Name, i)).Log("pool failed to build worker")
		return nil
	}
	if err := w.Start(); err != nil {
		defaultLogger.Err().Err(err).Str("worker", workerName(p.cfg.Name, i)).Log("pool failed to start worker")
		return nil
	}

	p.workers[i] = w
	return w
}

// removeWorker drops slot i from the worker map once its process has
// exited, so the next Call to that slot respawns a fresh worker.
func (p *Pool) removeWorker(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.workers, i)
}

// Call selects the next worker round-robin and forwards args to it,
// creating the worker on demand.
func (p *Pool) Call(args ...any) bool {
	i := p.nextIndex()
	w := p.worker(i)
	if w == nil {
		return false
	}
	return w.Call(args...)
}

// Stop stops every currently live worker but leaves the cursor and
// pool map state in place.
func (p *Pool) Stop() {
	p.mu.Lock()
	workers := make([]*routine.Routine, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
}

// Close stops all workers and releases the pool's notifier registration.
// The round-robin cursor for cfg.Name is deliberately left in the
// package-level cursors map: it stays stable across destroys, so a pool
// later reconstructed under the same Name resumes from where this
// instance left off rather than always hitting slot 0 first.
func (p *Pool) Close() {
	p.Stop()
	p.Base.Destroy()
}

// Workers returns the number of currently live (non-empty) slots.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}
