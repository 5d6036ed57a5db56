// Package periodical implements the Periodical notifier: a small
// {stopped -> running -> stopped} state machine wrapping a single Loop
// timer.
package periodical

import (
	"time"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/notifier"
)

// TimeSpec selects how a one-shot fire via Once is scheduled.
type TimeSpec int

const (
	// SpecNone means no time_spec was given; only valid for Start, not Once.
	SpecNone TimeSpec = iota
	SpecAbs
	SpecRel
)

// Periodical wraps a Loop timer with start/stop/restart and abs/rel
// one-shot scheduling.
type Periodical struct {
	*notifier.Base

	l        *loop.Loop
	id       uint64
	interval time.Duration
	cb       loop.TimerFunc

	running bool

	lastSpec TimeSpec
	lastAt   time.Time
	lastRel  time.Duration
}

// New constructs a Periodical bound to l, with the given interval used
// by Start, and a unique name for notifier registration.
func New(l *loop.Loop, name string, interval time.Duration, cb loop.TimerFunc) (*Periodical, error) {
	base, err := notifier.New(l, notifier.Config{Type: "periodical", Name: name})
	if err != nil {
		return nil, err
	}
	return &Periodical{
		Base:     base,
		l:        l,
		id:       l.UUID(),
		interval: interval,
		cb:       cb,
	}, nil
}

// Start installs a periodic timer at interval. A no-op if already
// running.
func (p *Periodical) Start() error {
	if p.running {
		return nil
	}
	if err := p.l.WatchTime(p.id, p.cb, loop.Periodic(p.interval)); err != nil {
		return err
	}
	p.running = true
	p.lastSpec = SpecNone
	return nil
}

// Once fires once at the given abs time or after the given rel delay,
// self-clearing the running flag when it fires. spec must be SpecAbs or
// SpecRel.
func (p *Periodical) Once(spec TimeSpec, at time.Time, rel time.Duration) error {
	if spec != SpecAbs && spec != SpecRel {
		return asyncipcerr.NewUnspecified("time_spec")
	}
	if p.running {
		return nil
	}

	wrapped := func() {
		p.running = false
		p.cb()
	}

	var timerSpec loop.TimerSpec
	switch spec {
	case SpecAbs:
		timerSpec = loop.Abs(at)
	case SpecRel:
		timerSpec = loop.Rel(rel)
	}
	if err := p.l.WatchTime(p.id, wrapped, timerSpec); err != nil {
		return err
	}
	p.running = true
	p.lastSpec = spec
	p.lastAt = at
	p.lastRel = rel
	return nil
}

// Restart retrieves the current timer's callback, unwatches it, and
// re-arms with the same callback (and the same time_spec, if the
// current run was installed via Once).
func (p *Periodical) Restart() error {
	cb := p.l.UnwatchTime(p.id)
	p.running = false
	// A timer armed by Once holds a wrapper around p.cb, not p.cb
	// itself, so only a Start-armed timer's callback is adopted back.
	if cb != nil && p.lastSpec == SpecNone {
		p.cb = cb
	}

	if p.lastSpec == SpecNone {
		return p.Start()
	}
	return p.Once(p.lastSpec, p.lastAt, p.lastRel)
}

// Stop unwatches the timer, if running.
func (p *Periodical) Stop() {
	if !p.running {
		return
	}
	p.l.UnwatchTime(p.id)
	p.running = false
}

// Running reports whether the timer is currently armed.
func (p *Periodical) Running() bool { return p.running }

// Destroy implies Stop.
func (p *Periodical) Destroy() {
	p.Stop()
	p.Base.Destroy()
}
