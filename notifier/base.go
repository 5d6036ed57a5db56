// Package notifier implements the common lifecycle shared by every
// reactive object in go-asyncipc: unique (type,name) registration,
// weak-self callback capture, event dispatch, future adoption, and
// error routing to an optional handler.
package notifier

import (
	"sync"
	"weak"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
	"github.com/joeycumines/go-asyncipc/future"
	"github.com/joeycumines/go-asyncipc/loop"
)

// EventHandler is one named event handler a Base dispatches to.
type EventHandler func(args ...any)

// ErrorHandler receives errors routed through invoke_error or a failed
// adopted future.
type ErrorHandler func(msg string, kind string, details ...any)

// Base is embedded by every notifier type. It is not itself a usable
// notifier; concrete types embed it and register their event handlers.
type Base struct {
	mu sync.Mutex

	typ  string
	name string
	desc string
	pid  int

	autostart bool

	loopRef weak.Pointer[loop.Loop]

	events map[string]EventHandler

	futures map[string]*future.Future

	onError ErrorHandler

	destroyed bool
}

// Config supplies Base's construction-time fields. Name is mandatory and
// must be unique within Type among live notifiers; Destroy (or garbage
// collection of the Base) releases the name for reuse.
type Config struct {
	Type        string
	Name        string
	Description string
	PID         int
	Autostart   bool
	OnError     ErrorHandler
}

// New constructs a Base bound to l, registering (Type,Name) in the
// process-wide registry. It fails with NotifierIDNotUnique if a live
// entry for that pair already exists.
func New(l *loop.Loop, cfg Config) (*Base, error) {
	if cfg.Name == "" {
		return nil, asyncipcerr.NewUnspecified("name")
	}
	if cfg.Type == "" {
		return nil, asyncipcerr.NewUnspecified("type")
	}
	if err := globalRegistry.register(cfg.Type, cfg.Name); err != nil {
		return nil, err
	}
	b := &Base{
		typ:       cfg.Type,
		name:      cfg.Name,
		desc:      cfg.Description,
		pid:       cfg.PID,
		autostart: cfg.Autostart,
		loopRef:   weak.Make(l),
		events:    make(map[string]EventHandler),
		futures:   make(map[string]*future.Future),
		onError:   cfg.OnError,
	}
	globalRegistry.bind(b)
	return b, nil
}

// Type returns the notifier's registered type name.
func (b *Base) Type() string { return b.typ }

// Name returns the notifier's registered name.
func (b *Base) Name() string { return b.name }

// Description returns the notifier's human-readable description.
func (b *Base) Description() string { return b.desc }

// PID returns the OS pid (for leaf, process-backed notifiers) or
// synthetic unique id (for purely in-process notifiers) associated with
// this notifier.
func (b *Base) PID() int { return b.pid }

// Autostart reports whether this notifier should begin operating as
// soon as it is constructed, rather than waiting for an explicit start.
func (b *Base) Autostart() bool { return b.autostart }

// Loop returns the owning Loop, or nil if it has been garbage collected.
func (b *Base) Loop() *loop.Loop { return b.loopRef.Value() }

// OnEvent registers the handler for a named event.
func (b *Base) OnEvent(name string, h EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[name] = h
}

// Destroy marks the notifier destroyed: subsequent CaptureWeakSelf and
// ReplaceWeakSelf closures become no-ops, and the registry entry for
// (Type,Name) is released so the name can be reused.
func (b *Base) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	b.mu.Unlock()
	globalRegistry.unregister(b.typ, b.name)
}

func (b *Base) isDestroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}
