// Package filewatcher implements the FileWatcher notifier: it stats a
// path on a timer (default every 2 seconds), diffing the previous and
// current stat across a closed set of fields, and optionally augments
// polling with native filesystem notifications (inotify on Linux) so
// changes are noticed between ticks too — both paths converge on the
// same diff-and-dispatch logic.
package filewatcher

import (
	"os"
	"time"

	"github.com/joeycumines/go-asyncipc/loop"
	"github.com/joeycumines/go-asyncipc/notifier"
	"github.com/joeycumines/go-asyncipc/periodical"
)

// DefaultInterval is the poll interval used when Config.Interval is
// zero.
const DefaultInterval = 2 * time.Second

// StatChangedFunc is the summary callback fired after any detected
// change (including appear/disappear).
type StatChangedFunc func(old, newStat *FileStat)

// FieldChangedFunc is invoked once per changed field, named per the
// on_<field>_changed convention (the name itself is passed through
// rather than exposed as N separate Go callbacks).
type FieldChangedFunc func(field string, old, newVal any)

// Config supplies FileWatcher's construction-time fields.
type Config struct {
	Name string
	Path string

	// Interval is the poll period; DefaultInterval if zero.
	Interval time.Duration

	// Native, when true, adds an inotify watch on platforms that support
	// it (Linux); the poll timer still runs as a fallback/backstop
	// regardless, with native notifications feeding the same dispatcher.
	// It is false unless set, and a watcher with Native false only polls.
	Native bool

	OnStatChanged   StatChangedFunc
	OnFieldChanged  FieldChangedFunc
	OnDevinoChanged StatChangedFunc
}

// FileWatcher polls (and, where available, natively watches) Config.Path.
type FileWatcher struct {
	*notifier.Base

	l    *loop.Loop
	cfg  Config
	poll *periodical.Periodical

	last *FileStat

	nativeTeardown func()
	nativeActive   bool
}

// New constructs a FileWatcher bound to l. It does not start polling;
// call Start.
func New(l *loop.Loop, cfg Config) (*FileWatcher, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	base, err := notifier.New(l, notifier.Config{Type: "filewatcher", Name: cfg.Name})
	if err != nil {
		return nil, err
	}
	w := &FileWatcher{Base: base, l: l, cfg: cfg}
	poll, err := periodical.New(l, cfg.Name+".poll", cfg.Interval, w.check)
	if err != nil {
		return nil, err
	}
	w.poll = poll
	return w, nil
}

// Start arms the poll timer and, if Config.Native is set, attempts to
// install native filesystem notifications. It also runs one immediate
// check so a caller observes the initial stat without waiting a full
// interval.
func (w *FileWatcher) Start() error {
	if err := w.poll.Start(); err != nil {
		return err
	}
	if w.cfg.Native {
		w.tryInstallNative()
	}
	w.check()
	return nil
}

// Stop disarms the poll timer and tears down any native watch.
func (w *FileWatcher) Stop() {
	w.poll.Stop()
	w.teardownNative()
}

// Destroy implies Stop, matching Periodical's own precedent (FileWatcher
// composes one).
func (w *FileWatcher) Destroy() {
	w.Stop()
	w.Base.Destroy()
}

// Last returns the most recently observed stat, or nil if the path was
// absent (or never checked).
func (w *FileWatcher) Last() *FileStat { return w.last }

func (w *FileWatcher) tryInstallNative() {
	if w.nativeActive {
		return
	}
	teardown, ok := setupNative(w)
	if !ok {
		return
	}
	w.nativeTeardown = teardown
	w.nativeActive = true
}

func (w *FileWatcher) teardownNative() {
	if !w.nativeActive {
		return
	}
	w.nativeActive = false
	if w.nativeTeardown != nil {
		w.nativeTeardown()
		w.nativeTeardown = nil
	}
}

// check stats Config.Path, diffs against the previous observation, and
// dispatches per the documented event precedence. It is the convergence
// point for both the poll timer and any native notification.
func (w *FileWatcher) check() {
	info, err := os.Lstat(w.cfg.Path)

	var cur *FileStat
	switch {
	case err == nil:
		s := statFromInfo(info)
		cur = &s
	case os.IsNotExist(err):
		cur = nil
	default:
		defaultLogger.Err().Str("path", w.cfg.Path).Err(err).Log("filewatcher stat failed")
		return
	}

	old := w.last
	defer func() { w.last = cur }()

	switch {
	case old != nil && cur == nil:
		w.dispatchStatChanged(old, nil)
		w.teardownNative()
		return
	case old == nil && cur != nil:
		w.dispatchStatChanged(nil, cur)
		if w.cfg.Native {
			w.tryInstallNative()
		}
		return
	case old == nil && cur == nil:
		return
	}

	deltas := diffFields(old, cur)
	if len(deltas) == 0 {
		return
	}
	for _, d := range deltas {
		if w.cfg.OnFieldChanged != nil {
			w.cfg.OnFieldChanged(d.name, d.old, d.new)
		}
	}
	if devinoChanged(old, cur) && w.cfg.OnDevinoChanged != nil {
		w.cfg.OnDevinoChanged(old, cur)
	}
	w.dispatchStatChanged(old, cur)
}

func (w *FileWatcher) dispatchStatChanged(old, cur *FileStat) {
	if w.cfg.OnStatChanged != nil {
		w.cfg.OnStatChanged(old, cur)
	}
}
