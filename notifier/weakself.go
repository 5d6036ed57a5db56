package notifier

import "weak"

// CaptureWeakSelf returns a closure that, when called, prepends a
// weakened reference to this notifier before invoking target. If the
// notifier has already been destroyed by the time the closure runs, it
// is a no-op. This is how the Loop can hold a callback referencing a
// notifier without forming a reference cycle that would keep the
// notifier alive forever.
func (b *Base) CaptureWeakSelf(target func(self *Base, args ...any)) func(args ...any) {
	wp := weak.Make(b)
	return func(args ...any) {
		self := wp.Value()
		if self == nil || self.isDestroyed() {
			return
		}
		target(self, args...)
	}
}

// ReplaceWeakSelf is like CaptureWeakSelf, but replaces the first
// element of args with the weakened self reference rather than
// prepending one.
func (b *Base) ReplaceWeakSelf(target func(self *Base, args ...any)) func(args ...any) {
	wp := weak.Make(b)
	return func(args ...any) {
		self := wp.Value()
		if self == nil || self.isDestroyed() {
			return
		}
		if len(args) > 0 {
			args = args[1:]
		}
		target(self, args...)
	}
}
