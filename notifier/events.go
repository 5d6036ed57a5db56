package notifier

import "github.com/joeycumines/go-asyncipc/asyncipcerr"

// InvokeEvent dispatches the named event, failing with ErrEventUnknown
// if no handler is registered.
func (b *Base) InvokeEvent(name string, args ...any) error {
	b.mu.Lock()
	h, ok := b.events[name]
	b.mu.Unlock()
	if !ok {
		return asyncipcerr.ErrEventUnknown
	}
	h(args...)
	return nil
}

// MaybeInvokeEvent dispatches the named event if a handler is
// registered, silently doing nothing otherwise.
func (b *Base) MaybeInvokeEvent(name string, args ...any) {
	b.mu.Lock()
	h, ok := b.events[name]
	b.mu.Unlock()
	if ok {
		h(args...)
	}
}

// InvokeError routes msg/kind/details to the on_error handler, or returns
// an asyncipcerr.Unspecified error if none is installed.
func (b *Base) InvokeError(msg string, kind string, details ...any) error {
	b.mu.Lock()
	h := b.onError
	b.mu.Unlock()
	if h == nil {
		return asyncipcerr.NewUnspecified("on_error")
	}
	h(msg, kind, details...)
	return nil
}

// SetOnError installs (or clears, with nil) the error handler.
func (b *Base) SetOnError(h ErrorHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = h
}
