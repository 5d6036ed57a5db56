package notifier

import "github.com/joeycumines/go-asyncipc/future"

// AdoptFuture stores f in the futures map keyed by id. Once f settles
// (ready or failed), the entry is removed; a failure is routed through
// InvokeError.
func (b *Base) AdoptFuture(id string, f *future.Future) {
	b.mu.Lock()
	b.futures[id] = f
	b.mu.Unlock()

	f.OnSettle(func(state future.State) {
		b.releaseFuture(id)
		if state == future.Failed {
			_ = b.InvokeError(f.Err().Error(), "future_failed", f.Details()...)
		}
	})
}

func (b *Base) releaseFuture(id string) {
	b.mu.Lock()
	delete(b.futures, id)
	b.mu.Unlock()
}

// Futures returns the ids of all currently-adopted, unsettled futures.
func (b *Base) Futures() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.futures))
	for id := range b.futures {
		ids = append(ids, id)
	}
	return ids
}
