package notifier

import (
	"sync"
	"weak"

	"github.com/joeycumines/go-asyncipc/asyncipcerr"
)

// registry enforces uniqueness of (type,name) pairs across the process,
// using a weak-pointer liveness check so garbage collection can reclaim
// unreferenced entries without requiring every caller to explicitly
// unregister.
type registryKey struct {
	typ  string
	name string
}

type notifierRegistry struct {
	mu   sync.Mutex
	live map[registryKey]weak.Pointer[Base]
}

var globalRegistry = &notifierRegistry{
	live: make(map[registryKey]weak.Pointer[Base]),
}

func (r *notifierRegistry) register(typ, name string) error {
	key := registryKey{typ: typ, name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if wp, ok := r.live[key]; ok && (wp == (weak.Pointer[Base]{}) || wp.Value() != nil) {
		return asyncipcerr.NewNotifierIDNotUnique(typ, name)
	}
	// placeholder entry replaced with a real weak pointer once the Base
	// finishes constructing, via bind below; reserve the slot now so a
	// concurrent register for the same key fails.
	r.live[key] = weak.Pointer[Base]{}
	return nil
}

// bind attaches b's weak pointer to its reserved registry slot. Called
// once construction has produced the Base value.
func (r *notifierRegistry) bind(b *Base) {
	key := registryKey{typ: b.typ, name: b.name}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[key] = weak.Make(b)
}

func (r *notifierRegistry) unregister(typ, name string) {
	key := registryKey{typ: typ, name: name}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, key)
}
