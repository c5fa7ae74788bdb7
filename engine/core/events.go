package core

import (
	"sync"
	"sync/atomic"
)

type registration[F any] struct {
	handle   Handle
	callback F
	removed  atomic.Bool
}

/**
 * @brief An ordered observer list. Callbacks are visited in registration order
 * and removed by the handle returned from Register.
 */
type Registry[F any] struct {
	mu      sync.RWMutex
	entries []*registration[F]
}

func NewRegistry[F any]() *Registry[F] {
	return &Registry[F]{}
}

// Register appends the callback and returns its handle.
func (r *Registry[F]) Register(callback F) Handle {
	e := &registration[F]{handle: NewHandle(), callback: callback}
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	return e.handle
}

// Unregister returns false if the handle is not (or no longer) registered.
func (r *Registry[F]) Unregister(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.handle == h {
			e.removed.Store(true)
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Registry[F]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

/**
 * @brief Visits a snapshot of the callbacks, so callbacks may register or
 * unregister while the list is being fired. Entries removed during the walk
 * are skipped; entries added during the walk are not visited. Returning false
 * stops the walk.
 */
func (r *Registry[F]) Each(visit func(h Handle, callback F) bool) {
	r.mu.RLock()
	snapshot := make([]*registration[F], len(r.entries))
	copy(snapshot, r.entries)
	r.mu.RUnlock()

	for _, e := range snapshot {
		if e.removed.Load() {
			continue
		}
		if !visit(e.handle, e.callback) {
			return
		}
	}
}
