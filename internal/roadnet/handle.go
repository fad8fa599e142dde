package roadnet

import (
	"sync"
)

// Handle is a thread-safe wrapper that shares one store across the
// editing, render, and undo layers and allows swapping the underlying
// instance atomically. The store itself performs no locking; readers get
// point-in-time snapshots, writers mutate a private clone and swap it
// back. No reader ever observes a partially-mutated store.
//
// Every store that enters the handle has its spatial index built
// eagerly, so readers of a shared instance never trigger the lazy
// rebuild concurrently.
type Handle struct {
	mu      sync.RWMutex
	current *Store
}

// NewHandle wraps an initial store.
func NewHandle(initial *Store) *Handle {
	if initial == nil {
		initial = NewStore()
	}
	initial.EnsureSpatialIndex()
	return &Handle{current: initial}
}

// Swap atomically replaces the current store with a new one.
func (h *Handle) Swap(next *Store) {
	next.EnsureSpatialIndex()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = next
}

// Snapshot returns an O(1) clone of the current store. The clone is
// independent: neither subsequent commits through the handle nor
// mutations of the clone affect the other side.
func (h *Handle) Snapshot() *Store {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Clone()
}

// View runs fn against the current store under a read lock. fn must not
// mutate the store; use it for read-only iteration such as rendering.
func (h *Handle) View(fn func(*Store)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn(h.current)
}

// Commit clones the current store, applies fn to the clone, and swaps it
// in. Snapshots taken before the commit keep their old view.
func (h *Handle) Commit(fn func(*Store)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.current.Clone()
	fn(next)
	next.EnsureSpatialIndex()
	h.current = next
}
