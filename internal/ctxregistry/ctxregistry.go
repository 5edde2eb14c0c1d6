// Package ctxregistry is the process-wide bookkeeping of every
// *lockctx.Context currently open against a map, so Map.Close() can
// forcibly release them instead of leaving shared-memory locks held by a
// process that is shutting down.
//
// Grounded on ContextHolder.java, which nulls out its per-thread context
// state on map close; here that becomes an intrusive doubly linked list of
// nodes wrapping each live Context, guarded by a sync.Mutex. Contention is
// expected to be rare: registration only happens when a context opens or
// closes, never on the read/write hot path.
package ctxregistry

import (
	"sync"

	"github.com/gostonefire/sharedhashmap/internal/lockctx"
)

// Handle - An opaque token returned by Register, passed back to Unregister
// when the context it wraps closes normally.
type Handle struct {
	ctx        *lockctx.Context
	prev, next *Handle
}

// Registry - Tracks every live context opened against one map.
type Registry struct {
	mu   sync.Mutex
	head *Handle
}

// New - Returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register - Links ctx into the registry and returns the Handle to pass to
// Unregister once the caller is done with ctx through its normal lifecycle.
func (r *Registry) Register(ctx *lockctx.Context) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := &Handle{ctx: ctx, next: r.head}
	if r.head != nil {
		r.head.prev = h
	}
	r.head = h
	return h
}

// Unregister - Removes h from the registry. Safe to call exactly once per
// Handle; calling it again is a no-op since the links are already cleared.
func (r *Registry) Unregister(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlink(h)
}

func (r *Registry) unlink(h *Handle) {
	if h.prev != nil {
		h.prev.next = h.next
	} else if r.head == h {
		r.head = h.next
	}
	if h.next != nil {
		h.next.prev = h.prev
	}
	h.prev, h.next = nil, nil
}

// CloseAll - Forcibly closes every still-registered context, clearing the
// registry. Called once, from Map.Close(), so a caller that leaked a
// context handle does not keep shared-memory locks held after the process
// believes the map is closed. Returns every error Close returned, if any.
func (r *Registry) CloseAll() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for h := r.head; h != nil; {
		if err := h.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		next := h.next
		h.prev, h.next = nil, nil
		h = next
	}
	r.head = nil
	return errs
}

// Snapshot - Returns the segment identity of every currently registered
// context, for a DeadLockDetected diagnostic dump.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for h := r.head; h != nil; h = h.next {
		out = append(out, h.ctx.Identity())
	}
	return out
}
