// Package object models the distributed entity that owns a replicated
// transform. The authority flag is mutated only by the authority-assignment
// side (relay grants in production, tests and the demo directly); the
// replication core reads it and subscribes to its changes.
package object

import (
	"sync"

	"github.com/distsim/transformsync/internal/scheduler"
	"github.com/distsim/transformsync/pkg/core"
)

// AuthorityListener observes authority-flag transitions.
type AuthorityListener func(authoritative bool)

// Handle represents one replicated entity.
type Handle struct {
	id    core.ObjectID
	frame *scheduler.TickContext

	mu            sync.Mutex
	authoritative bool
	destroyed     bool
	transform     core.TransformSnapshot
	listeners     map[int]AuthorityListener
	nextListener  int
}

// NewHandle creates a handle with identity transform. frame may be nil for
// entities that have no per-frame callback at all.
func NewHandle(id core.ObjectID, frame *scheduler.TickContext) *Handle {
	return &Handle{
		id:    id,
		frame: frame,
		transform: core.TransformSnapshot{
			Rotation: core.Identity(),
			Scale:    core.One(),
		},
		listeners: make(map[int]AuthorityListener),
	}
}

// ID returns the entity's session-scoped identifier.
func (h *Handle) ID() core.ObjectID {
	return h.id
}

// Frame returns the entity's per-frame scheduling context, or nil.
func (h *Handle) Frame() *scheduler.TickContext {
	return h.frame
}

// IsAuthoritative reports whether this participant owns ground truth for
// the entity.
func (h *Handle) IsAuthoritative() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.authoritative
}

// SetAuthoritative flips the authority flag and notifies subscribers.
// Listeners are invoked outside the handle lock.
func (h *Handle) SetAuthoritative(authoritative bool) {
	h.mu.Lock()
	if h.destroyed || h.authoritative == authoritative {
		h.mu.Unlock()
		return
	}
	h.authoritative = authoritative
	listeners := make([]AuthorityListener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.Unlock()

	for _, l := range listeners {
		l(authoritative)
	}
}

// Subscribe registers an authority-change listener and returns a token for
// Unsubscribe.
func (h *Handle) Subscribe(l AuthorityListener) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextListener++
	h.listeners[h.nextListener] = l
	return h.nextListener
}

// Unsubscribe removes a listener. Unknown or already-removed tokens are a
// safe no-op.
func (h *Handle) Unsubscribe(token int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, token)
}

// Snapshot returns a copy of the live transform.
func (h *Handle) Snapshot() core.TransformSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transform
}

// SetTransform replaces the live transform. Called by the simulation on the
// authoritative side and by the receive path on observers.
func (h *Handle) SetTransform(t core.TransformSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return
	}
	h.transform = t
}

// Destroy marks the entity torn down. Further mutation is ignored; a
// destroyed handle tolerates late Deinitialize calls from components.
func (h *Handle) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
}

// Destroyed reports whether the entity has been torn down.
func (h *Handle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}
