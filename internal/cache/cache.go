package cache

import (
	"sync"

	"github.com/distsim/transformsync/internal/object"
	"github.com/distsim/transformsync/pkg/core"
)

// ObjectCache maps session object IDs to their live handles so the receive
// path can resolve incoming snapshots without touching the framework.
// Latency here matters: every incoming snapshot does one lookup.
type ObjectCache struct {
	mu      sync.Mutex
	objects map[core.ObjectID]*object.Handle
}

// NewObjectCache creates an empty cache.
func NewObjectCache() *ObjectCache {
	return &ObjectCache{
		objects: make(map[core.ObjectID]*object.Handle),
	}
}

// Add registers a handle under its ID, replacing any previous entry.
func (c *ObjectCache) Add(h *object.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[h.ID()] = h
}

// Get returns the handle for an ID.
func (c *ObjectCache) Get(id core.ObjectID) (*object.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.objects[id]
	return h, ok
}

// Remove drops a handle. Removing an unknown ID is a no-op.
func (c *ObjectCache) Remove(id core.ObjectID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, id)
}

// Len returns the number of cached handles.
func (c *ObjectCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects)
}

// Reset drops all handles, e.g. on session end.
func (c *ObjectCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = make(map[core.ObjectID]*object.Handle)
}
