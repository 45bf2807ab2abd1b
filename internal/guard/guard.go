// Package guard rejects incoming snapshots that arrive out of order or
// duplicated. It is the only error handling the receive path needs for an
// unordered transport.
package guard

import "sync"

// Guard tracks the timestamp of the last applied snapshot for one object.
// Timestamps come from the sending side's authoritative clock and are
// trusted as-is.
type Guard struct {
	mu   sync.Mutex
	last float64
	seen bool
}

// New creates a Guard that accepts the first snapshot it sees.
func New() *Guard {
	return &Guard{}
}

// Accept reports whether a snapshot with timestamp t is strictly newer than
// the last accepted one, recording t if so. Stale and duplicate timestamps
// are rejected silently; they are not errors.
func (g *Guard) Accept(t float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen && t <= g.last {
		return false
	}
	g.last = t
	g.seen = true
	return true
}

// Last returns the last accepted timestamp, and false if none was accepted.
func (g *Guard) Last() (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.seen
}
