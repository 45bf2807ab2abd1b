package transport

import (
	"sync"
	"time"

	"github.com/distsim/transformsync/pkg/core"
)

// Bus is an in-process transport: broadcasts are delivered synchronously to
// every subscribed sink, with timestamps taken from a session-relative
// monotonic clock. Used by tests and the single-process demo.
type Bus struct {
	mu      sync.Mutex
	started time.Time
	sinks   []Sink
	now     func() time.Time
}

// NewBus creates a bus whose session clock starts now.
func NewBus() *Bus {
	return &Bus{
		started: time.Now(),
		now:     time.Now,
	}
}

// NewBusWithClock creates a bus with an injected clock, for deterministic
// timestamps in tests.
func NewBusWithClock(now func() time.Time) *Bus {
	return &Bus{
		started: now(),
		now:     now,
	}
}

// Subscribe registers a sink for all future broadcasts.
func (b *Bus) Subscribe(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// BroadcastSnapshot stamps the message with the session clock and delivers
// it to every sink. Delivery is synchronous; sinks that need decoupling
// buffer behind the dispatcher.
func (b *Bus) BroadcastSnapshot(id core.ObjectID, payload []byte, immediate bool) error {
	b.mu.Lock()
	msg := Incoming{
		ObjectID:  id,
		Key:       core.ComponentKeyTransform,
		Timestamp: b.now().Sub(b.started).Seconds(),
		Payload:   payload,
	}
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.Unlock()

	for _, s := range sinks {
		s(msg)
	}
	return nil
}
