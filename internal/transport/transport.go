// Package transport defines how filled snapshot buffers leave this
// participant and how incoming ones arrive. The replication core does not
// care what carries the bytes; it only needs broadcast-out and a
// timestamped stream in.
package transport

import "github.com/distsim/transformsync/pkg/core"

// Incoming is a received snapshot message. Timestamp is assigned by the
// relay's clock on the sending path and trusted as-is; this layer does no
// clock synchronization.
type Incoming struct {
	ObjectID  core.ObjectID
	Key       string
	Timestamp float64
	Payload   []byte
}

// Broadcaster hands a filled snapshot buffer to the delivery layer for all
// non-authoritative observers. immediate asks the transport to skip any
// batching it might do; seed broadcasts set it.
type Broadcaster interface {
	BroadcastSnapshot(id core.ObjectID, payload []byte, immediate bool) error
}

// Sink consumes incoming messages. Transports call it from their read path.
type Sink func(Incoming)
