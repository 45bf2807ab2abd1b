package replication

import "sync/atomic"

// Stats counts replication activity for monitoring. Shared between the send
// loop and the receive path; all fields are only ever incremented.
type Stats struct {
	Broadcasts atomic.Uint64
	Accepted   atomic.Uint64
	Stale      atomic.Uint64
}
