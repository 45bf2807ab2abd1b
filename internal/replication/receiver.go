package replication

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/distsim/transformsync/internal/cache"
	"github.com/distsim/transformsync/internal/codec"
	"github.com/distsim/transformsync/internal/guard"
	"github.com/distsim/transformsync/internal/transport"
	"github.com/distsim/transformsync/pkg/core"
)

// Journal records applied snapshots for later inspection. Optional.
type Journal interface {
	Record(id core.ObjectID, timestamp float64, snap core.TransformSnapshot, raw []byte)
}

// Receiver applies incoming transform snapshots on the observing side. It
// drops the participant's own broadcasts, discards out-of-order snapshots
// per object, and writes accepted state into the object cache.
type Receiver struct {
	objects *cache.ObjectCache
	stats   *Stats
	journal Journal
	logger  *slog.Logger

	mu     sync.Mutex
	guards map[core.ObjectID]*guard.Guard
}

// NewReceiver creates a receiver over the given object cache. journal may be
// nil to disable persistence.
func NewReceiver(objects *cache.ObjectCache, stats *Stats, journal Journal, logger *slog.Logger) *Receiver {
	return &Receiver{
		objects: objects,
		stats:   stats,
		journal: journal,
		logger:  logger,
		guards:  make(map[core.ObjectID]*guard.Guard),
	}
}

// HandleSnapshot applies one incoming snapshot. Stale and duplicate
// timestamps are dropped without error; unknown objects are an error so the
// dispatcher surfaces them.
func (r *Receiver) HandleSnapshot(msg transport.Incoming) error {
	h, ok := r.objects.Get(msg.ObjectID)
	if !ok {
		return fmt.Errorf("snapshot for unknown object %d", msg.ObjectID)
	}

	// The authoritative side never applies its own state coming back.
	if h.IsAuthoritative() {
		return nil
	}

	if !r.guardFor(msg.ObjectID).Accept(msg.Timestamp) {
		if r.stats != nil {
			r.stats.Stale.Add(1)
		}
		r.logger.Debug("dropping stale snapshot",
			"object", msg.ObjectID, "timestamp", msg.Timestamp)
		return nil
	}

	snap := codec.Decode(msg.Payload)
	h.SetTransform(snap)
	if r.stats != nil {
		r.stats.Accepted.Add(1)
	}
	if r.journal != nil {
		r.journal.Record(msg.ObjectID, msg.Timestamp, snap, msg.Payload)
	}
	return nil
}

// Forget drops the ordering state kept for an object, typically when the
// object leaves the session. A later re-register starts a fresh sequence.
func (r *Receiver) Forget(id core.ObjectID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.guards, id)
}

func (r *Receiver) guardFor(id core.ObjectID) *guard.Guard {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.guards[id]
	if !ok {
		g = guard.New()
		r.guards[id] = g
	}
	return g
}
