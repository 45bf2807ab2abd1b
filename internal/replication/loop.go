// Package replication implements the authoritative send loop, the authority
// controller that owns its lifecycle, and the receive path that applies
// incoming snapshots.
package replication

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/distsim/transformsync/internal/codec"
	"github.com/distsim/transformsync/internal/detector"
	"github.com/distsim/transformsync/internal/object"
	"github.com/distsim/transformsync/internal/scheduler"
	"github.com/distsim/transformsync/internal/transport"
	"github.com/distsim/transformsync/pkg/core"
)

// DefaultSnapshotsPerSecond is the stock rate ceiling for one object's
// broadcasts.
const DefaultSnapshotsPerSecond = 60

// LoopState is the loop's explicit status.
type LoopState int

const (
	// Idle means no scheduling context is stepping this loop.
	Idle LoopState = iota
	// Running means the loop is registered with exactly one context.
	Running
)

// Loop broadcasts an object's transform while this participant is
// authoritative. It is stepped cooperatively by a scheduler context; each
// step evaluates at most one broadcast and then yields until the next tick.
type Loop struct {
	handle    *object.Handle
	det       *detector.Detector
	transport transport.Broadcaster
	interval  time.Duration
	logger    *slog.Logger
	stats     *Stats

	mu     sync.Mutex
	state  LoopState
	runCtx scheduler.Context
	seeded bool

	// lastSent/lastSendAt are mutated only after a successful broadcast
	// and read only by the dirty check.
	lastSent   core.TransformSnapshot
	lastSendAt time.Time
}

// NewLoop creates an idle loop. perSecond caps broadcast frequency; zero or
// negative falls back to DefaultSnapshotsPerSecond.
func NewLoop(h *object.Handle, det *detector.Detector, b transport.Broadcaster, perSecond int, stats *Stats, logger *slog.Logger) *Loop {
	if perSecond <= 0 {
		perSecond = DefaultSnapshotsPerSecond
	}
	return &Loop{
		handle:    h,
		det:       det,
		transport: b,
		interval:  time.Duration(float64(time.Second) / float64(perSecond)),
		stats:     stats,
		logger:    logger,
	}
}

// State returns the loop's current status.
func (l *Loop) State() LoopState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Context returns the scheduling context currently stepping the loop, or nil
// when idle. The controller uses it to issue the matching stop.
func (l *Loop) Context() scheduler.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runCtx
}

// Start registers the loop with a scheduling context. The first step issues
// an unconditional seed broadcast so remote observers get current state
// immediately; steady-state polling begins one step later. Starting an
// already-running loop is a no-op, even on a different context.
func (l *Loop) Start(ctx scheduler.Context) {
	l.mu.Lock()
	if l.state == Running {
		l.mu.Unlock()
		return
	}
	l.state = Running
	l.runCtx = ctx
	l.seeded = false
	l.mu.Unlock()

	l.logger.Debug("replication loop starting", "object", l.handle.ID())
	ctx.Start(l.taskID(), l.step)
}

// Stop terminates the loop at its next yield point: the in-flight step (if
// any) completes, but no broadcast begins after Stop returns. Idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state != Running {
		l.mu.Unlock()
		return
	}
	ctx := l.runCtx
	l.state = Idle
	l.runCtx = nil
	l.mu.Unlock()

	ctx.Stop(l.taskID())
	l.logger.Debug("replication loop stopped", "object", l.handle.ID())
}

// step is one cooperative scheduling step.
func (l *Loop) step(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The context may deliver one tick racing a concurrent Stop.
	if l.state != Running {
		return
	}

	snap := l.handle.Snapshot()

	if !l.seeded {
		l.seeded = true
		l.broadcastLocked(snap, now, true)
		// Yield one step before entering steady-state polling.
		return
	}

	if now.Sub(l.lastSendAt) < l.interval {
		return
	}
	if !l.det.Dirty(snap, l.lastSent) {
		return
	}

	l.broadcastLocked(snap, now, false)
}

func (l *Loop) broadcastLocked(snap core.TransformSnapshot, now time.Time, immediate bool) {
	payload := codec.Encode(snap)
	if err := l.transport.BroadcastSnapshot(l.handle.ID(), payload, immediate); err != nil {
		l.logger.Error("snapshot broadcast failed", "object", l.handle.ID(), "error", err)
		return
	}
	l.lastSent = snap
	l.lastSendAt = now
	if l.stats != nil {
		l.stats.Broadcasts.Add(1)
	}
}

func (l *Loop) taskID() string {
	return fmt.Sprintf("%s:%d", core.ComponentKeyTransform, l.handle.ID())
}
