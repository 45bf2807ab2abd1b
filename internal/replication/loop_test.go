package replication

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/distsim/transformsync/internal/codec"
	"github.com/distsim/transformsync/internal/detector"
	"github.com/distsim/transformsync/internal/object"
	"github.com/distsim/transformsync/internal/scheduler"
	"github.com/distsim/transformsync/pkg/core"
)

// manualContext implements scheduler.Context with hand-driven ticks.
type manualContext struct {
	name string

	mu    sync.Mutex
	tasks map[string]scheduler.Task
}

func newManualContext(name string) *manualContext {
	return &manualContext{name: name, tasks: make(map[string]scheduler.Task)}
}

func (c *manualContext) Name() string { return c.name }

func (c *manualContext) Start(id string, task scheduler.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tasks[id]; ok {
		return
	}
	c.tasks[id] = task
}

func (c *manualContext) Stop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tasks, id)
}

func (c *manualContext) tick(now time.Time) {
	c.mu.Lock()
	tasks := make([]scheduler.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		tasks = append(tasks, t)
	}
	c.mu.Unlock()
	for _, t := range tasks {
		t(now)
	}
}

func (c *manualContext) taskCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

type sentRecord struct {
	id        core.ObjectID
	payload   []byte
	immediate bool
}

// recordingBroadcaster captures broadcasts for inspection.
type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sentRecord
	err  error
}

func (b *recordingBroadcaster) BroadcastSnapshot(id core.ObjectID, payload []byte, immediate bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, sentRecord{id: id, payload: payload, immediate: immediate})
	return nil
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

func (b *recordingBroadcaster) last() sentRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent[len(b.sent)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoop(t *testing.T) (*Loop, *object.Handle, *recordingBroadcaster) {
	t.Helper()
	h := object.NewHandle(7, nil)
	b := &recordingBroadcaster{}
	det := detector.New(detector.DefaultThresholds())
	l := NewLoop(h, det, b, DefaultSnapshotsPerSecond, &Stats{}, testLogger())
	return l, h, b
}

func TestLoopSeedBroadcastIsUnconditional(t *testing.T) {
	l, h, b := newTestLoop(t)
	ctx := newManualContext("background")

	// Identity transform: nothing dirty, the seed must go out anyway.
	l.Start(ctx)
	ctx.tick(time.Unix(0, 0))

	if b.count() != 1 {
		t.Fatalf("seed broadcast count = %d, want 1", b.count())
	}
	if !b.last().immediate {
		t.Fatal("seed broadcast must be flagged immediate")
	}
	if b.last().id != h.ID() {
		t.Fatalf("broadcast object = %d, want %d", b.last().id, h.ID())
	}
	got := codec.Decode(b.last().payload)
	if got.Rotation != core.Identity() || got.Scale != core.One() {
		t.Fatalf("seed payload decoded to %+v", got)
	}
}

func TestLoopSuppressesCleanState(t *testing.T) {
	l, _, b := newTestLoop(t)
	ctx := newManualContext("background")
	l.Start(ctx)

	start := time.Unix(100, 0)
	ctx.tick(start)
	for i := 1; i <= 10; i++ {
		ctx.tick(start.Add(time.Duration(i) * 50 * time.Millisecond))
	}

	if b.count() != 1 {
		t.Fatalf("broadcasts = %d, want only the seed", b.count())
	}
}

func TestLoopRateCeiling(t *testing.T) {
	l, h, b := newTestLoop(t)
	ctx := newManualContext("background")
	l.Start(ctx)

	start := time.Unix(0, 0)
	ctx.tick(start) // seed at t=0

	// Movement at +10ms: dirty, but inside the 60/s window.
	h.SetTransform(core.TransformSnapshot{
		Position: core.Vector3{X: 5},
		Rotation: core.Identity(),
		Scale:    core.One(),
	})
	ctx.tick(start.Add(10 * time.Millisecond))
	if b.count() != 1 {
		t.Fatalf("broadcast inside rate window, count = %d", b.count())
	}

	// Same dirty state at +17ms: window elapsed, snapshot goes out.
	ctx.tick(start.Add(17 * time.Millisecond))
	if b.count() != 2 {
		t.Fatalf("broadcasts = %d, want 2 after window elapsed", b.count())
	}
	if b.last().immediate {
		t.Fatal("steady-state broadcast must not be flagged immediate")
	}
	got := codec.Decode(b.last().payload)
	if got.Position.X != 5 {
		t.Fatalf("broadcast position X = %v, want 5", got.Position.X)
	}
}

func TestLoopSeedStepYields(t *testing.T) {
	l, h, b := newTestLoop(t)
	ctx := newManualContext("background")

	// Dirty state present before the very first step: the seed carries it,
	// and the step does not evaluate a second broadcast.
	h.SetTransform(core.TransformSnapshot{
		Position: core.Vector3{X: 1.5},
		Rotation: core.Identity(),
		Scale:    core.One(),
	})
	l.Start(ctx)
	ctx.tick(time.Unix(0, 0))

	if b.count() != 1 {
		t.Fatalf("broadcasts = %d, want 1", b.count())
	}
	got := codec.Decode(b.last().payload)
	if got.Position.X != 1.5 {
		t.Fatalf("seed position X = %v, want 1.5", got.Position.X)
	}
}

func TestLoopStartIdempotent(t *testing.T) {
	l, _, b := newTestLoop(t)
	ctx := newManualContext("background")
	other := newManualContext("frame")

	l.Start(ctx)
	l.Start(ctx)
	l.Start(other)

	if other.taskCount() != 0 {
		t.Fatal("second Start must not register on another context")
	}
	ctx.tick(time.Unix(0, 0))
	if b.count() != 1 {
		t.Fatalf("broadcasts = %d, want 1", b.count())
	}
	if l.State() != Running {
		t.Fatal("loop should be running")
	}
}

func TestLoopStopUnregistersAndIsIdempotent(t *testing.T) {
	l, h, b := newTestLoop(t)
	ctx := newManualContext("background")
	l.Start(ctx)
	ctx.tick(time.Unix(0, 0))

	l.Stop()
	l.Stop()

	if ctx.taskCount() != 0 {
		t.Fatal("task still registered after Stop")
	}
	if l.State() != Idle {
		t.Fatal("loop should be idle")
	}

	// A tick racing the stop must not broadcast.
	h.SetTransform(core.TransformSnapshot{
		Position: core.Vector3{X: 9},
		Rotation: core.Identity(),
		Scale:    core.One(),
	})
	l.step(time.Unix(1, 0))
	if b.count() != 1 {
		t.Fatalf("broadcasts after Stop = %d, want 1", b.count())
	}
}

func TestLoopRestartReseeds(t *testing.T) {
	l, _, b := newTestLoop(t)
	ctx := newManualContext("background")

	l.Start(ctx)
	ctx.tick(time.Unix(0, 0))
	l.Stop()

	l.Start(ctx)
	ctx.tick(time.Unix(10, 0))

	if b.count() != 2 {
		t.Fatalf("broadcasts = %d, want seed per session", b.count())
	}
	if !b.last().immediate {
		t.Fatal("restart seed must be flagged immediate")
	}
}

func TestLoopBroadcastErrorDoesNotRecordState(t *testing.T) {
	l, h, b := newTestLoop(t)
	b.err = errBroadcast
	ctx := newManualContext("background")
	l.Start(ctx)
	ctx.tick(time.Unix(0, 0))

	// Failed seed: stats and lastSent untouched, next tick retries dirty
	// comparison against the zero value and sends once the transport heals.
	b.err = nil
	h.SetTransform(core.TransformSnapshot{
		Position: core.Vector3{X: 2},
		Rotation: core.Identity(),
		Scale:    core.One(),
	})
	ctx.tick(time.Unix(1, 0))
	if b.count() != 1 {
		t.Fatalf("broadcasts after recovery = %d, want 1", b.count())
	}
}

var errBroadcast = &transportError{"transport down"}

type transportError struct{ msg string }

func (e *transportError) Error() string { return e.msg }
