package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTickContext_RunsTasks(t *testing.T) {
	c := NewTickContext("test", time.Millisecond)
	var runs atomic.Int64
	c.Start("counter", func(now time.Time) { runs.Add(1) })
	defer c.Stop("counter")

	time.Sleep(50 * time.Millisecond)
	if runs.Load() == 0 {
		t.Error("task never ran")
	}
}

func TestTickContext_StartIsIdempotent(t *testing.T) {
	c := NewTickContext("test", time.Millisecond)
	var first, second atomic.Int64
	c.Start("task", func(now time.Time) { first.Add(1) })
	// Second Start with same id must be a no-op, not a replacement.
	c.Start("task", func(now time.Time) { second.Add(1) })
	defer c.Stop("task")

	time.Sleep(30 * time.Millisecond)
	if first.Load() == 0 {
		t.Error("original task stopped running")
	}
	if second.Load() != 0 {
		t.Error("duplicate Start replaced the running task")
	}
}

func TestTickContext_StopUnknownIsNoop(t *testing.T) {
	c := NewTickContext("test", time.Millisecond)
	c.Stop("never-registered") // must not panic or block
}

func TestTickContext_StopHaltsTask(t *testing.T) {
	c := NewTickContext("test", time.Millisecond)
	var runs atomic.Int64
	c.Start("counter", func(now time.Time) { runs.Add(1) })

	time.Sleep(20 * time.Millisecond)
	c.Stop("counter")
	settled := runs.Load()

	time.Sleep(20 * time.Millisecond)
	if runs.Load() != settled {
		t.Error("task kept running after Stop")
	}
	if c.Has("counter") {
		t.Error("stopped task still registered")
	}
}

func TestTickContext_InactiveSuspendsTicking(t *testing.T) {
	c := NewTickContext("frame", time.Millisecond)
	c.SetActive(false)

	var runs atomic.Int64
	c.Start("counter", func(now time.Time) { runs.Add(1) })
	defer c.Stop("counter")

	time.Sleep(20 * time.Millisecond)
	if runs.Load() != 0 {
		t.Error("task ran while context inactive")
	}

	c.SetActive(true)
	time.Sleep(20 * time.Millisecond)
	if runs.Load() == 0 {
		t.Error("task did not resume after SetActive(true)")
	}
}
