// Package scheduler provides cooperative tick-driven task contexts. A task
// registered with a context runs once per tick until it is stopped; tasks
// never run concurrently with each other on the same context.
package scheduler

import (
	"sync"
	"time"
)

// Task is one cooperative step of a background job. It must return promptly;
// the next tick is its yield point.
type Task func(now time.Time)

// Context runs registered tasks on some cadence. Start and Stop are
// idempotent: starting an already-registered id or stopping an unknown one
// is a no-op.
type Context interface {
	Name() string
	Start(id string, task Task)
	Stop(id string)
}

// TickContext drives its tasks from a single goroutine and a time.Ticker.
// Two flavors exist by convention: a shared background context that is
// always active, and a per-entity frame context whose cadence can be
// suspended with SetActive while the entity is not being updated.
type TickContext struct {
	name     string
	interval time.Duration

	mu      sync.Mutex
	tasks   map[string]Task
	running bool
	active  bool
	stopCh  chan struct{}
}

// NewTickContext creates an active context ticking at the given interval.
func NewTickContext(name string, interval time.Duration) *TickContext {
	return &TickContext{
		name:     name,
		interval: interval,
		tasks:    make(map[string]Task),
		active:   true,
	}
}

// Name identifies the context in logs.
func (c *TickContext) Name() string {
	return c.name
}

// Start registers a task and launches the tick goroutine if needed.
// Registering an id that is already running is a no-op.
func (c *TickContext) Start(id string, task Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tasks[id]; ok {
		return
	}
	c.tasks[id] = task
	if !c.running {
		c.running = true
		c.stopCh = make(chan struct{})
		go c.run(c.stopCh)
	}
}

// Stop unregisters a task. A tick already executing when Stop is called may
// invoke the task one last time, so tasks must tolerate a single call after
// Stop returns. Stopping an unknown id is a no-op. The tick goroutine exits
// once no tasks remain.
func (c *TickContext) Stop(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tasks[id]; !ok {
		return
	}
	delete(c.tasks, id)
	if len(c.tasks) == 0 && c.running {
		c.running = false
		close(c.stopCh)
	}
}

// Has reports whether a task id is currently registered.
func (c *TickContext) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tasks[id]
	return ok
}

// SetActive suspends or resumes ticking. Registered tasks stay registered
// but do not run while inactive. Models an entity whose per-frame callback
// is disabled independently of its network authority.
func (c *TickContext) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
}

// Active reports whether the context is currently ticking its tasks.
func (c *TickContext) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *TickContext) run(stopCh chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			if !c.active {
				c.mu.Unlock()
				continue
			}
			tasks := make([]Task, 0, len(c.tasks))
			for _, t := range c.tasks {
				tasks = append(tasks, t)
			}
			c.mu.Unlock()

			for _, t := range tasks {
				t(now)
			}
		}
	}
}
