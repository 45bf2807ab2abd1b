package replication

import (
	"log/slog"
	"sync"

	"github.com/distsim/transformsync/internal/object"
	"github.com/distsim/transformsync/internal/scheduler"
)

// Controller binds a Loop to its object's authority lifecycle. It subscribes
// to authority transitions on Initialize, starts the loop on every gain and
// stops it on every loss, and tears everything down on Deinitialize.
//
// Scheduling context selection happens at each authority gain: the object's
// per-frame context when it exists and is active, otherwise the shared
// background context. A context chosen at start time is kept until the next
// stop; mid-run activity changes do not migrate the loop.
type Controller struct {
	handle     *object.Handle
	loop       *Loop
	background scheduler.Context
	logger     *slog.Logger

	mu          sync.Mutex
	initialized bool
	token       int
}

// NewController wires a controller for one object. background must be a
// long-lived context shared by objects without a live frame callback.
func NewController(h *object.Handle, loop *Loop, background scheduler.Context, logger *slog.Logger) *Controller {
	return &Controller{
		handle:     h,
		loop:       loop,
		background: background,
		logger:     logger,
	}
}

// Initialize subscribes to the object's authority transitions and reconciles
// the loop with the current flag, so a controller attached after authority
// was already granted still starts broadcasting. Repeat calls are a no-op.
func (c *Controller) Initialize() {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return
	}
	c.initialized = true
	c.token = c.handle.Subscribe(c.onAuthorityChanged)
	c.mu.Unlock()

	c.onAuthorityChanged(c.handle.IsAuthoritative())
}

// Deinitialize unsubscribes and stops the loop. Safe to call more than once
// and safe after the object was destroyed.
func (c *Controller) Deinitialize() {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return
	}
	c.initialized = false
	token := c.token
	c.mu.Unlock()

	c.handle.Unsubscribe(token)
	c.loop.Stop()
}

func (c *Controller) onAuthorityChanged(authoritative bool) {
	if !authoritative {
		c.loop.Stop()
		return
	}
	ctx := c.selectContext()
	c.logger.Debug("authority gained, starting replication",
		"object", c.handle.ID(), "context", ctx.Name())
	c.loop.Start(ctx)
}

func (c *Controller) selectContext() scheduler.Context {
	if frame := c.handle.Frame(); frame != nil && frame.Active() {
		return frame
	}
	return c.background
}
