// Package dispatcher routes incoming transport messages to per-component
// handlers. High-volume channels (transform snapshots) register buffered so
// the transport read path never blocks on apply work.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/distsim/transformsync/internal/transport"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event is one incoming message bound for a component handler.
type Event struct {
	Key     string
	Message transport.Incoming
}

// HandlerFunc processes an event.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers by component key.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	// Track buffers for gauge callback
	mu      sync.RWMutex
	buffers map[string]chan Event
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for key, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("component", key)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given component key with optional
// configuration.
func (d *Dispatcher) Register(key string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(key, cfg.bufferSize, cfg.blocking, handler)
	}

	if cfg.logged {
		handler = d.withLogging(key, handler)
	}

	d.handlers[key] = handler
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) error {
	h, ok := d.handlers[e.Key]
	if !ok {
		return fmt.Errorf("unknown component key: %s", e.Key)
	}
	return h(e)
}

// Sink adapts the dispatcher into a transport.Sink. Routing failures are
// logged, not propagated: the transport read loop cannot act on them.
func (d *Dispatcher) Sink() transport.Sink {
	return func(m transport.Incoming) {
		if err := d.Dispatch(Event{Key: m.Key, Message: m}); err != nil {
			d.logger.Error("dispatch failed", "key", m.Key, "object", m.ObjectID, "error", err)
		}
	}
}

// HasHandler returns true if a handler is registered for the key.
func (d *Dispatcher) HasHandler(key string) bool {
	_, ok := d.handlers[key]
	return ok
}

func (d *Dispatcher) withBuffer(key string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[key] = buffer
	d.mu.Unlock()

	keyAttr := attribute.String("component", key)

	go func() {
		for e := range buffer {
			h(e)
			d.processed.Add(context.Background(), 1, metric.WithAttributes(keyAttr))
		}
	}()

	if blocking {
		return func(e Event) error {
			buffer <- e
			return nil
		}
	}

	return func(e Event) error {
		select {
		case buffer <- e:
			return nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(keyAttr))
			return fmt.Errorf("queue full: %s", key)
		}
	}
}

func (d *Dispatcher) withLogging(key string, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "component", key, "object", e.Message.ObjectID)

		err := h(e)

		if err != nil {
			d.logger.Error("event failed", "component", key, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "component", key, "duration", time.Since(start))
		}

		return err
	}
}
