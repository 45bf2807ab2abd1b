package dispatcher

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/distsim/transformsync/internal/transport"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register("transform", func(e Event) error {
		called = true
		return nil
	})

	err := d.Dispatch(Event{Key: "transform", Message: transport.Incoming{ObjectID: 1}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
}

func TestDispatcher_UnknownKey(t *testing.T) {
	d, _ := newTestDispatcher(t)

	err := d.Dispatch(Event{Key: "unknown"})

	if err == nil {
		t.Error("expected error for unknown component key")
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int64
	d.Register("transform", func(e Event) error {
		processed.Add(1)
		return nil
	}, Buffered(100))

	for i := 0; i < 10; i++ {
		if err := d.Dispatch(Event{Key: "transform"}); err != nil {
			t.Errorf("dispatch %d failed: %v", i, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for processed.Load() < 10 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if processed.Load() != 10 {
		t.Errorf("expected 10 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	release := make(chan struct{})
	d.Register("transform", func(e Event) error {
		<-release
		return nil
	}, Buffered(1))

	// First event occupies the worker, second fills the buffer; the rest
	// must be rejected.
	var dropErr error
	for i := 0; i < 5; i++ {
		if err := d.Dispatch(Event{Key: "transform"}); err != nil {
			dropErr = err
		}
	}
	close(release)

	if dropErr == nil {
		t.Error("expected queue-full error")
	}
}

func TestDispatcher_SinkRoutesByKey(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got transport.Incoming
	d.Register("transform", func(e Event) error {
		got = e.Message
		return nil
	})

	sink := d.Sink()
	sink(transport.Incoming{ObjectID: 9, Key: "transform", Timestamp: 1.25})

	if got.ObjectID != 9 || got.Timestamp != 1.25 {
		t.Errorf("sink delivered %+v", got)
	}
}
