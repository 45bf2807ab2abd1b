package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/distsim/transformsync/internal/cache"
	"github.com/distsim/transformsync/internal/config"
	"github.com/distsim/transformsync/internal/replication"
	"github.com/distsim/transformsync/internal/scheduler"
	"github.com/distsim/transformsync/internal/transport"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "transformsync.cfg.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := config.Load(dir); err != nil {
		t.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := &app{
		logger:     logger,
		objects:    cache.NewObjectCache(),
		stats:      &replication.Stats{},
		background: scheduler.NewTickContext("background", 10*time.Millisecond),
	}
	a.bus = transport.NewBus()
	a.broadcaster = a.bus
	a.receiver = replication.NewReceiver(a.objects, a.stats, nil, logger)
	return a
}

func TestRegisterUnregisterLifecycle(t *testing.T) {
	a := newTestApp(t)

	h, ctrl, err := a.register(7, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := a.objects.Get(7); !ok {
		t.Fatal("object not cached after register")
	}

	a.unregister(h, ctrl)

	if !h.Destroyed() {
		t.Fatal("handle should be destroyed with its entity")
	}
	if _, ok := a.objects.Get(7); ok {
		t.Fatal("object still cached after unregister")
	}
}

func TestRegisterDuplicateFails(t *testing.T) {
	a := newTestApp(t)

	h, ctrl, err := a.register(3, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer a.unregister(h, ctrl)

	if _, _, err := a.register(3, nil); err == nil {
		t.Fatal("second register of the same id should fail")
	}
}
