// Command transformsyncd runs one replication participant: it joins a
// session over the configured transport, broadcasts transforms for objects
// it owns, and applies snapshots for everything else.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/distsim/transformsync/internal/cache"
	"github.com/distsim/transformsync/internal/config"
	"github.com/distsim/transformsync/internal/database"
	"github.com/distsim/transformsync/internal/detector"
	"github.com/distsim/transformsync/internal/dispatcher"
	"github.com/distsim/transformsync/internal/influx"
	"github.com/distsim/transformsync/internal/journal"
	"github.com/distsim/transformsync/internal/logging"
	"github.com/distsim/transformsync/internal/monitor"
	"github.com/distsim/transformsync/internal/object"
	intOtel "github.com/distsim/transformsync/internal/otel"
	"github.com/distsim/transformsync/internal/replication"
	"github.com/distsim/transformsync/internal/scheduler"
	"github.com/distsim/transformsync/internal/transport"
	wstransport "github.com/distsim/transformsync/internal/transport/websocket"
	"github.com/distsim/transformsync/pkg/core"
)

func main() {
	configDir := flag.String("config", ".", "directory containing transformsync.cfg.json")
	demo := flag.Bool("demo", false, "run an in-process two-participant demo and exit")
	flag.Parse()

	if err := run(*configDir, *demo); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

// app holds everything with a lifecycle, wired once at startup.
type app struct {
	logManager *logging.SlogManager
	logger     *slog.Logger
	otel       *intOtel.Provider

	objects    *cache.ObjectCache
	stats      *replication.Stats
	receiver   *replication.Receiver
	dispatcher *dispatcher.Dispatcher
	background *scheduler.TickContext

	journal *journal.Service
	influx  *influx.Manager
	monitor *monitor.Service

	wsBackend   *wstransport.Backend
	broadcaster transport.Broadcaster
	bus         *transport.Bus
}

func run(configDir string, demo bool) error {
	if err := config.Load(configDir); err != nil {
		return err
	}

	a, err := wire()
	if err != nil {
		return err
	}
	defer a.shutdown()

	if demo {
		return a.runDemo()
	}

	a.logger.Info("Participant running", "transport", config.GetString("transport.type"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	a.logger.Info("Shutting down")
	return nil
}

func wire() (*app, error) {
	a := &app{}
	sessionStart := time.Now()

	// OTel first so logging can bridge into it.
	otelCfg := config.GetOTelConfig()
	var otelWriter *os.File
	if otelCfg.Enabled {
		var err error
		otelWriter, err = os.Create(filepath.Join(
			config.GetString("logsDir"),
			fmt.Sprintf("otel.%s.log", sessionStart.Format("20060102_150405"))))
		if err != nil {
			return nil, fmt.Errorf("creating otel log file: %w", err)
		}
	}
	provider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    otelWriter,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing otel: %w", err)
	}
	a.otel = provider

	// Logging: console + session file, plus Graylog and OTel when enabled.
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}
	logFile, err := os.Create(logging.LogFilePath(logsDir, "transformsync", sessionStart))
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}

	var gelfHandler *logging.GELFHandler
	if config.GetBool("graylog.enabled") {
		gelfHandler, err = logging.NewGELFHandler(config.GetString("graylog.address"), slog.LevelInfo)
		if err != nil {
			// Graylog being down should not stop the participant.
			fmt.Fprintln(os.Stderr, "graylog unavailable:", err)
			gelfHandler = nil
		}
	}

	tCfg := config.GetTransportConfig()

	a.logManager = logging.NewSlogManager()
	a.logManager.SetContextProvider(func() []slog.Attr {
		return []slog.Attr{
			slog.String("session", tCfg.Session),
			slog.String("participant", tCfg.Participant),
		}
	})
	a.logManager.Setup(logFile, config.GetString("logLevel"), gelfHandler, provider.LoggerProvider())
	a.logger = a.logManager.Logger()

	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Replication core.
	a.objects = cache.NewObjectCache()
	a.stats = &replication.Stats{}

	repCfg := config.GetReplicationConfig()
	a.background = scheduler.NewTickContext("background",
		time.Duration(float64(time.Second)/float64(max(repCfg.BackgroundHz, 1))))

	// Journal (optional).
	var recordJournal replication.Journal
	if config.GetBool("journal.enabled") {
		dbManager := database.NewManager(zlog)
		if err := dbManager.Connect(); err != nil {
			return nil, fmt.Errorf("connecting journal database: %w", err)
		}
		if err := dbManager.Setup(journal.Models...); err != nil {
			return nil, fmt.Errorf("migrating journal schema: %w", err)
		}
		a.journal = journal.NewService(dbManager.DB, journal.DefaultFlushInterval, a.logger)
		a.journal.Start()
		recordJournal = a.journal
	}

	a.receiver = replication.NewReceiver(a.objects, a.stats, recordJournal, a.logger)

	d, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	d.Register(core.ComponentKeyTransform, func(e dispatcher.Event) error {
		return a.receiver.HandleSnapshot(e.Message)
	}, dispatcher.Buffered(4096))
	a.dispatcher = d

	// Transport.
	switch tCfg.Type {
	case "websocket":
		backend := wstransport.New(wstransport.Config{
			URL:         tCfg.URL,
			Secret:      config.GetString("transport.secret"),
			Session:     tCfg.Session,
			Participant: tCfg.Participant,
		}, a.logger)
		backend.SetSink(d.Sink())
		backend.SetAuthorityHandler(func(id core.ObjectID, authoritative bool) {
			if h, ok := a.objects.Get(id); ok {
				h.SetAuthoritative(authoritative)
			} else {
				a.logger.Warn("Authority grant for unknown object", "object", id)
			}
		})
		if err := backend.Init(); err != nil {
			return nil, fmt.Errorf("joining session: %w", err)
		}
		a.wsBackend = backend
		a.broadcaster = backend
	default:
		bus := transport.NewBus()
		bus.Subscribe(d.Sink())
		a.bus = bus
		a.broadcaster = bus
	}

	// Metrics export (optional).
	if config.GetBool("influx.enabled") {
		a.influx = influx.NewManager(zlog,
			filepath.Join(logsDir, "influx_backup.gz"))
		if err := a.influx.Connect(); err != nil {
			a.logger.Warn("InfluxDB unavailable", "error", err)
			a.influx = nil
		}
	}

	monitorDeps := monitor.Dependencies{
		LogManager: a.logManager,
		Stats:      a.stats,
		Objects:    a.objects,
		Influx:     a.influx,
		Session:    tCfg.Session,
		StatusDir:  logsDir,
	}
	if a.journal != nil {
		monitorDeps.JournalPending = a.journal.Pending
	}
	a.monitor = monitor.NewService(monitorDeps)
	if err := a.monitor.Start(); err != nil {
		return nil, fmt.Errorf("starting monitor: %w", err)
	}

	return a, nil
}

// register creates a replicated object and binds its authority lifecycle.
// The returned controller is already initialized; Deinitialize it when the
// object leaves the session.
func (a *app) register(id core.ObjectID, frame *scheduler.TickContext) (*object.Handle, *replication.Controller, error) {
	if _, ok := a.objects.Get(id); ok {
		return nil, nil, fmt.Errorf("object %d already registered", id)
	}

	repCfg := config.GetReplicationConfig()
	h := object.NewHandle(id, frame)
	a.objects.Add(h)

	det := detector.New(detector.Thresholds{
		Position: repCfg.PositionThreshold,
		Rotation: repCfg.RotationThreshold,
		Scale:    repCfg.ScaleThreshold,
	})
	loop := replication.NewLoop(h, det, a.broadcaster, repCfg.SnapshotsPerSecond, a.stats, a.logger)
	ctrl := replication.NewController(h, loop, a.background, a.logger)
	ctrl.Initialize()
	return h, ctrl, nil
}

// unregister tears an object down and forgets its ordering state.
func (a *app) unregister(h *object.Handle, ctrl *replication.Controller) {
	ctrl.Deinitialize()
	// The transform component does not outlive its entity.
	if core.DestroyWithoutParent {
		h.Destroy()
	}
	a.objects.Remove(h.ID())
	a.receiver.Forget(h.ID())
}

func (a *app) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.journal != nil {
		a.journal.Stop()
	}
	if a.wsBackend != nil {
		if err := a.wsBackend.Close(); err != nil {
			a.logger.Warn("Transport close failed", "error", err)
		}
	}
	if a.logManager != nil {
		if err := a.logManager.Flush(ctx); err != nil {
			a.logger.Warn("Log flush failed", "error", err)
		}
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "otel shutdown:", err)
		}
	}
}

func init() {
	// viper keys are case-insensitive; keep lookups consistent.
	viper.SetEnvPrefix("TRANSFORMSYNC")
	viper.AutomaticEnv()
}
