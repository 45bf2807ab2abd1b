package main

import (
	"fmt"
	"math"
	"time"

	"github.com/distsim/transformsync/internal/config"
	"github.com/distsim/transformsync/internal/detector"
	"github.com/distsim/transformsync/internal/object"
	"github.com/distsim/transformsync/internal/replication"
	"github.com/distsim/transformsync/pkg/core"
)

// runDemo simulates a two-participant session over the in-memory bus: this
// participant owns object 1, a synthetic remote owns object 2. Requires
// transport.type "memory".
func (a *app) runDemo() error {
	if a.bus == nil {
		return fmt.Errorf("demo requires the memory transport")
	}
	a.logger.Info("Demo session starting")

	// Object we own. The loop starts broadcasting on the authority grant;
	// our own broadcasts come back through the bus and are self-dropped.
	local, localCtrl, err := a.register(1, nil)
	if err != nil {
		return err
	}
	defer a.unregister(local, localCtrl)
	local.SetAuthoritative(true)

	// Observer handle for the remote's object.
	observed, observedCtrl, err := a.register(2, nil)
	if err != nil {
		return err
	}
	defer a.unregister(observed, observedCtrl)

	// The synthetic remote: authoritative for object 2, broadcasting into
	// the same bus. Its handle stays out of our cache, exactly as a real
	// remote's state would.
	repCfg := config.GetReplicationConfig()
	remote := object.NewHandle(2, nil)
	remoteLoop := replication.NewLoop(
		remote,
		detector.New(detector.DefaultThresholds()),
		a.bus,
		repCfg.SnapshotsPerSecond,
		&replication.Stats{},
		a.logger,
	)
	remote.SetAuthoritative(true)
	remoteLoop.Start(a.background)
	defer remoteLoop.Stop()

	// Drive both simulations for a few seconds.
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(5 * time.Second)
	start := time.Now()

	for {
		select {
		case <-deadline:
			final := observed.Snapshot()
			a.logger.Info("Demo session complete",
				"broadcasts", a.stats.Broadcasts.Load(),
				"accepted", a.stats.Accepted.Load(),
				"stale", a.stats.Stale.Load(),
				"observedX", final.Position.X,
				"observedY", final.Position.Y,
			)
			return nil
		case <-ticker.C:
			t := time.Since(start).Seconds()
			local.SetTransform(core.TransformSnapshot{
				Position: core.Vector3{X: 10 * math.Cos(t), Y: 10 * math.Sin(t)},
				Rotation: core.Identity(),
				Scale:    core.One(),
			})
			remote.SetTransform(core.TransformSnapshot{
				Position: core.Vector3{X: 5 * t, Y: 2, Z: 1},
				Rotation: core.Identity(),
				Scale:    core.One(),
			})
		}
	}
}
