// Package detector decides whether a live transform has drifted far enough
// from the last broadcast snapshot to warrant resending.
package detector

import (
	"math"

	"github.com/distsim/transformsync/pkg/core"
)

// Thresholds holds the per-field precision below which changes are ignored.
// These are configuration, not derived state.
type Thresholds struct {
	Position float64
	Rotation float64
	Scale    float64
}

// DefaultThresholds returns the stock precision configuration. The scale
// threshold sits near float32 epsilon because scale changes are rare and any
// real change should propagate.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Position: 0.001,
		Rotation: 0.001,
		Scale:    1e-6,
	}
}

// Detector compares transforms against thresholds.
type Detector struct {
	t Thresholds
}

// New creates a Detector with the given thresholds.
func New(t Thresholds) *Detector {
	return &Detector{t: t}
}

// Dirty reports whether any field of live exceeds its threshold relative to
// lastSent. Checks are an order-independent OR; the first exceeded threshold
// short-circuits.
//
// Rotation is compared component-wise rather than by angular distance, so q
// and -q (the same rotation) compare as maximally different. That matches
// the wire peer's behavior and is deliberately left as-is.
func (d *Detector) Dirty(live, lastSent core.TransformSnapshot) bool {
	if exceeds(live.Position.X, lastSent.Position.X, d.t.Position) ||
		exceeds(live.Position.Y, lastSent.Position.Y, d.t.Position) ||
		exceeds(live.Position.Z, lastSent.Position.Z, d.t.Position) {
		return true
	}
	if exceeds(live.Rotation.X, lastSent.Rotation.X, d.t.Rotation) ||
		exceeds(live.Rotation.Y, lastSent.Rotation.Y, d.t.Rotation) ||
		exceeds(live.Rotation.Z, lastSent.Rotation.Z, d.t.Rotation) ||
		exceeds(live.Rotation.W, lastSent.Rotation.W, d.t.Rotation) {
		return true
	}
	if exceeds(live.Scale.X, lastSent.Scale.X, d.t.Scale) ||
		exceeds(live.Scale.Y, lastSent.Scale.Y, d.t.Scale) ||
		exceeds(live.Scale.Z, lastSent.Scale.Z, d.t.Scale) {
		return true
	}
	return false
}

// exceeds is strict: a delta exactly at the threshold does not trigger.
func exceeds(a, b, threshold float64) bool {
	return math.Abs(a-b) > threshold
}
