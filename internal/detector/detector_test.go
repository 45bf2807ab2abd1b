package detector

import (
	"testing"

	"github.com/distsim/transformsync/pkg/core"
)

func baseSnapshot() core.TransformSnapshot {
	return core.TransformSnapshot{
		Position: core.Vector3{X: 1, Y: 2, Z: 3},
		Rotation: core.Identity(),
		Scale:    core.One(),
	}
}

func TestDirty_NoChange(t *testing.T) {
	d := New(DefaultThresholds())
	s := baseSnapshot()
	if d.Dirty(s, s) {
		t.Error("identical snapshots must not be dirty")
	}
}

func TestDirty_PositionThresholdBoundary(t *testing.T) {
	d := New(DefaultThresholds())
	last := baseSnapshot()

	// Exactly at the threshold: clean.
	atThreshold := last
	atThreshold.Position.X += DefaultThresholds().Position
	if d.Dirty(atThreshold, last) {
		t.Error("delta exactly at threshold must not trigger dirty")
	}

	// Just over: dirty.
	over := last
	over.Position.X += DefaultThresholds().Position + 1e-9
	if !d.Dirty(over, last) {
		t.Error("delta above threshold must trigger dirty")
	}
}

func TestDirty_EachPositionAxis(t *testing.T) {
	d := New(DefaultThresholds())
	last := baseSnapshot()

	for axis, mutate := range map[string]func(*core.TransformSnapshot){
		"X": func(s *core.TransformSnapshot) { s.Position.X += 0.01 },
		"Y": func(s *core.TransformSnapshot) { s.Position.Y += 0.01 },
		"Z": func(s *core.TransformSnapshot) { s.Position.Z += 0.01 },
	} {
		live := last
		mutate(&live)
		if !d.Dirty(live, last) {
			t.Errorf("position axis %s change not detected", axis)
		}
	}
}

func TestDirty_RotationComponentWise(t *testing.T) {
	d := New(DefaultThresholds())
	last := baseSnapshot()

	live := last
	live.Rotation = core.Quaternion{X: 0.1, Y: 0, Z: 0, W: 0.99498743710662}
	if !d.Dirty(live, last) {
		t.Error("rotation change not detected")
	}

	// q and -q represent the same rotation but compare component-wise as
	// different. Documented behavior, not a bug.
	negated := last
	negated.Rotation = core.Quaternion{X: 0, Y: 0, Z: 0, W: -1}
	if !d.Dirty(negated, last) {
		t.Error("negated quaternion compares as changed under component-wise checks")
	}
}

func TestDirty_ScaleEpsilon(t *testing.T) {
	d := New(DefaultThresholds())
	last := baseSnapshot()

	live := last
	live.Scale.Y += 0.001
	if !d.Dirty(live, last) {
		t.Error("scale change above epsilon not detected")
	}

	tiny := last
	tiny.Scale.Y += 1e-9
	if d.Dirty(tiny, last) {
		t.Error("scale jitter below epsilon must not trigger dirty")
	}
}
