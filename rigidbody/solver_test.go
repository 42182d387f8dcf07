package rigidbody

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/voxel"
	"github.com/kvoxel/sim/voxobj"
)

func newFloorVolume(t *testing.T) *voxel.Volume {
	t.Helper()
	v, err := voxel.NewVolume(4, 4, 4, mgl32.Vec3{-64, -64, -64}, 1.0)
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	v.EditBegin()
	for z := -10; z < 10; z++ {
		for x := -10; x < 10; x++ {
			v.EditSet(mgl32.Vec3{float32(x) + 0.5, -0.5, float32(z) + 0.5}, 1)
		}
	}
	v.EditEnd()
	return v
}

func newBoxBody(t *testing.T, pos mgl32.Vec3) *voxobj.Object {
	t.Helper()
	o := &voxobj.Object{Position: pos, Orientation: mgl32.QuatIdent(), VoxelSize: 0.1}
	for z := 4; z < 12; z++ {
		for y := 4; y < 12; y++ {
			for x := 4; x < 12; x++ {
				o.Set(x, y, z, 1)
			}
		}
	}
	o.Recalc()
	return o
}

func TestBodySleepsAtRest(t *testing.T) {
	vol := newFloorVolume(t)
	s := NewSolver(1.0 / 60.0)
	o := newBoxBody(t, mgl32.Vec3{0, 0.39, 0})
	b := s.AddBody(o)

	for i := 0; i < 300; i++ {
		s.Step(vol)
	}

	if !b.Flags.Sleeping {
		t.Fatalf("expected body to fall asleep after settling, grounded=%v vel=%v", b.Flags.Grounded, o.Velocity)
	}
	pos := o.Position
	orient := o.Orientation
	s.Step(vol)
	if o.Position.Sub(pos).Len() > 1e-4 {
		t.Fatalf("sleeping body's position changed: %v -> %v", pos, o.Position)
	}
	if o.Orientation.Sub(orient).Len() > 1e-4 {
		t.Fatalf("sleeping body's orientation changed")
	}
}

func TestApplyImpulseWakesSleepingBody(t *testing.T) {
	o := &voxobj.Object{Orientation: mgl32.QuatIdent(), VoxelSize: 0.1}
	o.Set(8, 8, 8, 1)
	o.Recalc()
	s := NewSolver(1.0 / 60.0)
	b := s.AddBody(o)
	b.Flags.Sleeping = true
	b.SleepFrames = SleepFrames

	b.ApplyImpulse(mgl32.Vec3{10, 0, 0}, o.WorldCoM())
	if b.Flags.Sleeping {
		t.Fatalf("large impulse should wake the body")
	}
}

func TestFindBodyForObjectRoundTrip(t *testing.T) {
	o := &voxobj.Object{Orientation: mgl32.QuatIdent(), VoxelSize: 0.1}
	o.Set(0, 0, 0, 1)
	o.Recalc()
	s := NewSolver(1.0 / 60.0)
	b := s.AddBody(o)

	found, ok := s.FindBodyForObject(o)
	if !ok || found != b {
		t.Fatalf("expected to find the body for its object")
	}

	s.RemoveBody(b)
	if _, ok := s.FindBodyForObject(o); ok {
		t.Fatalf("expected lookup to fail after removal")
	}
}

func TestGravityAppliesWhenNotGrounded(t *testing.T) {
	vol := newFloorVolume(t)
	s := NewSolver(1.0 / 60.0)
	o := newBoxBody(t, mgl32.Vec3{0, 50, 0})
	s.AddBody(o)
	s.Step(vol)
	if o.Velocity.Y() >= 0 {
		t.Fatalf("expected downward velocity after one tick of gravity, got %v", o.Velocity)
	}
}

func TestBodyBodyContactSeparatesOverlappingSpheres(t *testing.T) {
	s := NewSolver(1.0 / 60.0)
	a := &voxobj.Object{Orientation: mgl32.QuatIdent(), VoxelSize: 0.5, Position: mgl32.Vec3{0, 0, 0}}
	a.Set(8, 8, 8, 1)
	a.Recalc()
	a.Active = true

	b := &voxobj.Object{Orientation: mgl32.QuatIdent(), VoxelSize: 0.5, Position: mgl32.Vec3{0.2, 0, 0}}
	b.Set(8, 8, 8, 1)
	b.Recalc()
	b.Active = true

	s.AddBody(a)
	s.AddBody(b)
	before := b.Position.X() - a.Position.X()
	s.resolveBodyBody()
	after := b.Position.X() - a.Position.X()
	if after <= before {
		t.Fatalf("expected overlapping bodies to separate: before=%v after=%v", before, after)
	}
}
