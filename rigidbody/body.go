// Package rigidbody implements the fixed-timestep rigid body solver:
// integration, terrain contacts against a voxel field, sleeping/rest
// promotion, and body-body contacts via a spatial-hash broadphase.
package rigidbody

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/voxobj"
)

// Tunables, named after spec.md §4.6's own vocabulary.
const (
	VMax = float32(20.0)
	WMax = float32(12.0)

	LinDampGrounded = float32(0.90)
	LinDampAirborne = float32(0.995)
	AngDamp         = float32(0.95)

	SettleLinear  = float32(0.05)
	SettleAngular = float32(0.05)
	GroundPersist = 8

	SleepLinear  = float32(0.02)
	SleepAngular = float32(0.02)
	SleepFrames  = 30

	ContactSlop     = float32(0.01)
	Baumgarte       = float32(0.2)
	WakeImpulseMin  = float32(0.05)
	MaxPosCorrect   = float32(1.5) // * voxel_size, applied in Solver.Step
	RestitutionFloor = float32(0.5)
)

// Flags mirror the body's boolean state bits from spec.md §4.6.
type Flags struct {
	Static   bool
	Kinematic bool
	Sleeping bool
	Grounded bool
}

// Body wraps a voxel object with the additional per-tick dynamic state the
// solver needs: the object itself already carries position, orientation,
// velocity, mass, and inertia (voxobj.Object.Recalc populates those).
type Body struct {
	Object *voxobj.Object

	Restitution float32
	Friction    float32

	GroundFrames int
	SleepFrames  int

	Flags Flags

	// posCorrection accumulates the tick's terrain position-correction
	// vector; applied once at the end of Step, capped per spec.md §4.6.
	posCorrection mgl32.Vec3
}

// NewBody wraps o with default material properties.
func NewBody(o *voxobj.Object) *Body {
	return &Body{Object: o, Restitution: 0.2, Friction: 0.6}
}

// Wake clears the sleeping flag and resets the sleep counter. Called
// automatically by ApplyImpulse when the impulse exceeds WakeImpulseMin,
// and exposed for external callers (spec.md §4.6's forces/impulse API).
func (b *Body) Wake() {
	b.Flags.Sleeping = false
	b.SleepFrames = 0
}

// SetVelocity overrides linear velocity and wakes the body.
func (b *Body) SetVelocity(v mgl32.Vec3) {
	b.Object.Velocity = v
	b.Wake()
}

// SetAngularVelocity overrides angular velocity and wakes the body.
func (b *Body) SetAngularVelocity(w mgl32.Vec3) {
	b.Object.AngularVelocity = w
	b.Wake()
}

// ApplyImpulse applies a linear+angular impulse at worldPoint, waking the
// body if the impulse is large enough.
func (b *Body) ApplyImpulse(impulse mgl32.Vec3, worldPoint mgl32.Vec3) {
	if b.Flags.Static || b.Flags.Kinematic {
		return
	}
	o := b.Object
	o.Velocity = o.Velocity.Add(impulse.Mul(o.InvMass))
	r := worldPoint.Sub(o.WorldCoM())
	angImpulse := r.Cross(impulse)
	o.AngularVelocity = o.AngularVelocity.Add(applyInvInertia(o, angImpulse))
	if impulse.Len() > WakeImpulseMin {
		b.Wake()
	}
}

func applyInvInertia(o *voxobj.Object, v mgl32.Vec3) mgl32.Vec3 {
	// World-space inverse inertia R·I⁻¹·Rᵀ: rotate into the body frame,
	// apply the local inverse inertia, rotate back.
	l := o.Orientation.Conjugate().Rotate(v)
	m := o.InvInertia
	return o.Orientation.Rotate(mgl32.Vec3{
		m[0]*l.X() + m[3]*l.Y() + m[6]*l.Z(),
		m[1]*l.X() + m[4]*l.Y() + m[7]*l.Z(),
		m[2]*l.X() + m[5]*l.Y() + m[8]*l.Z(),
	})
}
