package rigidbody

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/spatial"
	"github.com/kvoxel/sim/voxel"
	"github.com/kvoxel/sim/voxobj"
)

// MaxBodyBodyPairsPerTick bounds how many body-body contact pairs are
// resolved in a single Step, per spec.md §4.6's "pair budget is capped".
const MaxBodyBodyPairsPerTick = 512

// obbSamplePoints are the 14 reference points (8 corners + 6 face centers)
// sampled against the voxel field, in object-local unit-box coordinates
// (scaled by HalfExtents before use).
var obbSamplePoints = [14]mgl32.Vec3{
	{1, 1, 1}, {1, 1, -1}, {1, -1, 1}, {1, -1, -1},
	{-1, 1, 1}, {-1, 1, -1}, {-1, -1, 1}, {-1, -1, -1},
	{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1},
}

// Solver owns the set of live bodies and steps them against a voxel
// field and each other. Gravity and the broadphase grid are solver-scoped
// (never global), per the scene-ownership design.
type Solver struct {
	Gravity mgl32.Vec3
	Dt      float32

	bodies   []*Body
	byObject map[*voxobj.Object]int

	grid *spatial.Grid
}

// NewSolver creates a solver stepping at the given fixed tick length.
func NewSolver(dt float32) *Solver {
	return &Solver{
		Gravity:  mgl32.Vec3{0, -9.81, 0},
		Dt:       dt,
		byObject: make(map[*voxobj.Object]int),
		grid:     spatial.NewGrid(1.0),
	}
}

// AddBody registers o with the solver (spec.md §4.6's add_body), deriving
// mass from voxel count via o.Recalc (assumed already current).
func (s *Solver) AddBody(o *voxobj.Object) *Body {
	b := NewBody(o)
	s.byObject[o] = len(s.bodies)
	s.bodies = append(s.bodies, b)
	return b
}

// RemoveBody drops b from the solver (remove_body). Uses swap-remove;
// does not preserve body order.
func (s *Solver) RemoveBody(b *Body) {
	idx, ok := s.byObject[b.Object]
	if !ok {
		return
	}
	last := len(s.bodies) - 1
	s.bodies[idx] = s.bodies[last]
	s.byObject[s.bodies[idx].Object] = idx
	s.bodies = s.bodies[:last]
	delete(s.byObject, b.Object)
}

// FindBodyForObject returns the body wrapping o, if any (find_body_for_object).
func (s *Solver) FindBodyForObject(o *voxobj.Object) (*Body, bool) {
	idx, ok := s.byObject[o]
	if !ok {
		return nil, false
	}
	return s.bodies[idx], true
}

// Bodies returns the live body list for read-only iteration (snapshotting).
func (s *Solver) Bodies() []*Body { return s.bodies }

// Step advances every live, awake, non-static body by one fixed tick
// against vol, then resolves body-body contacts.
//
// Body-body contacts are resolved in a single pass over broadphase pairs,
// in array order, rather than iterated to convergence — an explicit design
// choice (spec.md left resolution order an open question) favoring
// determinism and a bounded per-tick cost over perfect accuracy for deep
// stacks of bodies, which this simulation does not expect to produce.
func (s *Solver) Step(vol *voxel.Volume) {
	for _, b := range s.bodies {
		s.integrate(b, vol)
	}
	s.resolveBodyBody()
}

func (s *Solver) integrate(b *Body, vol *voxel.Volume) {
	if b.Flags.Static || b.Flags.Sleeping {
		return
	}
	o := b.Object
	dt := s.Dt

	if !b.Flags.Kinematic {
		if !b.Flags.Grounded {
			o.Velocity = o.Velocity.Add(s.Gravity.Mul(dt))
		}

		linDamp := LinDampAirborne
		if b.Flags.Grounded {
			linDamp = LinDampGrounded
		}
		o.Velocity = o.Velocity.Mul(linDamp)
		o.AngularVelocity = o.AngularVelocity.Mul(AngDamp)

		o.Velocity = clampLen(o.Velocity, VMax)
		o.AngularVelocity = clampLen(o.AngularVelocity, WMax)
	}

	o.Position = o.Position.Add(o.Velocity.Mul(dt))
	o.Orientation = integrateOrientation(o.Orientation, o.AngularVelocity, dt)

	b.posCorrection = mgl32.Vec3{}
	s.terrainContacts(b, vol)
	if b.posCorrection.Len() > 0 {
		capv := MaxPosCorrect * o.VoxelSize
		o.Position = o.Position.Add(clampLen(b.posCorrection, capv))
	}

	s.updateGroundingAndSleep(b)
}

// integrateOrientation implements orientation += 0.5 * w_quat * orientation * dt,
// then renormalizes.
func integrateOrientation(q mgl32.Quat, w mgl32.Vec3, dt float32) mgl32.Quat {
	prod := hamilton(mgl32.Quat{W: 0, V: w}, q)
	next := mgl32.Quat{
		W: q.W + 0.5*dt*prod.W,
		V: q.V.Add(prod.V.Mul(0.5 * dt)),
	}
	return next.Normalize()
}

func hamilton(a, b mgl32.Quat) mgl32.Quat {
	return mgl32.Quat{
		W: a.W*b.W - a.V.Dot(b.V),
		V: a.V.Cross(b.V).Add(b.V.Mul(a.W)).Add(a.V.Mul(b.W)),
	}
}

func clampLen(v mgl32.Vec3, max float32) mgl32.Vec3 {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Mul(max / l)
}

func (s *Solver) terrainContacts(b *Body, vol *voxel.Volume) {
	o := b.Object
	groundedThisTick := false
	const probe = 0.5 // * voxel_size

	for _, unit := range obbSamplePoints {
		localPt := mgl32.Vec3{unit.X() * o.HalfExtents.X(), unit.Y() * o.HalfExtents.Y(), unit.Z() * o.HalfExtents.Z()}
		p := o.Position.Add(o.Orientation.Rotate(localPt))

		if vol.GetAt(p) == 0 {
			continue
		}

		d := probe * o.VoxelSize
		gx := occ(vol, p.Add(mgl32.Vec3{d, 0, 0})) - occ(vol, p.Sub(mgl32.Vec3{d, 0, 0}))
		gy := occ(vol, p.Add(mgl32.Vec3{0, d, 0})) - occ(vol, p.Sub(mgl32.Vec3{0, d, 0}))
		gz := occ(vol, p.Add(mgl32.Vec3{0, 0, d})) - occ(vol, p.Sub(mgl32.Vec3{0, 0, d}))
		n := mgl32.Vec3{-gx, -gy, -gz}
		if n.Len() < 1e-6 {
			n = mgl32.Vec3{0, 1, 0}
		} else {
			n = n.Normalize()
		}

		depth := float32(0)
		step := o.VoxelSize / 4
		for steps := 0; steps < 8; steps++ {
			depth += step
			if vol.GetAt(p.Add(n.Mul(depth))) == 0 {
				break
			}
		}
		if depth <= ContactSlop {
			continue
		}

		if n.Y() > 0.7 {
			groundedThisTick = true
		}

		r := p.Sub(o.WorldCoM())
		vp := o.Velocity.Add(o.AngularVelocity.Cross(r))
		vn := vp.Dot(n)
		if vn < 0 {
			rCrossN := r.Cross(n)
			angTerm := n.Dot(applyInvInertia(o, rCrossN).Cross(r))
			effMassDenom := o.InvMass + angTerm
			if effMassDenom < 1e-8 {
				effMassDenom = 1e-8
			}

			restitution := b.Restitution
			if -vn < RestitutionFloor {
				restitution = 0
			}
			jn := -(1 + restitution) * vn / effMassDenom
			if jn < 0 {
				jn = 0
			}
			impulse := n.Mul(jn)
			o.Velocity = o.Velocity.Add(impulse.Mul(o.InvMass))
			o.AngularVelocity = o.AngularVelocity.Add(applyInvInertia(o, r.Cross(impulse)))

			tangentVel := vp.Sub(n.Mul(vn))
			if tl := tangentVel.Len(); tl > 1e-6 {
				t := tangentVel.Mul(-1 / tl)
				jt := -vp.Dot(t) / effMassDenom
				maxJt := b.Friction * jn
				if jt > maxJt {
					jt = maxJt
				} else if jt < -maxJt {
					jt = -maxJt
				}
				fImpulse := t.Mul(jt)
				o.Velocity = o.Velocity.Add(fImpulse.Mul(o.InvMass))
				o.AngularVelocity = o.AngularVelocity.Add(applyInvInertia(o, r.Cross(fImpulse)))
			}
		}

		bias := Baumgarte * (depth - ContactSlop) / s.Dt
		b.posCorrection = b.posCorrection.Add(n.Mul(bias * s.Dt))
	}

	if groundedThisTick {
		b.Flags.Grounded = true
		b.GroundFrames = GroundPersist
	} else if b.GroundFrames > 0 {
		b.GroundFrames--
		if b.GroundFrames == 0 {
			b.Flags.Grounded = false
		}
	} else {
		b.Flags.Grounded = false
	}
}

func occ(vol *voxel.Volume, p mgl32.Vec3) float32 {
	if vol.GetAt(p) != 0 {
		return 1
	}
	return 0
}

func (s *Solver) updateGroundingAndSleep(b *Body) {
	o := b.Object
	speed := o.Velocity.Len()
	angSpeed := o.AngularVelocity.Len()

	if b.Flags.Grounded && speed < SettleLinear && angSpeed < SettleAngular {
		if b.GroundFrames >= GroundPersist {
			o.Velocity = mgl32.Vec3{}
			o.AngularVelocity = mgl32.Vec3{}
		}
	}

	if speed < SleepLinear && angSpeed < SleepAngular {
		b.SleepFrames++
		if b.SleepFrames >= SleepFrames {
			b.Flags.Sleeping = true
			o.Velocity = mgl32.Vec3{}
			o.AngularVelocity = mgl32.Vec3{}
		}
	} else {
		b.SleepFrames = 0
	}
}

func (s *Solver) resolveBodyBody() {
	s.grid.Clear()
	for i, b := range s.bodies {
		if !b.Object.Active {
			continue
		}
		s.grid.Insert(spatial.Id(i), b.Object.WorldAABB())
	}

	type pair struct{ a, b int }
	seen := make(map[pair]bool)
	var pairs []pair

	for i, b := range s.bodies {
		if !b.Object.Active || b.Flags.Sleeping {
			continue
		}
		cellSize := 1.5 * b.Object.Radius
		if cellSize <= 0 {
			continue
		}
		candidates := s.grid.QueryRadius(b.Object.WorldCoM(), cellSize)
		for _, c := range candidates {
			j := int(c)
			if j == i {
				continue
			}
			p := pair{i, j}
			if p.a > p.b {
				p.a, p.b = p.b, p.a
			}
			if seen[p] {
				continue
			}
			seen[p] = true
			pairs = append(pairs, p)
			if len(pairs) >= MaxBodyBodyPairsPerTick {
				break
			}
		}
		if len(pairs) >= MaxBodyBodyPairsPerTick {
			break
		}
	}

	for _, p := range pairs {
		s.resolvePair(s.bodies[p.a], s.bodies[p.b])
	}
}

func (s *Solver) resolvePair(a, b *Body) {
	oa, ob := a.Object, b.Object
	delta := ob.WorldCoM().Sub(oa.WorldCoM())
	dist := delta.Len()
	minDist := oa.Radius + ob.Radius
	if dist >= minDist || dist < 1e-6 {
		return
	}
	n := delta.Mul(1 / dist)
	penetration := minDist - dist

	relVel := ob.Velocity.Sub(oa.Velocity)
	vn := relVel.Dot(n)
	if vn > 0 {
		return
	}

	restitution := (a.Restitution + b.Restitution) * 0.5
	invMassSum := oa.InvMass + ob.InvMass
	if invMassSum < 1e-8 {
		return
	}
	jn := -(1 + restitution) * vn / invMassSum

	impulse := n.Mul(jn)
	oa.Velocity = oa.Velocity.Sub(impulse.Mul(oa.InvMass))
	ob.Velocity = ob.Velocity.Add(impulse.Mul(ob.InvMass))

	correction := n.Mul(penetration * 0.5)
	oa.Position = oa.Position.Sub(correction)
	ob.Position = ob.Position.Add(correction)

	if jn > WakeImpulseMin {
		a.Wake()
		b.Wake()
	}
}
