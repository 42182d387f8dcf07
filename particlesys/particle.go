// Package particlesys implements a visual-only particle system for debris
// and impact effects: circular-buffer allocation, age-prioritized budgeted
// updates, and spatial-hash particle-particle collision. It is not
// integrated with the rigid body solver.
package particlesys

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/rng"
	"github.com/kvoxel/sim/spatial"
	"github.com/kvoxel/sim/voxmath"
)

// ParticleMax is the fixed slot count of the circular buffer. Exceeding it
// overwrites the oldest particle — there is no other form of removal.
const ParticleMax = 4096

// MaxUpdatesPerTick bounds the round-robin budget for the "old particle"
// pass; young particles always update regardless of budget.
const MaxUpdatesPerTick = 1024

// MaxCollisionPairs bounds particle-particle collision resolution per tick.
const MaxCollisionPairs = 2048

// YoungAgeThreshold is the lifetime, in seconds, below which a particle
// always updates (pass 1) instead of competing for round-robin budget.
const YoungAgeThreshold = float32(1.0)

// SettleVelocity is the speed below which a particle near the floor is
// marked settled and skips further integration.
const SettleVelocity = float32(0.15)

// Particle is one debris/effect particle.
type Particle struct {
	Position        mgl32.Vec3
	PrevPosition    mgl32.Vec3
	Velocity        mgl32.Vec3
	Rotation        mgl32.Vec3
	PrevRotation    mgl32.Vec3
	AngularVelocity mgl32.Vec3
	Color           mgl32.Vec3
	Radius          float32
	Lifetime        float32
	Active          bool
	Settled         bool
}

// System owns the fixed particle array, the floor bound it bounces against,
// and the broadphase grid used for particle-particle collision.
type System struct {
	particles [ParticleMax]Particle
	count     int
	nextSlot  int

	FloorY         float32
	Gravity        mgl32.Vec3
	Damping        float32
	Restitution    float32
	FloorFriction  float32
	EnableCollide  bool

	grid          *spatial.Grid
	updateCursor  int
	activeCount   int
}

// NewSystem creates a particle system bouncing off floorY.
func NewSystem(floorY float32) *System {
	return &System{
		FloorY:        floorY,
		Gravity:       mgl32.Vec3{0, -18, 0},
		Damping:       0.985,
		Restitution:   0.45,
		FloorFriction: 0.88,
		EnableCollide: true,
		grid:          spatial.NewGrid(0.25),
	}
}

// ActiveCount returns the number of live (active) particle slots.
func (s *System) ActiveCount() int { return s.activeCount }

// addSlot advances the circular buffer cursor and returns the slot about
// to be (re)used, tracking activeCount per the "only increments if the
// slot being overwritten was not already active" rule.
func (s *System) addSlot() *Particle {
	slot := s.nextSlot
	s.nextSlot = (s.nextSlot + 1) % ParticleMax
	if s.count < ParticleMax {
		s.count++
	}
	p := &s.particles[slot]
	if !p.Active {
		s.activeCount++
	}
	return p
}

func randomSpin(r *rng.State) mgl32.Vec3 {
	return mgl32.Vec3{r.SignedHalf() * 20, r.SignedHalf() * 20, r.SignedHalf() * 20}
}

func clamp01(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{voxmath.Clamp(v.X(), 0, 1), voxmath.Clamp(v.Y(), 0, 1), voxmath.Clamp(v.Z(), 0, 1)}
}

// Add inserts one particle directly (used by tests and simple spawns).
func (s *System) Add(position, velocity, color mgl32.Vec3, radius float32, r *rng.State) int {
	p := s.addSlot()
	*p = Particle{
		Position:        position,
		PrevPosition:    position,
		Velocity:        velocity,
		AngularVelocity: randomSpin(r),
		Color:           color,
		Radius:          radius,
		Active:          true,
	}
	return s.slotIndex(p)
}

func (s *System) slotIndex(p *Particle) int {
	for i := range s.particles {
		if &s.particles[i] == p {
			return i
		}
	}
	return -1
}

// SpawnExplosion scatters count particles radially from center, grounded
// on the original impact-free debris burst.
func (s *System) SpawnExplosion(r *rng.State, center mgl32.Vec3, radius float32, color mgl32.Vec3, count int, force float32) int {
	spawned := 0
	for i := 0; i < count; i++ {
		theta := r.Float() * 2 * math.Pi
		phi := float64(r.Float()) * math.Pi
		rad := r.Float() * radius * 0.8

		sinPhi := float32(math.Sin(phi))
		offset := mgl32.Vec3{
			rad * sinPhi * float32(math.Cos(float64(theta))),
			rad * float32(math.Cos(phi)),
			rad * sinPhi * float32(math.Sin(float64(theta))),
		}

		var dir mgl32.Vec3
		if offset.Len() > 0.001 {
			dir = offset.Normalize()
		} else {
			dir = mgl32.Vec3{0, 1, 0}
		}

		speedVar := 0.5 + r.Float()*1.0
		vel := dir.Mul(force * speedVar)
		vel = mgl32.Vec3{vel.X(), vel.Y() + force*0.3*r.Float(), vel.Z()}

		colorVar := 0.9 + r.Float()*0.2
		pc := clamp01(color.Mul(colorVar))

		p := s.addSlot()
		*p = Particle{
			Position:        center.Add(offset),
			PrevPosition:    center.Add(offset),
			Velocity:        vel,
			AngularVelocity: randomSpin(r),
			Color:           pc,
			Radius:          0.04 + r.Float()*0.03,
			Active:          true,
		}
		spawned++
	}
	return spawned
}

// SpawnAtImpact scatters count particles in a cone around the impact
// direction (from ballCenter toward impactPoint).
func (s *System) SpawnAtImpact(r *rng.State, impactPoint, ballCenter mgl32.Vec3, ballRadius float32, color mgl32.Vec3, count int, force float32) int {
	impactDir := impactPoint.Sub(ballCenter)
	if l := impactDir.Len(); l > 0.001 {
		impactDir = impactDir.Mul(1 / l)
	} else {
		impactDir = mgl32.Vec3{0, 1, 0}
	}

	up := mgl32.Vec3{0, 1, 0}
	if float32(math.Abs(float64(impactDir.Y()))) >= 0.9 {
		up = mgl32.Vec3{1, 0, 0}
	}
	right := up.Cross(impactDir).Normalize()
	tangent := impactDir.Cross(right)

	spawned := 0
	for i := 0; i < count; i++ {
		spreadTheta := float64(r.SignedHalf()) * math.Pi * 0.8
		spreadPhi := float64(r.Float()) * 2 * math.Pi
		rad := r.Float() * ballRadius * 0.3

		ct, st := float32(math.Cos(spreadTheta)), float32(math.Sin(spreadTheta))
		cp, sp := float32(math.Cos(spreadPhi)), float32(math.Sin(spreadPhi))

		dir := mgl32.Vec3{
			impactDir.X()*ct + right.X()*st*cp + tangent.X()*st*sp,
			impactDir.Y()*ct + right.Y()*st*cp + tangent.Y()*st*sp,
			impactDir.Z()*ct + right.Z()*st*cp + tangent.Z()*st*sp,
		}.Normalize()

		offset := dir.Mul(rad).Add(impactDir.Mul(ballRadius * 0.1))

		speedVar := 0.5 + r.Float()*1.0
		vel := dir.Mul(force * speedVar)

		colorVar := 0.85 + r.Float()*0.3
		pc := clamp01(color.Mul(colorVar))

		p := s.addSlot()
		*p = Particle{
			Position:        impactPoint.Add(offset),
			PrevPosition:    impactPoint.Add(offset),
			Velocity:        vel,
			AngularVelocity: randomSpin(r),
			Color:           pc,
			Radius:          0.03 + r.Float()*0.04,
			Active:          true,
		}
		spawned++
	}
	return spawned
}

// Update advances every active, unsettled particle by one tick following
// spec.md §4.7: save-prev, age, young-priority unconditional pass, then a
// round-robin budgeted pass for older particles, then spatial-hash
// particle-particle collision, then settle detection.
func (s *System) Update(dt float32) {
	for i := 0; i < s.count; i++ {
		p := &s.particles[i]
		if !p.Active {
			continue
		}
		p.PrevPosition = p.Position
		p.PrevRotation = p.Rotation
	}

	for i := 0; i < s.count; i++ {
		p := &s.particles[i]
		if !p.Active {
			continue
		}
		p.Lifetime += dt
	}

	maxVelocity := float32(0.03) / dt
	if maxVelocity < 10 {
		maxVelocity = 10
	}
	if maxVelocity > 30 {
		maxVelocity = 30
	}

	processed := 0

	for i := 0; i < s.count; i++ {
		p := &s.particles[i]
		if !p.Active || p.Settled || p.Lifetime > YoungAgeThreshold {
			continue
		}
		s.integrateOne(p, dt, maxVelocity)
	}

	budget := MaxUpdatesPerTick
	cursor := s.updateCursor
	checked := 0
	for processed < budget && checked < s.count {
		if cursor >= s.count {
			cursor = 0
		}
		p := &s.particles[cursor]
		cursor++
		checked++
		if !p.Active || p.Settled || p.Lifetime <= YoungAgeThreshold {
			continue
		}
		s.integrateOne(p, dt, maxVelocity)
		processed++
	}
	s.updateCursor = cursor

	if s.EnableCollide {
		s.resolveCollisions()
	}

	for i := 0; i < s.count; i++ {
		p := &s.particles[i]
		if !p.Active || p.Settled {
			continue
		}
		floorDist := p.Position.Y() - p.Radius - s.FloorY
		if p.Velocity.Len() < SettleVelocity && floorDist < 0.02 {
			p.Settled = true
			p.Velocity = mgl32.Vec3{}
		}
	}
}

func (s *System) integrateOne(p *Particle, dt, maxVelocity float32) {
	p.Velocity = p.Velocity.Add(s.Gravity.Mul(dt))

	if speedSq := p.Velocity.Dot(p.Velocity); speedSq > maxVelocity*maxVelocity {
		speed := float32(math.Sqrt(float64(speedSq)))
		p.Velocity = p.Velocity.Mul(maxVelocity / speed)
	}

	p.Velocity = p.Velocity.Mul(s.Damping)

	floorDist := p.Position.Y() - p.Radius - s.FloorY
	if floorDist < 0.05 {
		p.Velocity = mgl32.Vec3{p.Velocity.X() * s.FloorFriction, p.Velocity.Y(), p.Velocity.Z() * s.FloorFriction}
		p.AngularVelocity = p.AngularVelocity.Mul(0.9)
	}

	p.Position = p.Position.Add(p.Velocity.Mul(dt))
	p.Rotation = p.Rotation.Add(p.AngularVelocity.Mul(dt))
	p.AngularVelocity = p.AngularVelocity.Mul(0.995)

	if p.Position.Y()-p.Radius < s.FloorY {
		p.Position = mgl32.Vec3{p.Position.X(), s.FloorY + p.Radius, p.Position.Z()}
		p.Velocity = mgl32.Vec3{p.Velocity.X(), -p.Velocity.Y() * s.Restitution, p.Velocity.Z()}
	}
}

func (s *System) resolveCollisions() {
	s.grid.Clear()
	for i := 0; i < s.count; i++ {
		p := &s.particles[i]
		if !p.Active || p.Settled {
			continue
		}
		r := mgl32.Vec3{p.Radius, p.Radius, p.Radius}
		s.grid.Insert(spatial.Id(i), voxmath.AABB{Min: p.Position.Sub(r), Max: p.Position.Add(r)})
	}

	pairBudget := MaxCollisionPairs
	for i := 0; i < s.count && pairBudget > 0; i++ {
		pi := &s.particles[i]
		if !pi.Active || pi.Settled {
			continue
		}
		nearby := s.grid.QueryRadius(pi.Position, pi.Radius*2)
		for _, idx := range nearby {
			j := int(idx)
			if j <= i || pairBudget <= 0 {
				continue
			}
			pj := &s.particles[j]
			if !pj.Active || pj.Settled {
				continue
			}
			resolveParticlePair(pi, pj, s.Restitution)
			pairBudget--
		}
	}
}

func resolveParticlePair(a, b *Particle, restitution float32) {
	delta := b.Position.Sub(a.Position)
	dist := delta.Len()
	minDist := a.Radius + b.Radius
	if dist >= minDist || dist < 0.0001 {
		return
	}

	normal := delta.Mul(1 / dist)
	overlap := minDist - dist
	a.Position = a.Position.Sub(normal.Mul(overlap * 0.5))
	b.Position = b.Position.Add(normal.Mul(overlap * 0.5))

	relVel := a.Velocity.Sub(b.Velocity)
	vn := relVel.Dot(normal)
	if vn > 0 {
		return
	}

	j := -(1 + restitution) * vn * 0.5
	impulse := normal.Mul(j)
	a.Velocity = a.Velocity.Add(impulse)
	b.Velocity = b.Velocity.Sub(impulse)
}

// PickupNearest finds the nearest settled particle within maxDist (XZ
// distance only), or, when none is, the nearest active particle within
// maxDist, deactivates it, and returns its color.
func (s *System) PickupNearest(point mgl32.Vec3, maxDist float32) (mgl32.Vec3, bool) {
	nearestIdx := -1
	nearestDist := maxDist
	for i := 0; i < s.count; i++ {
		p := &s.particles[i]
		if !p.Active || !p.Settled {
			continue
		}
		d := xzDist(p.Position, point)
		if d < nearestDist {
			nearestDist = d
			nearestIdx = i
		}
	}

	if nearestIdx < 0 {
		nearestDist = maxDist
		for i := 0; i < s.count; i++ {
			p := &s.particles[i]
			if !p.Active {
				continue
			}
			d := xzDist(p.Position, point)
			if d < nearestDist {
				nearestDist = d
				nearestIdx = i
			}
		}
	}

	if nearestIdx < 0 {
		return mgl32.Vec3{}, false
	}

	p := &s.particles[nearestIdx]
	color := p.Color
	p.Active = false
	s.activeCount--
	return color, true
}

func xzDist(a, b mgl32.Vec3) float32 {
	d := mgl32.Vec3{a.X() - b.X(), 0, a.Z() - b.Z()}
	return d.Len()
}

// Snapshot copies every active particle's render-relevant fields into out,
// matching the interleaved (position, prev_position, color, radius,
// rotation, prev_rotation) output layout from spec.md §6.
func (s *System) Snapshot(out []Particle) int {
	n := 0
	for i := 0; i < s.count && n < len(out); i++ {
		if s.particles[i].Active {
			out[n] = s.particles[i]
			n++
		}
	}
	return n
}
