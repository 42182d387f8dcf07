package particlesys

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/rng"
)

// Scenario D from spec.md §8, scaled down to a small capacity via a local
// system rather than mutating the package constant.
func TestCapacityOverwritePreservesInsertionOrder(t *testing.T) {
	const capacity = 4
	particles := make([]Particle, 0, capacity+2)
	nextSlot := 0
	count := 0
	addSlotLocal := func() *Particle {
		slot := nextSlot
		nextSlot = (nextSlot + 1) % capacity
		if count < capacity {
			count++
		}
		for len(particles) <= slot {
			particles = append(particles, Particle{})
		}
		return &particles[slot]
	}

	colors := []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {0, 1, 1}, {1, 0, 1}}
	for _, c := range colors {
		p := addSlotLocal()
		*p = Particle{Color: c, Active: true}
	}

	if count != capacity {
		t.Fatalf("expected active count %d, got %d", capacity, count)
	}
	if nextSlot != 2 {
		t.Fatalf("expected next_slot 2 after 6 spawns into capacity 4, got %d", nextSlot)
	}

	want := []mgl32.Vec3{{0, 0, 1}, {1, 1, 0}, {0, 1, 1}, {1, 0, 1}}
	for i, w := range want {
		got := particles[(2+i)%capacity].Color
		if got != w {
			t.Fatalf("slot order mismatch at logical position %d: want %v got %v", i, w, got)
		}
	}
}

func TestAddTracksActiveCount(t *testing.T) {
	s := NewSystem(0)
	r := rng.New(1)
	s.Add(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 0.05, r)
	s.Add(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, 0.05, r)
	if s.ActiveCount() != 2 {
		t.Fatalf("expected active count 2, got %d", s.ActiveCount())
	}
}

func TestParticleSettlesOnFloor(t *testing.T) {
	s := NewSystem(0)
	r := rng.New(1)
	s.Add(mgl32.Vec3{0, 0.05, 0}, mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 0.05, r)

	for i := 0; i < 120; i++ {
		s.Update(1.0 / 60.0)
	}

	out := make([]Particle, 1)
	n := s.Snapshot(out)
	if n != 1 {
		t.Fatalf("expected 1 active particle, got %d", n)
	}
	if !out[0].Settled {
		t.Fatalf("expected particle to settle near the floor, pos=%v vel=%v", out[0].Position, out[0].Velocity)
	}
}

func TestPickupNearestDeactivatesSettledParticle(t *testing.T) {
	s := NewSystem(0)
	r := rng.New(1)
	s.Add(mgl32.Vec3{1, 0.05, 0}, mgl32.Vec3{}, mgl32.Vec3{0.2, 0.4, 0.6}, 0.05, r)
	for i := 0; i < 120; i++ {
		s.Update(1.0 / 60.0)
	}

	color, ok := s.PickupNearest(mgl32.Vec3{1, 0, 0}, 5)
	if !ok {
		t.Fatalf("expected to pick up the settled particle")
	}
	if color.X() != 0.2 {
		t.Fatalf("unexpected picked-up color: %v", color)
	}
	if s.ActiveCount() != 0 {
		t.Fatalf("expected active count 0 after pickup, got %d", s.ActiveCount())
	}
}

func TestSpawnExplosionFillsSlotsAndClampsColor(t *testing.T) {
	s := NewSystem(-10)
	r := rng.New(42)
	spawned := s.SpawnExplosion(r, mgl32.Vec3{0, 5, 0}, 1.0, mgl32.Vec3{2, 2, 2}, 10, 5)
	if spawned != 10 {
		t.Fatalf("expected 10 particles spawned, got %d", spawned)
	}
	out := make([]Particle, 10)
	n := s.Snapshot(out)
	if n != 10 {
		t.Fatalf("expected 10 active particles after explosion, got %d", n)
	}
	for _, p := range out[:n] {
		if p.Color.X() > 1 || p.Color.Y() > 1 || p.Color.Z() > 1 {
			t.Fatalf("color not clamped: %v", p.Color)
		}
	}
}
