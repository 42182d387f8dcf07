// Package scene owns one simulation's volume, voxel-object world, rigid
// body solver, and particle system, and drives them through a fixed
// 1/60s tick inside a clamped accumulator loop (spec.md §4.8). A Scene's
// Kind selects per-tick gameplay behavior via a tagged union + type switch,
// replacing the teacher's virtual-dispatch Scene/System scheduler per
// REDESIGN FLAGS.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/config"
	"github.com/kvoxel/sim/material"
	"github.com/kvoxel/sim/particlesys"
	"github.com/kvoxel/sim/profile"
	"github.com/kvoxel/sim/rigidbody"
	"github.com/kvoxel/sim/rng"
	"github.com/kvoxel/sim/simlog"
	"github.com/kvoxel/sim/voxel"
	"github.com/kvoxel/sim/voxmath"
	"github.com/kvoxel/sim/voxobj"
)

// SimDt is the fixed simulation timestep (spec.md §4.8).
const SimDt = 1.0 / 60.0

// SimMaxFrameTime caps a single external frame's contribution to the
// accumulator, bounding the catch-up loop at 15 sub-ticks.
const SimMaxFrameTime = 0.25

// AnalysisInterval throttles connectivity/detachment: at most one full
// analysis every N ticks unless the dirty set is non-empty (spec.md
// §4.8).
const AnalysisInterval = 6

// Kind tags which gameplay behavior a Scene runs during its input phase.
// Replaces the teacher's function-pointer vtable dispatch on Scene
// (REDESIGN FLAGS).
type Kind int

const (
	// BallPit periodically drops spheres onto the terrain.
	BallPit Kind = iota
	// Roam spawns the default descriptor's objects at creation and has no
	// per-tick scripted spawns.
	Roam
	// Stress spawns a configured burst of objects at creation and then
	// runs steady-state, exercising solver/detachment throughput.
	Stress
)

func (k Kind) String() string {
	switch k {
	case BallPit:
		return "ballpit"
	case Roam:
		return "roam"
	case Stress:
		return "stress"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind resolves a scene name (spec.md §6 --scene <id>) to a Kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "ballpit":
		return BallPit, true
	case "roam":
		return Roam, true
	case "stress":
		return Stress, true
	default:
		return 0, false
	}
}

// Scene owns every simulation component and the fixed-timestep
// accumulator that drives them. Components are scene-owned and reused
// every tick — never reallocated during steady state (spec.md §5).
type Scene struct {
	Kind   Kind
	Bounds voxmath.AABB
	RNG    *rng.State

	Volume    *voxel.Volume
	Objects   *voxobj.World
	Solver    *rigidbody.Solver
	Particles *particlesys.System
	Materials *material.Registry

	DetachConfig voxobj.Config

	work        *voxel.Work
	accumulator float64
	tickCount   uint64
	sinceAnalysis int

	ballPitCooldown float64
}

// New builds a Scene of the given kind from cfg, allocating the terrain
// volume, object world, solver, and particle system. It fails when the
// volume dimensions are invalid or, for Roam, when the default scene
// descriptor cannot be loaded.
func New(cfg *config.Config, kind Kind) (*Scene, error) {
	vol, err := voxel.NewVolume(cfg.Volume.ChunksX, cfg.Volume.ChunksY, cfg.Volume.ChunksZ, mgl32.Vec3{}, cfg.Volume.VoxelSize)
	if err != nil {
		return nil, fmt.Errorf("scene: allocating volume: %w", err)
	}

	s := &Scene{
		Kind:      kind,
		Bounds:    vol.AABB(),
		RNG:       rng.New(uint64(cfg.RNGSeed)),
		Volume:    vol,
		Objects:   voxobj.NewWorld(),
		Solver:    rigidbody.NewSolver(SimDt),
		Particles: particlesys.NewSystem(cfg.Particles.FloorY),
		Materials: material.NewRegistry(),
		DetachConfig: voxobj.Config{
			Enabled:            cfg.Detach.Enabled,
			AnchorYOffset:      cfg.Detach.AnchorYOffset,
			MinVoxelsPerIsland: cfg.Detach.MinVoxelsPerIsland,
			MaxVoxelsPerIsland: cfg.Detach.MaxVoxelsPerIsland,
			MaxIslandsPerTick:  cfg.Detach.MaxIslandsPerTick,
			MaxBodiesAlive:     cfg.Detach.MaxBodiesAlive,
		},
		work: voxel.NewWork(),
	}

	switch kind {
	case Roam:
		desc, err := DefaultDescriptor()
		if err != nil {
			return nil, fmt.Errorf("scene: loading default descriptor: %w", err)
		}
		desc.Spawn(s)
	case Stress:
		s.spawnStressObjects(cfg.StressObjects)
	}

	return s, nil
}

// Tick advances the scene by rawDt seconds of wall-clock time, clamped
// and accumulated into fixed SimDt steps (spec.md §4.8's pseudocode).
// Determinism: given identical RNG seed and tick count, every call
// sequence produces bit-identical output.
func (s *Scene) Tick(rawDt float64, prof *profile.Profiler) {
	clamped := rawDt
	if clamped > SimMaxFrameTime {
		clamped = SimMaxFrameTime
	}
	s.accumulator += clamped
	for s.accumulator >= SimDt {
		s.step(prof)
		s.accumulator -= SimDt
	}
}

// step runs one fixed-timestep tick: input application, connectivity/
// detachment (throttled), rigid-body step, particle update. Volume edits
// from an external input layer are expected to have already landed via
// Volume.EditSet before Tick is called this frame; a raycast issued in the
// same tick sees pre-edit state only if issued before that edit commits,
// per spec.md §5's ordering guarantees.
func (s *Scene) step(prof *profile.Profiler) {
	if prof != nil {
		prof.BeginScope("input")
	}
	s.applyKindInput()
	if prof != nil {
		prof.EndScope("input")
	}

	if prof != nil {
		prof.BeginScope("detach")
	}
	s.runDetachment()
	if prof != nil {
		prof.EndScope("detach")
		prof.SetCount("objects_active", s.countActiveObjects())
	}

	if prof != nil {
		prof.BeginScope("solver")
	}
	s.Solver.Step(s.Volume)
	if prof != nil {
		prof.EndScope("solver")
		prof.SetCount("bodies", len(s.Solver.Bodies()))
	}

	if prof != nil {
		prof.BeginScope("particles")
	}
	s.Particles.Update(float32(SimDt))
	if prof != nil {
		prof.EndScope("particles")
		prof.SetCount("particles_active", s.Particles.ActiveCount())
	}

	s.tickCount++
}

// runDetachment runs the connectivity/detachment pipeline, throttled to
// once every AnalysisInterval ticks unless there is pending dirty work,
// then reconciles the solver's body set against the object world's
// active objects (new islands need bodies; destroyed/merged objects need
// their bodies removed).
func (s *Scene) runDetachment() {
	s.sinceAnalysis++
	dirty := s.Volume.LastEditCount() > 0
	if !dirty && s.sinceAnalysis < AnalysisInterval {
		return
	}
	s.sinceAnalysis = 0

	result := voxobj.Process(s.Volume, s.Objects, s.DetachConfig, s.work, s.countActiveObjects())
	if result.BodiesSpawned > 0 || result.Removed > 0 {
		simlog.Debugf("detach: spawned=%d removed=%d skipped=%d", result.BodiesSpawned, result.Removed, result.Skipped)
	}
	s.reconcileBodies()
}

// reconcileBodies keeps one rigidbody.Body per active voxobj.Object,
// matching spec.md §3's "one rigid body owns exactly one voxel object;
// removing one deactivates the other." Object pointers are stable for the
// lifetime of the World's backing array, so a Body whose Object has gone
// inactive (removed, or consumed by a split) is simply dropped.
func (s *Scene) reconcileBodies() {
	// Bodies() exposes the solver's live backing slice; RemoveBody does an
	// in-place swap-remove on it, so iterate over a snapshot copy instead
	// of the slice we might be mutating underneath ourselves.
	live := s.Solver.Bodies()
	stale := make([]*rigidbody.Body, 0, len(live))
	for _, b := range live {
		if !b.Object.Active {
			stale = append(stale, b)
		}
	}
	for _, b := range stale {
		s.Solver.RemoveBody(b)
	}
	s.Objects.Active(func(h voxobj.Handle, o *voxobj.Object) bool {
		if _, ok := s.Solver.FindBodyForObject(o); !ok {
			s.Solver.AddBody(o)
		}
		return true
	})
}

func (s *Scene) countActiveObjects() int {
	n := 0
	s.Objects.Active(func(h voxobj.Handle, o *voxobj.Object) bool {
		n++
		return true
	})
	return n
}

// applyKindInput runs the scripted, scene-kind-specific input phase. This
// is the tagged-union dispatch point REDESIGN FLAGS calls for in place of
// Scene virtual dispatch.
func (s *Scene) applyKindInput() {
	switch s.Kind {
	case BallPit:
		s.tickBallPit()
	case Roam, Stress:
		// No scripted input; driven entirely by an external caller via
		// Volume.EditSet / Objects.Add* / Solver.ApplyImpulse between
		// Tick calls.
	}
}

const ballPitInterval = 2.0 // seconds between spawns

func (s *Scene) tickBallPit() {
	s.ballPitCooldown -= SimDt
	if s.ballPitCooldown > 0 {
		return
	}
	s.ballPitCooldown = ballPitInterval

	center := s.Bounds.Center()
	x := center.X() + s.RNG.SignedHalf()*s.Bounds.HalfExtents().X()
	z := center.Z() + s.RNG.SignedHalf()*s.Bounds.HalfExtents().Z()
	top := s.Bounds.Max.Y() - s.Bounds.HalfExtents().Y()*0.2
	pos := mgl32.Vec3{x, top, z}

	radius := 1.5 + s.RNG.Float()*1.5
	if h, ok := s.Objects.AddSphere(pos, s.Volume.VoxelSize, radius, 1); ok {
		if o := s.Objects.Get(h); o != nil {
			s.Solver.AddBody(o)
		}
	}
}

func (s *Scene) spawnStressObjects(count int) {
	center := s.Bounds.Center()
	for i := 0; i < count; i++ {
		x := center.X() + s.RNG.SignedHalf()*s.Bounds.HalfExtents().X()
		y := s.Bounds.Max.Y() - s.Bounds.HalfExtents().Y()*(0.1+0.5*s.RNG.Float())
		z := center.Z() + s.RNG.SignedHalf()*s.Bounds.HalfExtents().Z()
		radius := 0.8 + s.RNG.Float()*1.2
		if h, ok := s.Objects.AddSphere(mgl32.Vec3{x, y, z}, s.Volume.VoxelSize, radius, 1); ok {
			if o := s.Objects.Get(h); o != nil {
				s.Solver.AddBody(o)
			}
		}
	}
}

// TickCount returns the number of fixed sub-ticks executed so far, used
// for determinism checks (spec.md §8 property 8).
func (s *Scene) TickCount() uint64 { return s.tickCount }
