package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/particlesys"
	"github.com/kvoxel/sim/voxel"
	"github.com/kvoxel/sim/voxobj"
)

// ChunkSnapshot is one chunk's read-only render payload (spec.md §6's
// "per-chunk (voxels, any_solid, version)").
type ChunkSnapshot struct {
	Coord    voxel.ChunkCoord
	Voxels   *[voxel.ChunkVoxels]uint8
	AnySolid bool
	Version  uint64
}

// ObjectSnapshot is one active voxel object's read-only render payload
// (spec.md §6's "per-active-object (position, orientation, voxel_size,
// voxels grid, center_of_mass_offset)").
type ObjectSnapshot struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	VoxelSize   float32
	Voxels      *[16 * 16 * 16]uint8
	CoMOffset   mgl32.Vec3
}

// Snapshot is a borrowed, read-only view of scene state valid only for the
// duration of a single render phase — the replacement for the teacher's
// cyclic renderer<->volume ownership (REDESIGN FLAGS). It must not be
// retained past the next Scene.Tick call, since chunk/object backing
// arrays are reused in place.
type Snapshot struct {
	VoxelSize float32
	Origin    mgl32.Vec3
	Chunks    []ChunkSnapshot
	Dirty     []voxel.ChunkCoord
	Overflow  bool

	Objects []ObjectSnapshot

	Particles []particlesys.Particle
	ParticleN int
}

// Snapshot captures read-only render state from s: every currently
// allocated chunk, the pending dirty list, every active voxel object's
// pose and grid, and the active particle buffer (copied into particleBuf,
// which the caller owns and sizes).
func (s *Scene) Snapshot(particleBuf []particlesys.Particle) Snapshot {
	snap := Snapshot{
		VoxelSize: s.Volume.VoxelSize,
		Origin:    s.Volume.Origin,
		Dirty:     s.Volume.DirtyChunks(),
		Overflow:  s.Volume.Overflow(),
	}

	s.Volume.EachChunk(func(cc voxel.ChunkCoord, c *voxel.Chunk) bool {
		snap.Chunks = append(snap.Chunks, ChunkSnapshot{
			Coord:    cc,
			Voxels:   c.Voxels(),
			AnySolid: c.AnySolid(),
			Version:  c.Version(),
		})
		return true
	})

	s.Objects.Active(func(h voxobj.Handle, o *voxobj.Object) bool {
		snap.Objects = append(snap.Objects, ObjectSnapshot{
			Position:    o.Position,
			Orientation: o.Orientation,
			VoxelSize:   o.VoxelSize,
			Voxels:      &o.Voxels,
			CoMOffset:   o.CoMOffset,
		})
		return true
	})

	n := s.Particles.Snapshot(particleBuf)
	snap.Particles = particleBuf
	snap.ParticleN = n
	return snap
}
