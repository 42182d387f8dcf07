package voxel

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/voxmath"
)

// DirtyMax is the fixed capacity of the dirty-chunk ring. Once full,
// Overflow is set and further touched chunks are dropped from the ring;
// the uploader is expected to respond with RebuildAllOccupancy / a full
// upload.
const DirtyMax = 4096

// ChunkCoord identifies a chunk within a volume's sparse grid.
type ChunkCoord struct{ X, Y, Z int }

func (a ChunkCoord) less(b ChunkCoord) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// sortedChunkCoords returns the keys of a chunk-coordinate-keyed map in
// ascending (X, Y, Z) order. Go's map iteration order is randomized per
// range, including within the same process, so any loop whose observable
// result (dirty-ring order, connectivity seed/discovery order, island
// voxel order) depends on visitation order must range over this instead
// of the map directly — required for spec.md §8 property 8's bit-identical
// determinism guarantee.
func sortedChunkCoords[V any](m map[ChunkCoord]V) []ChunkCoord {
	keys := make([]ChunkCoord, 0, len(m))
	for cc := range m {
		keys = append(keys, cc)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// Volume is a sparse 3D grid of chunks with a fixed size in chunks, a
// world origin, and a uniform voxel size. Chunks are allocated lazily on
// first write.
type Volume struct {
	ChunksX, ChunksY, ChunksZ int
	Origin                    mgl32.Vec3
	VoxelSize                 float32

	chunks map[ChunkCoord]*Chunk

	dirty        []ChunkCoord
	dirtySet     map[ChunkCoord]bool
	overflow     bool
	editActive   bool
	touched      map[ChunkCoord]bool
	lastEditCt   int
	totalSolid   int64
	frameCounter uint64
}

// NewVolume allocates volume metadata for a grid of chunksX x chunksY x
// chunksZ chunks. Chunk payloads are allocated lazily. It returns an error
// when any dimension is not positive; otherwise it succeeds.
func NewVolume(chunksX, chunksY, chunksZ int, origin mgl32.Vec3, voxelSize float32) (*Volume, error) {
	if chunksX <= 0 || chunksY <= 0 || chunksZ <= 0 {
		return nil, fmt.Errorf("voxel: volume dimensions must be positive")
	}
	return &Volume{
		ChunksX: chunksX, ChunksY: chunksY, ChunksZ: chunksZ,
		Origin: origin, VoxelSize: voxelSize,
		chunks:   make(map[ChunkCoord]*Chunk),
		dirtySet: make(map[ChunkCoord]bool),
		touched:  make(map[ChunkCoord]bool),
	}, nil
}

// AABB returns the volume's world-space bounding box.
func (v *Volume) AABB() voxmath.AABB {
	size := mgl32.Vec3{
		float32(v.ChunksX) * ChunkEdge * v.VoxelSize,
		float32(v.ChunksY) * ChunkEdge * v.VoxelSize,
		float32(v.ChunksZ) * ChunkEdge * v.VoxelSize,
	}
	return voxmath.AABB{Min: v.Origin, Max: v.Origin.Add(size)}
}

// worldToChunkLocal converts a world position into its chunk coordinate and
// the local voxel coordinate within that chunk. ok is false if the world
// position lies outside the volume.
func (v *Volume) worldToChunkLocal(p mgl32.Vec3) (cc ChunkCoord, lx, ly, lz int, ok bool) {
	rel := p.Sub(v.Origin)
	vx := floorDiv(rel.X(), v.VoxelSize)
	vy := floorDiv(rel.Y(), v.VoxelSize)
	vz := floorDiv(rel.Z(), v.VoxelSize)
	cx := floorDivInt(vx, ChunkEdge)
	cy := floorDivInt(vy, ChunkEdge)
	cz := floorDivInt(vz, ChunkEdge)
	if cx < 0 || cy < 0 || cz < 0 || cx >= v.ChunksX || cy >= v.ChunksY || cz >= v.ChunksZ {
		return ChunkCoord{}, 0, 0, 0, false
	}
	lx = vx - cx*ChunkEdge
	ly = vy - cy*ChunkEdge
	lz = vz - cz*ChunkEdge
	return ChunkCoord{cx, cy, cz}, lx, ly, lz, true
}

func floorDiv(v, by float32) int {
	return int(math.Floor(float64(v / by)))
}

func floorDivInt(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// GetAt returns the material at a world position, or 0 (air) if the
// position is out of bounds or unallocated.
func (v *Volume) GetAt(p mgl32.Vec3) uint8 {
	cc, lx, ly, lz, ok := v.worldToChunkLocal(p)
	if !ok {
		return 0
	}
	c := v.chunks[cc]
	if c == nil {
		return 0
	}
	return c.Get(lx, ly, lz)
}

// EditBegin starts an edit batch: clears the touched-chunk set and the
// last-edit counter.
func (v *Volume) EditBegin() {
	v.editActive = true
	v.touched = make(map[ChunkCoord]bool)
	v.lastEditCt = 0
}

// EditSet writes material at a world position within an edit batch.
// Out-of-bounds positions are silently dropped. Allocates the backing
// chunk lazily.
func (v *Volume) EditSet(p mgl32.Vec3, mat uint8) {
	cc, lx, ly, lz, ok := v.worldToChunkLocal(p)
	if !ok {
		return
	}
	c := v.chunks[cc]
	if c == nil {
		if mat == 0 {
			return
		}
		c = NewChunk()
		v.chunks[cc] = c
	}
	before := c.SolidCount()
	if c.Set(lx, ly, lz, mat) {
		v.touched[cc] = true
		v.lastEditCt++
		v.totalSolid += int64(c.SolidCount() - before)
	}
}

// EditEnd commits a batch: bumps each touched chunk's dirty status into
// the ring (setting Overflow when the ring is full), and returns.
func (v *Volume) EditEnd() {
	for _, cc := range sortedChunkCoords(v.touched) {
		if !v.dirtySet[cc] {
			if len(v.dirty) >= DirtyMax {
				v.overflow = true
				continue
			}
			v.dirty = append(v.dirty, cc)
			v.dirtySet[cc] = true
		}
	}
	v.editActive = false
	v.frameCounter++
}

// LastEditCount returns how many voxels actually changed during the most
// recent edit batch.
func (v *Volume) LastEditCount() int { return v.lastEditCt }

// TouchedChunks returns the chunk coordinates touched by the most recent
// edit batch.
func (v *Volume) TouchedChunks() map[ChunkCoord]bool { return v.touched }

// TotalSolidVoxels returns the running total of solid voxels across the
// whole volume.
func (v *Volume) TotalSolidVoxels() int64 { return v.totalSolid }

// DirtyChunks returns the pending dirty-chunk ring.
func (v *Volume) DirtyChunks() []ChunkCoord { return v.dirty }

// Overflow reports whether the dirty ring has overflowed since the last
// MarkChunksUploaded.
func (v *Volume) Overflow() bool { return v.overflow }

// MarkChunksUploaded clears the given chunk coordinates from the dirty
// ring.
func (v *Volume) MarkChunksUploaded(coords []ChunkCoord) {
	uploaded := make(map[ChunkCoord]bool, len(coords))
	for _, cc := range coords {
		uploaded[cc] = true
		delete(v.dirtySet, cc)
	}
	remaining := v.dirty[:0]
	for _, cc := range v.dirty {
		if !uploaded[cc] {
			remaining = append(remaining, cc)
		}
	}
	v.dirty = remaining
	if len(v.dirty) == 0 {
		v.overflow = false
	}
}

// FrameCounter returns the number of EditEnd calls committed so far; used
// only for profiling/log cadence, never for simulation logic.
func (v *Volume) FrameCounter() uint64 { return v.frameCounter }

// RebuildAllOccupancy recomputes every chunk's occupancy/solid-count and
// the volume's total-solid-voxel count from scratch. Used for recovery
// after a dirty-ring overflow or an out-of-band bulk load.
func (v *Volume) RebuildAllOccupancy() {
	var total int64
	for _, c := range v.chunks {
		c.RebuildOccupancy()
		total += int64(c.SolidCount())
	}
	v.totalSolid = total
}

// FillSphere sets every voxel within radius of center to mat. A convenience
// batch-write wrapping EditBegin/EditSet/EditEnd.
func (v *Volume) FillSphere(center mgl32.Vec3, radius float32, mat uint8) {
	v.EditBegin()
	steps := int(math.Ceil(float64(radius / v.VoxelSize)))
	for dz := -steps; dz <= steps; dz++ {
		for dy := -steps; dy <= steps; dy++ {
			for dx := -steps; dx <= steps; dx++ {
				off := mgl32.Vec3{float32(dx), float32(dy), float32(dz)}.Mul(v.VoxelSize)
				if off.Len() > radius {
					continue
				}
				v.EditSet(center.Add(off), mat)
			}
		}
	}
	v.EditEnd()
}

// FillBox sets every voxel in [minB, maxB] to mat.
func (v *Volume) FillBox(minB, maxB mgl32.Vec3, mat uint8) {
	v.EditBegin()
	vs := v.VoxelSize
	for z := minB.Z(); z <= maxB.Z(); z += vs {
		for y := minB.Y(); y <= maxB.Y(); y += vs {
			for x := minB.X(); x <= maxB.X(); x += vs {
				v.EditSet(mgl32.Vec3{x, y, z}, mat)
			}
		}
	}
	v.EditEnd()
}

// EachChunk calls fn for every currently-allocated chunk (lazily created
// chunks only — an untouched region of the volume contributes no calls).
// Used by the render snapshot layer; fn must not retain c past the call.
func (v *Volume) EachChunk(fn func(cc ChunkCoord, c *Chunk) bool) {
	for _, cc := range sortedChunkCoords(v.chunks) {
		if !fn(cc, v.chunks[cc]) {
			return
		}
	}
}

// chunkAt returns the chunk at cc, or nil if unallocated.
func (v *Volume) chunkAt(cc ChunkCoord) *Chunk {
	return v.chunks[cc]
}
