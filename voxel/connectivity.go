package voxel

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/voxmath"
)

// MaxAnalysisVoxels bounds the AABB volume (in voxels) that connectivity
// analysis will process in one call. Analyzing a region larger than this
// returns an empty result rather than risking an unbounded flood fill; the
// threshold mirrors the teacher's own safety cap on split analysis.
const MaxAnalysisVoxels = 4_000_000

// globalCoord is a voxel's coordinate in the volume's global voxel grid
// (not chunk-local).
type globalCoord = [3]int

// Work is a reusable scratch buffer for connectivity analysis: a visited
// set and an explicit BFS queue. Callers allocate one Work per volume they
// will analyze repeatedly and reuse it across ticks to avoid reallocating
// on every call.
type Work struct {
	visited map[globalCoord]bool
	queue   []globalCoord
}

// NewWork returns an empty, ready-to-use Work buffer.
func NewWork() *Work {
	return &Work{visited: make(map[globalCoord]bool)}
}

func (w *Work) reset() {
	for k := range w.visited {
		delete(w.visited, k)
	}
	w.queue = w.queue[:0]
}

// Island is a connected component of solid voxels not reachable from the
// anchor plane.
type Island struct {
	Voxels    []globalCoord
	Materials []uint8
	AABB      voxmath.AABB
	Count     int
}

// ConnectivityResult is the output of AnalyzeVolume/AnalyzeDirty: the set
// of floating islands found, in discovery order.
type ConnectivityResult struct {
	Islands []Island
}

func globalToWorld(v *Volume, g globalCoord) mgl32.Vec3 {
	return v.Origin.Add(mgl32.Vec3{
		(float32(g[0]) + 0.5) * v.VoxelSize,
		(float32(g[1]) + 0.5) * v.VoxelSize,
		(float32(g[2]) + 0.5) * v.VoxelSize,
	})
}

var neighborOffsets = [6]globalCoord{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// solidAt reads the material at a global voxel coordinate directly,
// avoiding the world-space round trip GetAt does.
func (v *Volume) solidAt(g globalCoord) uint8 {
	cx := floorDivInt(g[0], ChunkEdge)
	cy := floorDivInt(g[1], ChunkEdge)
	cz := floorDivInt(g[2], ChunkEdge)
	if cx < 0 || cy < 0 || cz < 0 || cx >= v.ChunksX || cy >= v.ChunksY || cz >= v.ChunksZ {
		return 0
	}
	c := v.chunks[ChunkCoord{cx, cy, cz}]
	if c == nil {
		return 0
	}
	lx, ly, lz := g[0]-cx*ChunkEdge, g[1]-cy*ChunkEdge, g[2]-cz*ChunkEdge
	return c.Get(lx, ly, lz)
}

// totalVoxelVolume returns the volume's AABB size in voxels, used as the
// safety-cap check before committing to a full analysis.
func (v *Volume) totalVoxelVolume() int64 {
	return int64(v.ChunksX) * ChunkEdge * int64(v.ChunksY) * ChunkEdge * int64(v.ChunksZ) * ChunkEdge
}

// AnalyzeVolume runs a full BFS from every solid voxel touching the anchor
// plane (y == anchorY, in voxel-grid coordinates), then groups every
// remaining unvisited solid voxel into floating islands. seedMaterial, if
// non-zero, restricts seeding to that specific material; 0 means "any
// solid voxel at the anchor plane seeds."
func AnalyzeVolume(v *Volume, anchorY int, seedMaterial uint8, work *Work) ConnectivityResult {
	if v.totalVoxelVolume() > MaxAnalysisVoxels {
		return ConnectivityResult{}
	}
	work.reset()

	// Seed: every solid voxel at the anchor plane. Chunks are visited in
	// sorted coordinate order so seeding (and therefore BFS discovery
	// order) is reproducible across runs.
	for _, cc := range sortedChunkCoords(v.chunks) {
		chunk := v.chunks[cc]
		if !chunk.AnySolid() {
			continue
		}
		baseY := cc.Y * ChunkEdge
		if anchorY < baseY || anchorY >= baseY+ChunkEdge {
			continue
		}
		ly := anchorY - baseY
		for lz := 0; lz < ChunkEdge; lz++ {
			for lx := 0; lx < ChunkEdge; lx++ {
				m := chunk.Get(lx, ly, lz)
				if m == 0 || (seedMaterial != 0 && m != seedMaterial) {
					continue
				}
				g := globalCoord{cc.X*ChunkEdge + lx, anchorY, cc.Z*ChunkEdge + lz}
				if !work.visited[g] {
					work.visited[g] = true
					work.queue = append(work.queue, g)
				}
			}
		}
	}

	bfs(v, work, seedMaterial)

	return collectIslands(v, work, seedMaterial)
}

// AnalyzeDirty returns an empty result when the last edit batch changed no
// voxels, and otherwise runs the full AnalyzeVolume. Seeding is not
// restricted to the chunks touched by the last edit batch.
func AnalyzeDirty(v *Volume, anchorY int, seedMaterial uint8, work *Work) ConnectivityResult {
	if v.LastEditCount() == 0 {
		return ConnectivityResult{}
	}
	return AnalyzeVolume(v, anchorY, seedMaterial, work)
}

func bfs(v *Volume, work *Work, seedMaterial uint8) {
	for len(work.queue) > 0 {
		cur := work.queue[0]
		work.queue = work.queue[1:]
		for _, off := range neighborOffsets {
			n := globalCoord{cur[0] + off[0], cur[1] + off[1], cur[2] + off[2]}
			if work.visited[n] {
				continue
			}
			m := v.solidAt(n)
			if m == 0 || (seedMaterial != 0 && m != seedMaterial) {
				continue
			}
			work.visited[n] = true
			work.queue = append(work.queue, n)
		}
	}
}

// collectIslands groups every solid voxel not in work.visited into
// connected components via iterative flood fill, seeded from each solid
// chunk's voxels in turn.
func collectIslands(v *Volume, work *Work, seedMaterial uint8) ConnectivityResult {
	var result ConnectivityResult
	grouped := make(map[globalCoord]bool)

	for _, cc := range sortedChunkCoords(v.chunks) {
		chunk := v.chunks[cc]
		if !chunk.AnySolid() {
			continue
		}
		chunk.IterSolid(func(lx, ly, lz int, m uint8) bool {
			if seedMaterial != 0 && m != seedMaterial {
				return true
			}
			g := globalCoord{cc.X*ChunkEdge + lx, cc.Y*ChunkEdge + ly, cc.Z*ChunkEdge + lz}
			if work.visited[g] || grouped[g] {
				return true
			}
			island := floodFillIsland(v, work, grouped, g, seedMaterial)
			result.Islands = append(result.Islands, island)
			return true
		})
	}
	return result
}

func floodFillIsland(v *Volume, work *Work, grouped map[globalCoord]bool, seed globalCoord, seedMaterial uint8) Island {
	queue := []globalCoord{seed}
	grouped[seed] = true
	island := Island{AABB: voxmath.EmptyAABB()}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		m := v.solidAt(cur)
		island.Voxels = append(island.Voxels, cur)
		island.Materials = append(island.Materials, m)
		island.Count++
		world := globalToWorld(v, cur)
		island.AABB = island.AABB.Expand(world)

		for _, off := range neighborOffsets {
			n := globalCoord{cur[0] + off[0], cur[1] + off[1], cur[2] + off[2]}
			if work.visited[n] || grouped[n] {
				continue
			}
			nm := v.solidAt(n)
			if nm == 0 || (seedMaterial != 0 && nm != seedMaterial) {
				continue
			}
			grouped[n] = true
			queue = append(queue, n)
		}
	}
	return island
}

// ExtractIslandWithIDs copies an island's voxels into a dense small grid
// of size sx x sy x sz and returns the world-space origin of that grid and
// how many voxels were copied. Voxels that fall outside the destination
// grid (island larger than the grid) are skipped and not counted.
func ExtractIslandWithIDs(v *Volume, island Island, sx, sy, sz int, out []uint8) (origin mgl32.Vec3, copied int) {
	if !island.AABB.Valid() || len(island.Voxels) == 0 {
		return mgl32.Vec3{}, 0
	}
	minG := globalCoord{1 << 30, 1 << 30, 1 << 30}
	for _, g := range island.Voxels {
		if g[0] < minG[0] {
			minG[0] = g[0]
		}
		if g[1] < minG[1] {
			minG[1] = g[1]
		}
		if g[2] < minG[2] {
			minG[2] = g[2]
		}
	}
	for i, g := range island.Voxels {
		lx, ly, lz := g[0]-minG[0], g[1]-minG[1], g[2]-minG[2]
		if lx < 0 || ly < 0 || lz < 0 || lx >= sx || ly >= sy || lz >= sz {
			continue
		}
		idx := (lz*sy+ly)*sx + lx
		out[idx] = island.Materials[i]
		copied++
	}
	origin = v.Origin.Add(mgl32.Vec3{
		float32(minG[0]) * v.VoxelSize,
		float32(minG[1]) * v.VoxelSize,
		float32(minG[2]) * v.VoxelSize,
	})
	return origin, copied
}

// RemoveIsland clears every voxel belonging to island from the volume.
func RemoveIsland(v *Volume, island Island) {
	v.EditBegin()
	for _, g := range island.Voxels {
		v.EditSet(globalToWorld(v, g), 0)
	}
	v.EditEnd()
}
