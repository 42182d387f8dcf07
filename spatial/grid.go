// Package spatial implements a uniform spatial hash grid used for
// broadphase queries by both the rigid body solver (body-body contacts)
// and the particle system (particle-particle collision).
package spatial

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/voxmath"
)

// Id is an opaque handle the caller associates with each inserted entry
// (a body index, a particle slot, ...).
type Id int

// Grid buckets entries into cells of a fixed size by hashing their cell
// coordinates. It stores only the AABBs handed to Insert, not positions,
// so QueryRadius is a broadphase-only approximation (see its doc comment).
type Grid struct {
	cellSize float32
	cells    map[uint64][]Id
}

// NewGrid returns an empty grid with the given cell size.
func NewGrid(cellSize float32) *Grid {
	return &Grid{cellSize: cellSize, cells: make(map[uint64][]Id)}
}

// Clear empties the grid for reuse; it is cleared and refilled once per
// tick rather than reallocated.
func (g *Grid) Clear() {
	for k := range g.cells {
		delete(g.cells, k)
	}
}

func (g *Grid) cellIndex(p mgl32.Vec3) (int32, int32, int32) {
	return int32(floor32(p.X() / g.cellSize)), int32(floor32(p.Y() / g.cellSize)), int32(floor32(p.Z() / g.cellSize))
}

func floor32(f float32) float32 {
	i := int64(f)
	if f < 0 && float32(i) != f {
		i--
	}
	return float32(i)
}

// hashKey combines cell coordinates into a single hash using large primes,
// matching the teacher's own broadphase hash.
func hashKey(cx, cy, cz int32) uint64 {
	const (
		p1 = 73856093
		p2 = 19349663
		p3 = 83492791
	)
	return uint64(cx)*p1 ^ uint64(cy)*p2 ^ uint64(cz)*p3
}

// Insert adds id under every cell overlapped by box.
func (g *Grid) Insert(id Id, box voxmath.AABB) {
	minX, minY, minZ := g.cellIndex(box.Min)
	maxX, maxY, maxZ := g.cellIndex(box.Max)
	for cz := minZ; cz <= maxZ; cz++ {
		for cy := minY; cy <= maxY; cy++ {
			for cx := minX; cx <= maxX; cx++ {
				k := hashKey(cx, cy, cz)
				g.cells[k] = append(g.cells[k], id)
			}
		}
	}
}

// QueryAABB returns every distinct id whose inserted box could overlap
// box (cell-granularity only — callers still do exact narrowphase checks).
func (g *Grid) QueryAABB(box voxmath.AABB) []Id {
	minX, minY, minZ := g.cellIndex(box.Min)
	maxX, maxY, maxZ := g.cellIndex(box.Max)
	seen := make(map[Id]struct{})
	var out []Id
	for cz := minZ; cz <= maxZ; cz++ {
		for cy := minY; cy <= maxY; cy++ {
			for cx := minX; cx <= maxX; cx++ {
				for _, id := range g.cells[hashKey(cx, cy, cz)] {
					if _, ok := seen[id]; !ok {
						seen[id] = struct{}{}
						out = append(out, id)
					}
				}
			}
		}
	}
	return out
}

// QueryRadius returns candidates near center within radius. This is
// broadphase only: the grid stores AABBs, not exact positions, so results
// may include ids whose true shape does not intersect the sphere —
// callers must still run an exact narrowphase test.
func (g *Grid) QueryRadius(center mgl32.Vec3, radius float32) []Id {
	r := mgl32.Vec3{radius, radius, radius}
	return g.QueryAABB(voxmath.AABB{Min: center.Sub(r), Max: center.Add(r)})
}
