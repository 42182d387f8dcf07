package voxobj

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/voxel"
)

var splitNeighbors = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// splitDisconnected runs an iterative flood fill over o's grid after a
// destructive edit. Beyond the first (largest, kept in place) component,
// each additional component is moved into a newly allocated object with
// position/velocity inherited from the parent. Both objects receive a small
// separation impulse so the fragments don't immediately re-penetrate; the
// new fragment also receives a tumbling angular impulse.
func (w *World) splitDisconnected(h Handle, o *Object) {
	visited := make([]bool, VobjTotal)
	var components [][]int

	for start := 0; start < VobjTotal; start++ {
		if visited[start] || o.Voxels[start] == 0 {
			continue
		}
		queue := []int{start}
		visited[start] = true
		var comp []int
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)
			cx, cy, cz := vobjCoords(cur)
			for _, off := range splitNeighbors {
				nx, ny, nz := cx+off[0], cy+off[1], cz+off[2]
				if !inVobjRange(nx, ny, nz) {
					continue
				}
				ni := vobjIndex(nx, ny, nz)
				if visited[ni] || o.Voxels[ni] == 0 {
					continue
				}
				visited[ni] = true
				queue = append(queue, ni)
			}
		}
		components = append(components, comp)
	}

	if len(components) <= 1 {
		return
	}

	// Keep the largest component on the original object; split the rest.
	largest := 0
	for i, c := range components {
		if len(c) > len(components[largest]) {
			largest = i
		}
	}

	parentCoM := o.WorldCoM()
	for i, comp := range components {
		if i == largest {
			continue
		}
		nh, ok := w.allocate()
		if !ok {
			// World is full; leave this fragment attached to the parent
			// rather than destroying data.
			continue
		}
		no := &w.objects[nh]
		*no = Object{
			SourceID:    o.SourceID,
			Position:    o.Position,
			Orientation: o.Orientation,
			VoxelSize:   o.VoxelSize,
		}
		for _, idx := range comp {
			x, y, z := vobjCoords(idx)
			no.Set(x, y, z, o.Voxels[idx])
			o.Set(x, y, z, 0)
		}
		no.Recalc()
		if no.VoxelCount == 0 {
			w.Remove(nh)
			continue
		}

		childCoM := no.WorldCoM()
		sep := childCoM.Sub(parentCoM)
		if sep.Len() < 1e-6 {
			sep = mgl32.Vec3{0, 1, 0}
		} else {
			sep = sep.Normalize()
		}
		const separationSpeed = float32(0.4)
		no.Velocity = no.Velocity.Add(sep.Mul(separationSpeed))
		o.Velocity = o.Velocity.Sub(sep.Mul(separationSpeed * no.Mass / max32(o.Mass, 1e-6)))
		no.AngularVelocity = no.AngularVelocity.Add(mgl32.Vec3{sep.Z(), 0, -sep.X()}.Mul(0.5))
	}
	o.Recalc()
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Config holds the tunables for the volume -> object-world detachment
// bridge (spec.md §4.5).
type Config struct {
	Enabled            bool
	AnchorYOffset      int
	MinVoxelsPerIsland int
	MaxVoxelsPerIsland int
	MaxIslandsPerTick  int
	MaxBodiesAlive     int
}

// Result aggregates the outcome of one Process call.
type Result struct {
	Removed      int
	Skipped      int
	BodiesSpawned int
}

// Process analyzes vol for floating islands and promotes them into w,
// following spec.md §4.5: islands below MinVoxelsPerIsland are discarded
// as dust, islands exceeding MaxVoxelsPerIsland or whose AABB exceeds
// VobjEdge on any axis are left attached ("skipped", retried on a later
// tick), and the rest are extracted and spawned as new objects — unless
// countActive already reached MaxBodiesAlive, in which case only dust
// removal still runs. Processing stops after MaxIslandsPerTick islands.
func Process(vol *voxel.Volume, w *World, cfg Config, work *voxel.Work, countActive int) Result {
	var result Result
	if !cfg.Enabled {
		return result
	}

	var conn voxel.ConnectivityResult
	if vol.LastEditCount() > 0 {
		conn = voxel.AnalyzeDirty(vol, cfg.AnchorYOffset, 0, work)
	} else {
		conn = voxel.AnalyzeVolume(vol, cfg.AnchorYOffset, 0, work)
	}

	active := countActive
	processed := 0
	extractBuf := make([]uint8, VobjEdge*VobjEdge*VobjEdge)

	for _, island := range conn.Islands {
		if processed >= cfg.MaxIslandsPerTick {
			break
		}
		processed++

		if island.Count < cfg.MinVoxelsPerIsland {
			voxel.RemoveIsland(vol, island)
			result.Removed++
			continue
		}

		ext := island.AABB.Max.Sub(island.AABB.Min)
		edgeLimit := float32(VobjEdge) * vol.VoxelSize
		// ext spans voxel centers, so an island n voxels wide has ext (n-1)*VoxelSize.
		extLimit := edgeLimit - 0.5*vol.VoxelSize
		if island.Count > cfg.MaxVoxelsPerIsland || ext.X() > extLimit || ext.Y() > extLimit || ext.Z() > extLimit {
			result.Skipped++
			continue
		}

		if active >= cfg.MaxBodiesAlive {
			result.Skipped++
			continue
		}

		for i := range extractBuf {
			extractBuf[i] = 0
		}
		origin, copied := voxel.ExtractIslandWithIDs(vol, island, VobjEdge, VobjEdge, VobjEdge, extractBuf)
		if copied == 0 {
			continue
		}
		center := origin.Add(mgl32.Vec3{edgeLimit, edgeLimit, edgeLimit}.Mul(0.5))
		if _, ok := w.AddFromVoxels(center, vol.VoxelSize, VobjEdge, VobjEdge, VobjEdge, extractBuf); ok {
			voxel.RemoveIsland(vol, island)
			result.BodiesSpawned++
			active++
		}
	}

	return result
}
