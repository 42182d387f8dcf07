package voxobj

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// World holds up to MaxObjects active voxel objects in a fixed arena with
// a free list. Handles are indices; callers should not persist a Handle
// across a Remove without re-checking Active, matching the design's
// active-flag-as-generation-check convention.
type World struct {
	objects  [MaxObjects]Object
	freeList []int
}

// Handle is an index into a World's object arena.
type Handle int

// NewWorld returns an empty object world with every slot free.
func NewWorld() *World {
	w := &World{}
	w.freeList = make([]int, MaxObjects)
	for i := range w.freeList {
		w.freeList[i] = MaxObjects - 1 - i
	}
	return w
}

func (w *World) allocate() (Handle, bool) {
	if len(w.freeList) == 0 {
		return 0, false
	}
	idx := w.freeList[len(w.freeList)-1]
	w.freeList = w.freeList[:len(w.freeList)-1]
	return Handle(idx), true
}

// Get returns the object at h, or nil if h is out of range or inactive.
func (w *World) Get(h Handle) *Object {
	if h < 0 || int(h) >= MaxObjects {
		return nil
	}
	o := &w.objects[h]
	if !o.Active {
		return nil
	}
	return o
}

// Remove deactivates the object at h and returns its slot to the free
// list.
func (w *World) Remove(h Handle) {
	if h < 0 || int(h) >= MaxObjects {
		return
	}
	o := &w.objects[h]
	if !o.Active {
		return
	}
	*o = Object{}
	w.freeList = append(w.freeList, int(h))
}

// Active calls fn for every currently active object. Iteration stops early
// if fn returns false.
func (w *World) Active(fn func(h Handle, o *Object) bool) {
	for i := range w.objects {
		if w.objects[i].Active {
			if !fn(Handle(i), &w.objects[i]) {
				return
			}
		}
	}
}

func (w *World) newObject(position mgl32.Vec3, voxelSize float32) (Handle, *Object, bool) {
	h, ok := w.allocate()
	if !ok {
		return 0, nil, false
	}
	o := &w.objects[h]
	*o = Object{
		SourceID:    uuid.New(),
		Position:    position,
		Orientation: mgl32.QuatIdent(),
		VoxelSize:   voxelSize,
	}
	return h, o, true
}

// AddSphere allocates a new object and voxelizes a sphere of the given
// radius (in voxels) centered on the grid, all cells set to mat.
func (w *World) AddSphere(position mgl32.Vec3, voxelSize float32, radius float32, mat uint8) (Handle, bool) {
	h, o, ok := w.newObject(position, voxelSize)
	if !ok {
		return 0, false
	}
	c := localCenter()
	forEachCell(func(x, y, z int) {
		p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}
		if p.Sub(c).Len() <= radius {
			o.Set(x, y, z, mat)
		}
	})
	o.Recalc()
	return h, true
}

// AddBox allocates a new object and voxelizes a box of the given half
// extents (in voxels) centered on the grid.
func (w *World) AddBox(position mgl32.Vec3, voxelSize float32, halfExtents mgl32.Vec3, mat uint8) (Handle, bool) {
	h, o, ok := w.newObject(position, voxelSize)
	if !ok {
		return 0, false
	}
	c := localCenter()
	forEachCell(func(x, y, z int) {
		p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}.Sub(c)
		if abs32(p.X()) <= halfExtents.X() && abs32(p.Y()) <= halfExtents.Y() && abs32(p.Z()) <= halfExtents.Z() {
			o.Set(x, y, z, mat)
		}
	})
	o.Recalc()
	return h, true
}

// AddCylinder voxelizes a cylinder with its axis along Y, the given radius
// and half-height (all in voxels).
func (w *World) AddCylinder(position mgl32.Vec3, voxelSize, radius, halfHeight float32, mat uint8) (Handle, bool) {
	h, o, ok := w.newObject(position, voxelSize)
	if !ok {
		return 0, false
	}
	c := localCenter()
	forEachCell(func(x, y, z int) {
		p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}.Sub(c)
		if abs32(p.Y()) <= halfHeight && math32Hypot(p.X(), p.Z()) <= radius {
			o.Set(x, y, z, mat)
		}
	})
	o.Recalc()
	return h, true
}

// AddTorus voxelizes a torus around the Y axis with the given major and
// minor radius (in voxels).
func (w *World) AddTorus(position mgl32.Vec3, voxelSize, majorR, minorR float32, mat uint8) (Handle, bool) {
	h, o, ok := w.newObject(position, voxelSize)
	if !ok {
		return 0, false
	}
	c := localCenter()
	forEachCell(func(x, y, z int) {
		p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}.Sub(c)
		q := math32Hypot(p.X(), p.Z()) - majorR
		if math32Hypot(q, p.Y()) <= minorR {
			o.Set(x, y, z, mat)
		}
	})
	o.Recalc()
	return h, true
}

// AddTesseract voxelizes a nested-cube shape: a one-voxel-thick outer cube
// shell and a one-voxel-thick inner cube shell, with nothing joining them —
// a simple stand-in for a 4D-cube projection used as a decorative prop shape.
func (w *World) AddTesseract(position mgl32.Vec3, voxelSize float32, outerHalf, innerHalf float32, mat uint8) (Handle, bool) {
	h, o, ok := w.newObject(position, voxelSize)
	if !ok {
		return 0, false
	}
	c := localCenter()
	forEachCell(func(x, y, z int) {
		p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}.Sub(c)
		onOuterShell := onCubeShell(p, outerHalf, 1.0)
		onInnerShell := onCubeShell(p, innerHalf, 1.0)
		if onOuterShell || onInnerShell {
			o.Set(x, y, z, mat)
		}
	})
	o.Recalc()
	return h, true
}

// AddCrystal voxelizes an octahedron (|x|+|y|+|z| <= r), a faceted crystal
// silhouette.
func (w *World) AddCrystal(position mgl32.Vec3, voxelSize, radius float32, mat uint8) (Handle, bool) {
	h, o, ok := w.newObject(position, voxelSize)
	if !ok {
		return 0, false
	}
	c := localCenter()
	forEachCell(func(x, y, z int) {
		p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}.Sub(c)
		if abs32(p.X())+abs32(p.Y())+abs32(p.Z()) <= radius {
			o.Set(x, y, z, mat)
		}
	})
	o.Recalc()
	return h, true
}

// AddGyroid voxelizes a gyroid implicit surface sampled at cell offsets
// times scale (so scale sets how many periods fit the grid), thickened by
// thickness, a common procedural-lattice shape.
func (w *World) AddGyroid(position mgl32.Vec3, voxelSize, scale, thickness float32, mat uint8) (Handle, bool) {
	h, o, ok := w.newObject(position, voxelSize)
	if !ok {
		return 0, false
	}
	c := localCenter()
	forEachCell(func(x, y, z int) {
		p := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}.Sub(c).Mul(scale)
		g := sinf(p.X())*cosf(p.Y()) + sinf(p.Y())*cosf(p.Z()) + sinf(p.Z())*cosf(p.X())
		if abs32(g) <= thickness {
			o.Set(x, y, z, mat)
		}
	})
	o.Recalc()
	return h, true
}

// AddFromVoxels allocates a new object and copies a dense sx*sy*sz buffer
// of materials into it, centering the pattern on the grid if it is
// smaller than VOBJ_EDGE on any axis. Returns false (no handle) if the
// world is full or the source exceeds VOBJ_EDGE on any axis.
func (w *World) AddFromVoxels(position mgl32.Vec3, voxelSize float32, sx, sy, sz int, src []uint8) (Handle, bool) {
	if sx > VobjEdge || sy > VobjEdge || sz > VobjEdge {
		return 0, false
	}
	h, o, ok := w.newObject(position, voxelSize)
	if !ok {
		return 0, false
	}
	offX, offY, offZ := (VobjEdge-sx)/2, (VobjEdge-sy)/2, (VobjEdge-sz)/2
	for z := 0; z < sz; z++ {
		for y := 0; y < sy; y++ {
			for x := 0; x < sx; x++ {
				m := src[(z*sy+y)*sx+x]
				if m != 0 {
					o.Set(x+offX, y+offY, z+offZ, m)
				}
			}
		}
	}
	o.Recalc()
	if o.VoxelCount == 0 {
		// Recalc already cleared Active, so Remove would skip this slot;
		// release it to the free list directly.
		*o = Object{}
		w.freeList = append(w.freeList, int(h))
		return 0, false
	}
	return h, true
}

// Hit describes a successful World.Raycast result.
type Hit struct {
	Object      Handle
	ImpactPoint mgl32.Vec3
	NormalWorld mgl32.Vec3
	NormalLocal mgl32.Vec3
	CellX       int
	CellY       int
	CellZ       int
}

// Raycast finds the nearest object whose bounding sphere the ray crosses,
// then DDA-marches inside that object's local grid to find the exact
// voxel hit, if any.
func (w *World) Raycast(origin, dir mgl32.Vec3, maxDist float32) (Hit, bool) {
	dir = dir.Normalize()
	var best Hit
	bestDist := maxDist
	found := false

	w.Active(func(h Handle, o *Object) bool {
		com := o.WorldCoM()
		toCenter := com.Sub(origin)
		tClosest := toCenter.Dot(dir)
		if tClosest < 0 {
			tClosest = 0
		}
		closest := origin.Add(dir.Mul(tClosest))
		if closest.Sub(com).Len() > o.Radius {
			return true
		}

		localOrigin := o.WorldToLocal(origin).Add(localCenter().Mul(o.VoxelSize))
		localDir := o.Orientation.Conjugate().Rotate(dir)

		hit, ok := ddaLocal(o, localOrigin, localDir, bestDist)
		if ok && hit.dist < bestDist {
			bestDist = hit.dist
			best = Hit{
				Object:      h,
				ImpactPoint: origin.Add(dir.Mul(hit.dist)),
				NormalLocal: hit.normal,
				NormalWorld: o.Orientation.Rotate(hit.normal),
				CellX:       hit.x,
				CellY:       hit.y,
				CellZ:       hit.z,
			}
			found = true
		}
		return true
	})
	return best, found
}

type localHit struct {
	dist   float32
	normal mgl32.Vec3
	x, y, z int
}

// ddaLocal marches a ray (given in the object's local frame, in world
// units; the origin is divided by VoxelSize here to reach voxel-index
// space) through the VOBJ_EDGE^3 grid. The ray may start
// outside the grid box; it is first slab-clipped to [0, VobjEdge]^3.
func ddaLocal(o *Object, origin, dir mgl32.Vec3, maxDist float32) (localHit, bool) {
	const eps = 1e-7
	local := origin.Mul(1 / o.VoxelSize)
	ldir := dir
	if ldir.Len() < eps {
		return localHit{}, false
	}
	ldir = ldir.Normalize()

	tEntry, tExit, hitBox := slabIntersectLocal(local, ldir, VobjEdge)
	if !hitBox || tExit < 0 {
		return localHit{}, false
	}
	t0 := float32(0)
	if tEntry > 0 {
		t0 = tEntry
	}
	start := local.Add(ldir.Mul(t0))
	ix, iy, iz := int(math.Floor(float64(start.X()))), int(math.Floor(float64(start.Y()))), int(math.Floor(float64(start.Z())))
	ix, iy, iz = clampIdx(ix), clampIdx(iy), clampIdx(iz)
	if !inVobjRange(ix, iy, iz) {
		return localHit{}, false
	}
	if m := o.Get(ix, iy, iz); m != 0 {
		return localHit{dist: t0 * o.VoxelSize, normal: mgl32.Vec3{}, x: ix, y: iy, z: iz}, true
	}

	stepX, tDeltaX, tMaxX := ddaAxisLocal(local.X(), ldir.X(), ix)
	stepY, tDeltaY, tMaxY := ddaAxisLocal(local.Y(), ldir.Y(), iy)
	stepZ, tDeltaZ, tMaxZ := ddaAxisLocal(local.Z(), ldir.Z(), iz)
	if tMaxX < t0 {
		tMaxX = t0
	}
	if tMaxY < t0 {
		tMaxY = t0
	}
	if tMaxZ < t0 {
		tMaxZ = t0
	}

	t := t0
	lastAxis := -1
	limit := maxDist / o.VoxelSize
	if tExit < limit {
		limit = tExit
	}
	for iter := 0; iter < VobjEdge*4 && t <= limit; iter++ {
		if tMaxX < tMaxY && tMaxX < tMaxZ {
			t = tMaxX
			ix += stepX
			tMaxX += tDeltaX
			lastAxis = 0
		} else if tMaxY < tMaxZ {
			t = tMaxY
			iy += stepY
			tMaxY += tDeltaY
			lastAxis = 1
		} else {
			t = tMaxZ
			iz += stepZ
			tMaxZ += tDeltaZ
			lastAxis = 2
		}
		if !inVobjRange(ix, iy, iz) {
			return localHit{}, false
		}
		if m := o.Get(ix, iy, iz); m != 0 {
			n := mgl32.Vec3{}
			switch lastAxis {
			case 0:
				n = mgl32.Vec3{-sign32(ldir.X()), 0, 0}
			case 1:
				n = mgl32.Vec3{0, -sign32(ldir.Y()), 0}
			case 2:
				n = mgl32.Vec3{0, 0, -sign32(ldir.Z())}
			}
			return localHit{dist: t * o.VoxelSize, normal: n, x: ix, y: iy, z: iz}, true
		}
	}
	return localHit{}, false
}

func clampIdx(i int) int {
	if i < 0 {
		return 0
	}
	if i >= VobjEdge {
		return VobjEdge - 1
	}
	return i
}

// slabIntersectLocal intersects a ray (in voxel-index space) against the
// [0, edge]^3 box.
func slabIntersectLocal(origin, dir mgl32.Vec3, edge int) (tmin, tmax float32, ok bool) {
	tmin = -math.MaxFloat32
	tmax = math.MaxFloat32
	lo, hi := float32(0), float32(edge)
	for axis := 0; axis < 3; axis++ {
		var o, d float32
		switch axis {
		case 0:
			o, d = origin.X(), dir.X()
		case 1:
			o, d = origin.Y(), dir.Y()
		default:
			o, d = origin.Z(), dir.Z()
		}
		const eps = 1e-7
		if d > -eps && d < eps {
			if o < lo || o > hi {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / d
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, 0, false
		}
	}
	return tmin, tmax, true
}

func ddaAxisLocal(originAxis, dirAxis float32, voxelIdx int) (step int, tDelta, tMax float32) {
	const eps = 1e-7
	if dirAxis > eps {
		step = 1
		tDelta = 1 / dirAxis
		tMax = (float32(voxelIdx+1) - originAxis) / dirAxis
	} else if dirAxis < -eps {
		step = -1
		tDelta = 1 / -dirAxis
		tMax = (float32(voxelIdx) - originAxis) / dirAxis
	} else {
		step = 0
		tDelta = math.MaxFloat32
		tMax = math.MaxFloat32
	}
	return
}

// DestroyAtPoint clears voxels of the object at h within destroyRadius
// (world units) of impactPoint, appending each destroyed voxel's world
// position and material to outPositions/outMaterials, and returns how many
// voxels were destroyed. It stops after maxOutput voxels; voxels in range
// beyond that count are left in place. If the object
// empties, it is deactivated; otherwise its shape is recalculated and any
// resulting disconnected fragments are split into new objects.
func (w *World) DestroyAtPoint(h Handle, impactPoint mgl32.Vec3, destroyRadius float32, maxOutput int, outPositions []mgl32.Vec3, outMaterials []uint8) int {
	o := w.Get(h)
	if o == nil {
		return 0
	}
	local := o.WorldToLocal(impactPoint).Mul(1 / o.VoxelSize).Add(localCenter())
	destroyed := 0
	forEachCell(func(x, y, z int) {
		if destroyed >= maxOutput {
			return
		}
		m := o.Get(x, y, z)
		if m == 0 {
			return
		}
		cellCenter := mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5}
		if cellCenter.Sub(local).Len()*o.VoxelSize > destroyRadius {
			return
		}
		if outPositions != nil {
			worldPos := o.LocalToWorld(cellCenter.Sub(localCenter()).Mul(o.VoxelSize))
			outPositions[destroyed] = worldPos
			outMaterials[destroyed] = m
		}
		o.Set(x, y, z, 0)
		destroyed++
	})

	if o.VoxelCount == 0 {
		w.Remove(h)
		return destroyed
	}
	o.Recalc()
	w.splitDisconnected(h, o)
	return destroyed
}

func forEachCell(fn func(x, y, z int)) {
	for z := 0; z < VobjEdge; z++ {
		for y := 0; y < VobjEdge; y++ {
			for x := 0; x < VobjEdge; x++ {
				fn(x, y, z)
			}
		}
	}
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func sign32(f float32) float32 {
	if f > 0 {
		return 1
	}
	if f < 0 {
		return -1
	}
	return 0
}

func math32Hypot(a, b float32) float32 {
	return float32(math.Hypot(float64(a), float64(b)))
}

func sinf(f float32) float32 { return float32(math.Sin(float64(f))) }
func cosf(f float32) float32 { return float32(math.Cos(float64(f))) }

func onCubeShell(p mgl32.Vec3, half, shellThickness float32) bool {
	if abs32(p.X()) > half || abs32(p.Y()) > half || abs32(p.Z()) > half {
		return false
	}
	return abs32(abs32(p.X())-half) < shellThickness ||
		abs32(abs32(p.Y())-half) < shellThickness ||
		abs32(abs32(p.Z())-half) < shellThickness
}
