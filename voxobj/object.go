// Package voxobj implements small dynamic voxel bodies ("voxel objects"):
// dense VOBJ_EDGE^3 grids that are treated as single rigid bodies, plus
// the detachment pipeline that promotes floating volume islands into new
// objects.
package voxobj

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/kvoxel/sim/voxmath"
)

// VobjEdge is the edge length, in voxels, of a voxel object's grid.
// Fixed by the design at 16 (the original C source's VOBJ_GRID_SIZE was
// 12; this project follows the design's explicit 16, since the design
// changed the constant deliberately rather than leaving it unspecified).
const VobjEdge = 16

// VobjTotal is the total voxel count of one object's grid.
const VobjTotal = VobjEdge * VobjEdge * VobjEdge

// MaxObjects bounds how many voxel objects can be alive at once.
const MaxObjects = 256

// VoxelDensity converts a voxel count into mass (mass = voxelCount *
// VoxelDensity).
const VoxelDensity = float32(1.0)

// SupportRect is the XZ footprint of an object's lowest-y voxel row.
type SupportRect struct {
	Min, Max mgl32.Vec2
}

// Object is one dynamic voxel body: a dense VOBJ_EDGE^3 grid plus its pose,
// velocity, and the derived shape quantities recomputed by Recalc whenever
// the voxel set changes structurally.
type Object struct {
	SourceID uuid.UUID

	Position        mgl32.Vec3
	Orientation     mgl32.Quat
	Velocity        mgl32.Vec3
	AngularVelocity mgl32.Vec3

	Voxels     [VobjTotal]uint8
	VoxelCount int32
	VoxelSize  float32

	HalfExtents  mgl32.Vec3
	CoMOffset    mgl32.Vec3
	Radius       float32
	Support      SupportRect
	Mass         float32
	InvMass      float32
	InertiaLocal mgl32.Mat3
	InvInertia   mgl32.Mat3

	Active bool
}

func vobjIndex(x, y, z int) int { return (z*VobjEdge+y)*VobjEdge + x }

func vobjCoords(i int) (x, y, z int) {
	z = i / (VobjEdge * VobjEdge)
	rem := i % (VobjEdge * VobjEdge)
	y = rem / VobjEdge
	x = rem % VobjEdge
	return
}

func inVobjRange(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < VobjEdge && y < VobjEdge && z < VobjEdge
}

// Get returns the material at local grid coordinates, or 0 if out of
// range.
func (o *Object) Get(x, y, z int) uint8 {
	if !inVobjRange(x, y, z) {
		return 0
	}
	return o.Voxels[vobjIndex(x, y, z)]
}

// Set writes material at local grid coordinates, maintaining VoxelCount.
// Out-of-range coordinates are a silent no-op.
func (o *Object) Set(x, y, z int, mat uint8) {
	if !inVobjRange(x, y, z) {
		return
	}
	i := vobjIndex(x, y, z)
	was := o.Voxels[i]
	if was == mat {
		return
	}
	if was != 0 && mat == 0 {
		o.VoxelCount--
	} else if was == 0 && mat != 0 {
		o.VoxelCount++
	}
	o.Voxels[i] = mat
}

// localCenter returns the geometric center of the VOBJ_EDGE^3 grid in
// local voxel-index space.
func localCenter() mgl32.Vec3 {
	c := float32(VobjEdge) / 2
	return mgl32.Vec3{c, c, c}
}

// Recalc recomputes AABB-derived shape quantities (half extents, center of
// mass offset, bounding radius, support rectangle, mass/inverse mass, and
// local inertia tensor) from the current voxel set. Call after any
// structural edit (Set calls that change occupancy). If VoxelCount == 0,
// Active is cleared and all derived quantities are zeroed.
func (o *Object) Recalc() {
	if o.VoxelCount == 0 {
		o.Active = false
		o.HalfExtents = mgl32.Vec3{}
		o.CoMOffset = mgl32.Vec3{}
		o.Radius = 0
		o.Mass = 0
		o.InvMass = 0
		o.InertiaLocal = mgl32.Mat3{}
		o.InvInertia = mgl32.Mat3{}
		o.Support = SupportRect{}
		return
	}

	minI := [3]int{VobjEdge, VobjEdge, VobjEdge}
	maxI := [3]int{-1, -1, -1}
	var sum mgl32.Vec3
	minY := VobjEdge
	for i, v := range o.Voxels {
		if v == 0 {
			continue
		}
		x, y, z := vobjCoords(i)
		if x < minI[0] {
			minI[0] = x
		}
		if y < minI[1] {
			minI[1] = y
		}
		if z < minI[2] {
			minI[2] = z
		}
		if x > maxI[0] {
			maxI[0] = x
		}
		if y > maxI[1] {
			maxI[1] = y
		}
		if z > maxI[2] {
			maxI[2] = z
		}
		sum = sum.Add(mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, float32(z) + 0.5})
		if y < minY {
			minY = y
		}
	}

	o.HalfExtents = mgl32.Vec3{
		float32(maxI[0]-minI[0]+1) * o.VoxelSize / 2,
		float32(maxI[1]-minI[1]+1) * o.VoxelSize / 2,
		float32(maxI[2]-minI[2]+1) * o.VoxelSize / 2,
	}

	gridCenter := localCenter()
	comLocal := sum.Mul(1 / float32(o.VoxelCount))
	o.CoMOffset = comLocal.Sub(gridCenter).Mul(o.VoxelSize)

	// Bounding radius: max distance from CoM to any corner of any solid
	// voxel (not just voxel centers), so the sphere truly encloses the
	// OBB.
	var maxR2 float32
	for i, v := range o.Voxels {
		if v == 0 {
			continue
		}
		x, y, z := vobjCoords(i)
		base := mgl32.Vec3{float32(x), float32(y), float32(z)}
		for dz := 0; dz <= 1; dz++ {
			for dy := 0; dy <= 1; dy++ {
				for dx := 0; dx <= 1; dx++ {
					corner := base.Add(mgl32.Vec3{float32(dx), float32(dy), float32(dz)}).Sub(gridCenter).Mul(o.VoxelSize)
					d := corner.Sub(o.CoMOffset)
					r2 := d.Dot(d)
					if r2 > maxR2 {
						maxR2 = r2
					}
				}
			}
		}
	}
	o.Radius = float32(math.Sqrt(float64(maxR2)))

	// Support rectangle: the XZ footprint of only the lowest-y solid
	// row, not the whole AABB — a shape that tapers toward its base
	// (e.g. a pyramid) has a smaller footprint than its overall extent.
	supMinX, supMinZ := VobjEdge, VobjEdge
	supMaxX, supMaxZ := -1, -1
	for i, v := range o.Voxels {
		if v == 0 {
			continue
		}
		x, y, z := vobjCoords(i)
		if y != minY {
			continue
		}
		if x < supMinX {
			supMinX = x
		}
		if z < supMinZ {
			supMinZ = z
		}
		if x > supMaxX {
			supMaxX = x
		}
		if z > supMaxZ {
			supMaxZ = z
		}
	}
	o.Support = SupportRect{
		Min: mgl32.Vec2{float32(supMinX), float32(supMinZ)},
		Max: mgl32.Vec2{float32(supMaxX + 1), float32(supMaxZ + 1)},
	}

	o.Mass = float32(o.VoxelCount) * VoxelDensity
	o.InvMass = 1 / o.Mass

	w, h, d := o.HalfExtents.X()*2, o.HalfExtents.Y()*2, o.HalfExtents.Z()*2
	m := o.Mass
	ix := (1.0 / 12.0) * m * (h*h + d*d)
	iy := (1.0 / 12.0) * m * (w*w + d*d)
	iz := (1.0 / 12.0) * m * (w*w + h*h)
	o.InertiaLocal = mgl32.Mat3{ix, 0, 0, 0, iy, 0, 0, 0, iz}
	o.InvInertia = mgl32.Mat3{1 / ix, 0, 0, 0, 1 / iy, 0, 0, 0, 1 / iz}

	o.Active = true
}

// WorldAABB returns the object's current world-space AABB, derived from
// position and half extents (ignoring rotation — a conservative bound
// used for broadphase only).
func (o *Object) WorldAABB() voxmath.AABB {
	return voxmath.AABB{
		Min: o.Position.Sub(o.HalfExtents),
		Max: o.Position.Add(o.HalfExtents),
	}
}

// WorldCoM returns the object's center of mass in world space.
func (o *Object) WorldCoM() mgl32.Vec3 {
	rotated := o.Orientation.Rotate(o.CoMOffset)
	return o.Position.Add(rotated)
}

// LocalToWorld transforms a point in the object's local voxel-grid space
// (same units as CoMOffset, centered on the grid) into world space.
func (o *Object) LocalToWorld(p mgl32.Vec3) mgl32.Vec3 {
	return o.Position.Add(o.Orientation.Rotate(p))
}

// WorldToLocal transforms a world-space point into the object's local
// voxel-grid space.
func (o *Object) WorldToLocal(p mgl32.Vec3) mgl32.Vec3 {
	inv := o.Orientation.Conjugate()
	return inv.Rotate(p.Sub(o.Position))
}
