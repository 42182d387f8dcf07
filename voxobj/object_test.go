package voxobj

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestObjectSetGetAndRecalc(t *testing.T) {
	o := &Object{VoxelSize: 0.1}
	o.Set(8, 8, 8, 1)
	if o.VoxelCount != 1 {
		t.Fatalf("expected voxel count 1, got %d", o.VoxelCount)
	}
	o.Recalc()
	if !o.Active {
		t.Fatalf("object with voxels should be active after Recalc")
	}
	if o.Mass != VoxelDensity {
		t.Fatalf("expected mass %v, got %v", VoxelDensity, o.Mass)
	}
}

func TestObjectRecalcZeroVoxelsDeactivates(t *testing.T) {
	o := &Object{VoxelSize: 0.1}
	o.Set(0, 0, 0, 1)
	o.Set(0, 0, 0, 0)
	o.Recalc()
	if o.Active {
		t.Fatalf("object with zero voxels must not be active")
	}
}

// spec.md §8 invariant 3: bounding sphere must enclose every voxel corner.
func TestObjectRadiusEnclosesCorners(t *testing.T) {
	o := &Object{VoxelSize: 1.0}
	o.Set(0, 0, 0, 1)
	o.Set(15, 15, 15, 1)
	o.Recalc()

	c := localCenter()
	com := o.CoMOffset
	corners := [][3]int{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {16, 16, 16}, {15, 16, 16}}
	for _, cr := range corners {
		p := mgl32.Vec3{float32(cr[0]), float32(cr[1]), float32(cr[2])}.Sub(c).Mul(o.VoxelSize)
		d := p.Sub(com).Len()
		if d > o.Radius+1e-3 {
			t.Fatalf("corner %v at distance %v exceeds radius %v", cr, d, o.Radius)
		}
	}
}

// spec.md §4.4: the support rectangle is the footprint of only the
// lowest-y voxel row, not the object's overall XZ extent.
func TestObjectSupportRectUsesOnlyLowestRow(t *testing.T) {
	o := &Object{VoxelSize: 1.0}
	// A single narrow column at y=0 (the base) ...
	o.Set(8, 0, 8, 1)
	// ... under a wide slab at y=5, well clear of the base.
	for x := 2; x < 14; x++ {
		for z := 2; z < 14; z++ {
			o.Set(x, 5, z, 1)
		}
	}
	o.Recalc()

	if got := o.Support.Max.X() - o.Support.Min.X(); got != 1 {
		t.Fatalf("support rect should be 1 voxel wide (base column only), got width %v", got)
	}
	if o.Support.Min.X() != 8 || o.Support.Min.Y() != 8 {
		t.Fatalf("support rect should sit at the base column's position, got %+v", o.Support)
	}
}

func TestObjectSetOutOfRangeNoop(t *testing.T) {
	o := &Object{VoxelSize: 1.0}
	o.Set(-1, 0, 0, 1)
	o.Set(VobjEdge, 0, 0, 1)
	if o.VoxelCount != 0 {
		t.Fatalf("out-of-range sets must not change voxel count")
	}
}

func TestWorldAddSphereAndBox(t *testing.T) {
	w := NewWorld()
	h1, ok := w.AddSphere(mgl32.Vec3{}, 0.1, 6, 1)
	if !ok {
		t.Fatalf("AddSphere should succeed")
	}
	o := w.Get(h1)
	if o == nil || !o.Active || o.VoxelCount == 0 {
		t.Fatalf("expected an active non-empty sphere object")
	}

	h2, ok := w.AddBox(mgl32.Vec3{1, 0, 0}, 0.1, mgl32.Vec3{4, 4, 4}, 2)
	if !ok {
		t.Fatalf("AddBox should succeed")
	}
	if h1 == h2 {
		t.Fatalf("expected distinct handles")
	}
}

func TestWorldCapacity(t *testing.T) {
	w := NewWorld()
	count := 0
	for i := 0; i < MaxObjects+5; i++ {
		if _, ok := w.AddSphere(mgl32.Vec3{float32(i), 0, 0}, 0.1, 1, 1); ok {
			count++
		}
	}
	if count != MaxObjects {
		t.Fatalf("expected exactly %d objects to fit, got %d", MaxObjects, count)
	}
}

func TestWorldRemoveFreesSlot(t *testing.T) {
	w := NewWorld()
	h, _ := w.AddSphere(mgl32.Vec3{}, 0.1, 2, 1)
	w.Remove(h)
	if w.Get(h) != nil {
		t.Fatalf("removed object should no longer be gettable")
	}
	// slot should be reusable
	if _, ok := w.AddSphere(mgl32.Vec3{}, 0.1, 2, 1); !ok {
		t.Fatalf("freed slot should be reusable")
	}
}

func TestAddFromVoxelsRejectsOversized(t *testing.T) {
	w := NewWorld()
	if _, ok := w.AddFromVoxels(mgl32.Vec3{}, 0.1, VobjEdge+1, 1, 1, make([]uint8, VobjEdge+1)); ok {
		t.Fatalf("oversized source should be rejected")
	}
}

func TestDestroyAtPointDeactivatesWhenEmpty(t *testing.T) {
	w := NewWorld()
	h, _ := w.AddBox(mgl32.Vec3{}, 0.1, mgl32.Vec3{1, 1, 1}, 1)
	destroyed := w.DestroyAtPoint(h, mgl32.Vec3{}, 10, VobjTotal, make([]mgl32.Vec3, VobjTotal), make([]uint8, VobjTotal))
	if destroyed == 0 {
		t.Fatalf("expected some voxels destroyed")
	}
	if w.Get(h) != nil {
		t.Fatalf("fully destroyed object should be deactivated")
	}
}

func TestRaycastHitsSphere(t *testing.T) {
	w := NewWorld()
	w.AddSphere(mgl32.Vec3{0, 0, 0}, 0.1, 8, 1)
	hit, ok := w.Raycast(mgl32.Vec3{-10, 0, 0}, mgl32.Vec3{1, 0, 0}, 20)
	if !ok {
		t.Fatalf("expected a hit against the sphere object")
	}
	if hit.ImpactPoint.X() >= 0 {
		t.Fatalf("expected impact on the near side of the sphere, got %v", hit.ImpactPoint)
	}
}
