package voxobj

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/kvoxel/sim/voxel"
)

func newDetachVolume(t *testing.T) *voxel.Volume {
	t.Helper()
	v, err := voxel.NewVolume(2, 2, 2, mgl32.Vec3{0, 0, 0}, 1.0)
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	return v
}

// Scenario B from spec.md §8: destruction spawns a rigid body.
func TestProcessSpawnsBodyForFloatingIsland(t *testing.T) {
	v := newDetachVolume(t)
	v.EditBegin()
	for z := 5; z < 10; z++ {
		for x := 5; x < 10; x++ {
			v.EditSet(mgl32.Vec3{float32(x) + 0.5, 10.5, float32(z) + 0.5}, 1)
		}
	}
	v.EditEnd()

	w := NewWorld()
	work := voxel.NewWork()
	cfg := Config{
		Enabled:            true,
		AnchorYOffset:      0,
		MinVoxelsPerIsland: 1,
		MaxVoxelsPerIsland: 10000,
		MaxIslandsPerTick:  10,
		MaxBodiesAlive:     MaxObjects,
	}
	result := Process(v, w, cfg, work, 0)
	if result.BodiesSpawned != 1 {
		t.Fatalf("expected 1 body spawned, got %+v", result)
	}
}

func TestProcessRemovesDustIslands(t *testing.T) {
	v := newDetachVolume(t)
	v.EditBegin()
	v.EditSet(mgl32.Vec3{5.5, 20.5, 5.5}, 1)
	v.EditEnd()

	w := NewWorld()
	work := voxel.NewWork()
	cfg := Config{
		Enabled:            true,
		MinVoxelsPerIsland: 5,
		MaxVoxelsPerIsland: 10000,
		MaxIslandsPerTick:  10,
		MaxBodiesAlive:     MaxObjects,
	}
	result := Process(v, w, cfg, work, 0)
	if result.Removed != 1 || result.BodiesSpawned != 0 {
		t.Fatalf("expected dust removal, got %+v", result)
	}
	if v.GetAt(mgl32.Vec3{5.5, 20.5, 5.5}) != 0 {
		t.Fatalf("dust voxel should have been cleared")
	}
}

func TestProcessSkipsOversizedIsland(t *testing.T) {
	v, err := voxel.NewVolume(3, 3, 3, mgl32.Vec3{0, 0, 0}, 1.0)
	if err != nil {
		t.Fatalf("NewVolume: %v", err)
	}
	v.EditBegin()
	for z := 0; z < 20; z++ {
		for x := 0; x < 20; x++ {
			v.EditSet(mgl32.Vec3{float32(x) + 0.5, 50.5, float32(z) + 0.5}, 1)
		}
	}
	v.EditEnd()

	w := NewWorld()
	work := voxel.NewWork()
	cfg := Config{
		Enabled:            true,
		MinVoxelsPerIsland: 1,
		MaxVoxelsPerIsland: 100000,
		MaxIslandsPerTick:  10,
		MaxBodiesAlive:     MaxObjects,
	}
	result := Process(v, w, cfg, work, 0)
	if result.Skipped != 1 || result.BodiesSpawned != 0 {
		t.Fatalf("expected oversized island to be skipped, got %+v", result)
	}
	if v.GetAt(mgl32.Vec3{0.5, 50.5, 0.5}) != 1 {
		t.Fatalf("skipped island voxels should remain in the volume")
	}
}

func TestSplitDisconnectedSeparatesComponents(t *testing.T) {
	w := NewWorld()
	h, o, ok := w.newObject(mgl32.Vec3{}, 0.1)
	if !ok {
		t.Fatalf("newObject failed")
	}
	o.Set(1, 1, 1, 1)
	o.Set(14, 14, 14, 1)
	o.Recalc()
	w.splitDisconnected(h, o)

	count := 0
	w.Active(func(hh Handle, oo *Object) bool {
		count++
		return true
	})
	if count != 2 {
		t.Fatalf("expected 2 objects after splitting disconnected voxels, got %d", count)
	}
}
