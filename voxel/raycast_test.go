package voxel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// Scenario A from spec.md §8: raycast into a single solid voxel.
func TestRaycastSingleVoxel(t *testing.T) {
	v := newTestVolume(t, 1, 1.0)
	v.EditBegin()
	v.EditSet(mgl32.Vec3{0.5, 0.5, 0.5}, 1)
	v.EditEnd()

	hit, ok := v.Raycast(mgl32.Vec3{-1, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, 10)
	if !ok {
		t.Fatalf("expected a hit")
	}
	if hit.Material != 1 {
		t.Fatalf("expected material 1, got %d", hit.Material)
	}
	wantPos := mgl32.Vec3{0, 0.5, 0.5}
	if dist(hit.Pos, wantPos) > 0.01 {
		t.Fatalf("expected hit pos ~%v, got %v", wantPos, hit.Pos)
	}
	wantNormal := mgl32.Vec3{-1, 0, 0}
	if dist(hit.Normal, wantNormal) > 0.01 {
		t.Fatalf("expected normal %v, got %v", wantNormal, hit.Normal)
	}
}

func TestRaycastMiss(t *testing.T) {
	v := newTestVolume(t, 1, 1.0)
	hit, ok := v.Raycast(mgl32.Vec3{-1, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, 10)
	if ok {
		t.Fatalf("expected no hit in an empty volume, got %+v", hit)
	}
}

func TestRaycastStartsInsideSolid(t *testing.T) {
	v := newTestVolume(t, 1, 1.0)
	v.EditBegin()
	v.EditSet(mgl32.Vec3{0.5, 0.5, 0.5}, 2)
	v.EditEnd()

	hit, ok := v.Raycast(mgl32.Vec3{0.5, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, 10)
	if !ok {
		t.Fatalf("expected immediate hit starting inside solid")
	}
	if hit.Dist != 0 {
		t.Fatalf("expected dist 0, got %v", hit.Dist)
	}
	if hit.Normal != (mgl32.Vec3{}) {
		t.Fatalf("expected zero normal sentinel, got %v", hit.Normal)
	}
}

func TestRaycastAxisAlignedNoNaN(t *testing.T) {
	v := newTestVolume(t, 1, 1.0)
	v.EditBegin()
	v.EditSet(mgl32.Vec3{16, 16, 16}, 1)
	v.EditEnd()
	// Direction with a zero component on two axes: parallel to X axis.
	hit, ok := v.Raycast(mgl32.Vec3{0, 16.5, 16.5}, mgl32.Vec3{1, 0, 0}, 100)
	if !ok {
		t.Fatalf("expected a hit along the axis-aligned ray")
	}
	if hit.Dist != hit.Dist { // NaN check
		t.Fatalf("got NaN distance")
	}
}

func TestRaycastRepeatsSameResult(t *testing.T) {
	v := newTestVolume(t, 1, 1.0)
	v.EditBegin()
	v.EditSet(mgl32.Vec3{0.5, 0.5, 0.5}, 3)
	v.EditEnd()

	h1, ok1 := v.Raycast(mgl32.Vec3{-2, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, 20)
	h2, ok2 := v.Raycast(mgl32.Vec3{-2, 0.5, 0.5}, mgl32.Vec3{1, 0, 0}, 20)
	if ok1 != ok2 || h1 != h2 {
		t.Fatalf("raycast should be repeatable without edits between calls: %+v vs %+v", h1, h2)
	}
}

func dist(a, b mgl32.Vec3) float32 {
	return a.Sub(b).Len()
}
