package voxel

import "testing"

func TestChunkSetGet(t *testing.T) {
	c := NewChunk()
	if c.Get(1, 2, 3) != 0 {
		t.Fatalf("fresh chunk should be all air")
	}
	changed := c.Set(1, 2, 3, 5)
	if !changed {
		t.Fatalf("first set should report changed")
	}
	if c.Get(1, 2, 3) != 5 {
		t.Fatalf("expected material 5")
	}
	if c.SolidCount() != 1 {
		t.Fatalf("expected solid count 1, got %d", c.SolidCount())
	}
	if !c.checkInvariants() {
		t.Fatalf("invariants broken after set")
	}
}

func TestChunkSetIdempotent(t *testing.T) {
	c := NewChunk()
	c.Set(0, 0, 0, 1)
	v1 := c.Version()
	changed := c.Set(0, 0, 0, 1)
	if changed {
		t.Fatalf("setting the same material should report unchanged")
	}
	if c.Version() != v1 {
		t.Fatalf("version should not bump on a no-op set")
	}
}

func TestChunkOutOfRange(t *testing.T) {
	c := NewChunk()
	if c.Get(-1, 0, 0) != 0 {
		t.Fatalf("out of range get should be air")
	}
	if c.Set(32, 0, 0, 9) {
		t.Fatalf("out of range set should be a no-op")
	}
}

func TestChunkClearUpdatesSolidCount(t *testing.T) {
	c := NewChunk()
	c.Set(5, 5, 5, 3)
	c.Set(5, 5, 5, 0)
	if c.SolidCount() != 0 {
		t.Fatalf("expected solid count 0 after clearing, got %d", c.SolidCount())
	}
	if c.AnySolid() {
		t.Fatalf("AnySolid should be false")
	}
}

func TestChunkIterSolid(t *testing.T) {
	c := NewChunk()
	want := map[[3]int]uint8{
		{0, 0, 0}:    1,
		{31, 31, 31}: 2,
		{10, 20, 5}:  3,
	}
	for k, v := range want {
		c.Set(k[0], k[1], k[2], v)
	}
	got := map[[3]int]uint8{}
	c.IterSolid(func(x, y, z int, m uint8) bool {
		got[[3]int{x, y, z}] = m
		return true
	})
	if len(got) != len(want) {
		t.Fatalf("got %d solid voxels, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("voxel %v: got %d want %d", k, got[k], v)
		}
	}
}

func TestChunkRebuildOccupancy(t *testing.T) {
	c := NewChunk()
	c.voxels[0] = 7
	c.voxels[100] = 2
	c.RebuildOccupancy()
	if c.SolidCount() != 2 {
		t.Fatalf("expected solid count 2, got %d", c.SolidCount())
	}
	if !c.checkInvariants() {
		t.Fatalf("invariants broken after rebuild")
	}
	// idempotent
	c.RebuildOccupancy()
	if c.SolidCount() != 2 {
		t.Fatalf("rebuild should be idempotent")
	}
}
