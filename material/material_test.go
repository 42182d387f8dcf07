package material

import (
	"os"
	"testing"
)

func TestNewRegistryReservesAir(t *testing.T) {
	r := NewRegistry()
	if r.Get(0).Name != "air" {
		t.Fatalf("slot 0 should be air, got %+v", r.Get(0))
	}
	if r.Get(0).Solid() {
		t.Fatalf("air must not be solid")
	}
}

func TestSetRejectsAirSlot(t *testing.T) {
	r := NewRegistry()
	if err := r.Set(0, Default()); err == nil {
		t.Fatalf("expected error overwriting slot 0")
	}
}

func TestSetAndGet(t *testing.T) {
	r := NewRegistry()
	stone := Default()
	stone.Name = "stone"
	stone.Density = 2.5
	if err := r.Set(1, stone); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got := r.Get(1)
	if got.Name != "stone" || got.Density != 2.5 || !got.Solid() {
		t.Fatalf("unexpected descriptor: %+v", got)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/materials.yaml"
	doc := `
materials:
  - id: 1
    name: stone
    base_color: [120, 120, 120, 255]
    density: 2.5
    solid: true
  - id: 2
    name: glass
    transparency: 0.9
    transparent: true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	r, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	stone := r.Get(1)
	if stone.Name != "stone" || !stone.Solid() || stone.Density != 2.5 {
		t.Fatalf("unexpected stone: %+v", stone)
	}
	glass := r.Get(2)
	if glass.Solid() {
		t.Fatalf("glass should not be solid")
	}
	if glass.Flags&FlagTransparent == 0 {
		t.Fatalf("glass should be transparent")
	}
}
