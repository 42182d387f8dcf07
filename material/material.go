// Package material holds the immutable material registry: a process-wide,
// read-only lookup from a voxel's material id byte to its render and
// physical properties.
package material

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Flag bits on Descriptor.Flags.
const (
	FlagSolid       uint8 = 1 << 0
	FlagTransparent uint8 = 1 << 1
)

// Descriptor is an immutable material record. Index 0 is reserved for air
// and is never looked up by voxel code (material id 0 means empty).
type Descriptor struct {
	Name         string
	SourceID     uuid.UUID
	BaseColor    [4]uint8
	Emissive     [4]uint8
	Roughness    float32
	Metalness    float32
	IOR          float32
	Transparency float32
	Density      float32
	Flags        uint8
}

// Solid reports whether voxels of this material participate in collision
// and connectivity.
func (d Descriptor) Solid() bool {
	return d.Flags&FlagSolid != 0
}

// Default returns a plain white, fully solid, unit-density material.
func Default() Descriptor {
	return Descriptor{
		Name:         "default",
		BaseColor:    [4]uint8{255, 255, 255, 255},
		Emissive:     [4]uint8{0, 0, 0, 0},
		Roughness:    1.0,
		Metalness:    0.0,
		IOR:          1.0,
		Transparency: 0.0,
		Density:      1.0,
		Flags:        FlagSolid,
	}
}

// Registry is a fixed-size, index-addressed material table. It is built
// once at startup and never mutated afterward; simulation code only reads
// it.
type Registry struct {
	entries [256]Descriptor
	loaded  [256]bool
}

// NewRegistry returns a registry with slot 0 reserved for air and every
// other slot left as a zero-value Descriptor marked unloaded.
func NewRegistry() *Registry {
	r := &Registry{}
	r.entries[0] = Descriptor{Name: "air"}
	r.loaded[0] = true
	return r
}

// Get returns the descriptor for id, or the zero-value "air" descriptor if
// id was never registered.
func (r *Registry) Get(id uint8) Descriptor {
	return r.entries[id]
}

// Set registers a descriptor at id. id 0 is reserved and cannot be
// overwritten.
func (r *Registry) Set(id uint8, d Descriptor) error {
	if id == 0 {
		return fmt.Errorf("material: id 0 is reserved for air")
	}
	r.entries[id] = d
	r.loaded[id] = true
	return nil
}

// yamlMaterial is the on-disk shape for one registry entry.
type yamlMaterial struct {
	ID           uint8     `yaml:"id"`
	Name         string    `yaml:"name"`
	SourceID     string    `yaml:"source_id"`
	BaseColor    [4]uint8  `yaml:"base_color"`
	Emissive     [4]uint8  `yaml:"emissive"`
	Roughness    float32   `yaml:"roughness"`
	Metalness    float32   `yaml:"metalness"`
	IOR          float32   `yaml:"ior"`
	Transparency float32   `yaml:"transparency"`
	Density      float32   `yaml:"density"`
	Solid        bool      `yaml:"solid"`
	Transparent  bool      `yaml:"transparent"`
}

type yamlDoc struct {
	Materials []yamlMaterial `yaml:"materials"`
}

// LoadYAML populates the registry from a material table document. It is
// the only way non-air materials are expected to enter a Registry outside
// of tests.
func LoadYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("material: read %s: %w", path, err)
	}
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("material: parse %s: %w", path, err)
	}
	r := NewRegistry()
	for _, m := range doc.Materials {
		d := Descriptor{
			Name:         m.Name,
			BaseColor:    m.BaseColor,
			Emissive:     m.Emissive,
			Roughness:    m.Roughness,
			Metalness:    m.Metalness,
			IOR:          m.IOR,
			Transparency: m.Transparency,
			Density:      m.Density,
		}
		if m.SourceID != "" {
			id, err := uuid.Parse(m.SourceID)
			if err != nil {
				return nil, fmt.Errorf("material: %s: bad source_id: %w", m.Name, err)
			}
			d.SourceID = id
		}
		if m.Solid {
			d.Flags |= FlagSolid
		}
		if m.Transparent {
			d.Flags |= FlagTransparent
		}
		if err := r.Set(m.ID, d); err != nil {
			return nil, err
		}
	}
	return r, nil
}
