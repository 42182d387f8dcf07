package scene

import (
	_ "embed"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/kvoxel/sim/voxobj"
)

// Descriptor is the read-only, content-side shape a Scene can be seeded
// from at construction time — never consulted again during Tick. Adapted
// from the teacher's root-level scene.go (SceneDef/VoxelObjectDef/
// ProceduralDef), stripped of the rendering-only fields (a ModelPath /
// .vox asset path) that have no consumer left once asset loading is out
// of scope (spec.md §1); procedural spawns go straight through
// voxobj.World's primitive constructors instead.
type Descriptor struct {
	VoxelObjects []ObjectDescriptor `yaml:"voxel_objects"`
}

// ObjectDescriptor describes one voxel object to spawn at scene creation,
// using the same procedural-primitive vocabulary as voxobj.World's
// Add* constructors.
type ObjectDescriptor struct {
	Primitive string     `yaml:"primitive"` // "sphere", "box", "cylinder", "torus", "tesseract", "crystal", "gyroid"
	Position  mgl32.Vec3 `yaml:"position"`
	Params    []float32  `yaml:"params"`
	Material  uint8      `yaml:"material"`
}

//go:embed default_scene.yaml
var defaultDescriptorYAML []byte

// DefaultDescriptor parses the embedded content-table default: the handful
// of procedural voxel objects a freshly created Roam scene is seeded with,
// per spec.md §6's "scene descriptors ... are read-only content delivered
// at startup".
func DefaultDescriptor() (Descriptor, error) {
	return LoadDescriptor(defaultDescriptorYAML)
}

// LoadDescriptor parses a scene descriptor document from data.
func LoadDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("scene: parsing descriptor: %w", err)
	}
	return d, nil
}

// Spawn instantiates every object in d against s.Objects, wiring each
// resulting handle into s.Solver so it immediately participates in the
// next Step.
func (d Descriptor) Spawn(s *Scene) {
	for _, od := range d.VoxelObjects {
		h, ok := spawnPrimitive(s, od)
		if !ok {
			continue
		}
		if o := s.Objects.Get(h); o != nil {
			s.Solver.AddBody(o)
		}
	}
}

func spawnPrimitive(s *Scene, od ObjectDescriptor) (voxobj.Handle, bool) {
	vs := s.Volume.VoxelSize
	p := od.Params
	switch od.Primitive {
	case "sphere":
		return s.Objects.AddSphere(od.Position, vs, param(p, 0, 2.0), od.Material)
	case "box":
		return s.Objects.AddBox(od.Position, vs, mgl32.Vec3{param(p, 0, 2), param(p, 1, 2), param(p, 2, 2)}, od.Material)
	case "cylinder":
		return s.Objects.AddCylinder(od.Position, vs, param(p, 0, 2), param(p, 1, 2), od.Material)
	case "torus":
		return s.Objects.AddTorus(od.Position, vs, param(p, 0, 3), param(p, 1, 1), od.Material)
	case "tesseract":
		return s.Objects.AddTesseract(od.Position, vs, param(p, 0, 6), param(p, 1, 3), od.Material)
	case "crystal":
		return s.Objects.AddCrystal(od.Position, vs, param(p, 0, 3), od.Material)
	case "gyroid":
		return s.Objects.AddGyroid(od.Position, vs, param(p, 0, 1), param(p, 1, 0.3), od.Material)
	default:
		return 0, false
	}
}

func param(params []float32, i int, dflt float32) float32 {
	if i < len(params) {
		return params[i]
	}
	return dflt
}
