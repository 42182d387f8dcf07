// Package config loads the simulation's tunable constants and scene list
// from an embedded YAML document, mirroring the pack-wide
// go:embed-defaults-plus-yaml.v3 idiom (the teacher itself carries
// gopkg.in/yaml.v3 only as an indirect dependency; this package promotes
// it to direct use for the content-table loading spec.md §6 calls for).
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// VolumeConfig sizes the terrain volume at scene creation.
type VolumeConfig struct {
	ChunksX   int     `yaml:"chunks_x"`
	ChunksY   int     `yaml:"chunks_y"`
	ChunksZ   int     `yaml:"chunks_z"`
	VoxelSize float32 `yaml:"voxel_size"`
}

// DetachConfig mirrors voxobj.Config's tunables (spec.md §4.5).
type DetachConfig struct {
	Enabled            bool `yaml:"enabled"`
	AnchorYOffset      int  `yaml:"anchor_y_offset"`
	MinVoxelsPerIsland int  `yaml:"min_voxels_per_island"`
	MaxVoxelsPerIsland int  `yaml:"max_voxels_per_island"`
	MaxIslandsPerTick  int  `yaml:"max_islands_per_tick"`
	MaxBodiesAlive     int  `yaml:"max_bodies_alive"`
}

// ParticlesConfig holds the particle system's floor bound.
type ParticlesConfig struct {
	FloorY float32 `yaml:"floor_y"`
}

// Config is the fully resolved set of startup knobs: scene list, RNG seed,
// stress-object count, volume/detach/particle tunables, and (set from the
// CLI, not YAML) an optional profile CSV output path.
type Config struct {
	RNGSeed       int64           `yaml:"rng_seed"`
	StressObjects int             `yaml:"stress_objects"`
	Volume        VolumeConfig    `yaml:"volume"`
	Detach        DetachConfig    `yaml:"detach"`
	Particles     ParticlesConfig `yaml:"particles"`
	Scenes        []string        `yaml:"scenes"`

	// ProfileCSVPath is set by the CLI layer (--profile-csv), not YAML.
	ProfileCSVPath string `yaml:"-"`
}

// Load parses the embedded defaults and applies the RNG_SEED/
// STRESS_OBJECTS environment overrides named in spec.md §6.
func Load() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing defaults: %w", err)
	}
	cfg.applyEnvOverrides()
	return &cfg, nil
}

// LoadFile parses a YAML document at path instead of the embedded
// defaults, falling back to the embedded document for any field the file
// omits (yaml.Unmarshal leaves zero values otherwise, so callers that want
// a full override should supply every field).
func LoadFile(path string) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (cfg *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("RNG_SEED"); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RNGSeed = n
		}
	}
	if v, ok := os.LookupEnv("STRESS_OBJECTS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StressObjects = n
		}
	}
}

// SceneIndex returns the index of name in cfg.Scenes, or -1 and false if
// name is not a configured scene (the CLI uses this to exit 3 on an
// out-of-range --scene, per spec.md §6).
func (cfg *Config) SceneIndex(name string) (int, bool) {
	for i, s := range cfg.Scenes {
		if s == name {
			return i, true
		}
	}
	return -1, false
}
