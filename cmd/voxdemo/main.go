// Command voxdemo is a small CLI entry point over the voxel simulation
// core: it selects a scene, runs the fixed-tick loop, and optionally
// opens a raylib window that draws the core's read-only snapshots as
// cubes and points. It is an external rendering consumer only — the
// simulation packages never import raylib (spec.md §1 "the core consumes
// no rendering API"). Flag-block and headless/max-ticks structure
// grounded on the pthm-soup example repo's main.go.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/kvoxel/sim/config"
	"github.com/kvoxel/sim/particlesys"
	"github.com/kvoxel/sim/profile"
	"github.com/kvoxel/sim/scene"
	"github.com/kvoxel/sim/simlog"
)

var (
	sceneName     = flag.String("scene", "ballpit", "Scene to run (ballpit, roam, stress)")
	speed         = flag.Int("speed", 1, "Fixed ticks run per rendered frame (1-10)")
	testFrames    = flag.Int("test-frames", 0, "Exit after N fixed ticks (0 = run forever)")
	profileCSV    = flag.String("profile-csv", "", "Write a tick-timing CSV to this path on exit")
	headless      = flag.Bool("headless", false, "Run without opening a window")
	rngSeedFlag   = flag.Int64("rng-seed", 0, "Override RNG_SEED (0 = use config default)")
	stressObjects = flag.Int("stress-objects", 0, "Override STRESS_OBJECTS for the stress scene (0 = use config default)")
)

const (
	screenWidth  = 1280
	screenHeight = 800
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxdemo: loading config: %v\n", err)
		os.Exit(1)
	}
	if *rngSeedFlag != 0 {
		cfg.RNGSeed = *rngSeedFlag
	}
	if *stressObjects != 0 {
		cfg.StressObjects = *stressObjects
	}
	cfg.ProfileCSVPath = *profileCSV

	if _, ok := cfg.SceneIndex(*sceneName); !ok {
		fmt.Fprintf(os.Stderr, "voxdemo: unknown scene %q (want one of %v)\n", *sceneName, cfg.Scenes)
		os.Exit(3)
	}
	kind, ok := scene.ParseKind(*sceneName)
	if !ok {
		fmt.Fprintf(os.Stderr, "voxdemo: unknown scene %q\n", *sceneName)
		os.Exit(3)
	}

	sc, err := scene.New(cfg, kind)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxdemo: creating scene: %v\n", err)
		os.Exit(1)
	}

	prof := profile.New()

	if *headless {
		runHeadless(sc, prof, cfg)
		return
	}
	runWindowed(sc, prof, cfg)
}

func runHeadless(sc *scene.Scene, prof *profile.Profiler, cfg *config.Config) {
	simlog.Logf("starting headless run: scene=%s seed=%d", sc.Kind, cfg.RNGSeed)
	start := time.Now()
	lastReport := start

	steps := *speed
	if steps < 1 {
		steps = 1
	}

	for {
		if *testFrames > 0 && int(sc.TickCount()) >= *testFrames {
			simlog.Logf("reached test-frames=%d, stopping", *testFrames)
			break
		}
		for i := 0; i < steps; i++ {
			sc.Tick(scene.SimDt, prof)
		}
		if time.Since(lastReport) >= 10*time.Second {
			elapsed := time.Since(start)
			rate := float64(sc.TickCount()) / elapsed.Seconds()
			simlog.Logf("tick=%d %.0f ticks/sec elapsed=%s", sc.TickCount(), rate, elapsed.Round(time.Second))
			lastReport = time.Now()
		}
	}
	finishProfile(prof, cfg)
}

func runWindowed(sc *scene.Scene, prof *profile.Profiler, cfg *config.Config) {
	rl.InitWindow(screenWidth, screenHeight, "voxdemo")
	defer rl.CloseWindow()
	rl.SetTargetFPS(60)

	steps := *speed
	if steps < 1 {
		steps = 1
	}

	particleBuf := make([]particlesys.Particle, particlesys.ParticleMax)

	for !rl.WindowShouldClose() {
		if *testFrames > 0 && int(sc.TickCount()) >= *testFrames {
			break
		}
		for i := 0; i < steps; i++ {
			sc.Tick(scene.SimDt, prof)
		}

		snap := sc.Snapshot(particleBuf)
		draw(snap)
	}
	finishProfile(prof, cfg)
}

func draw(snap scene.Snapshot) {
	rl.BeginDrawing()
	rl.ClearBackground(rl.Color{R: 20, G: 24, B: 32, A: 255})

	cam := rl.Camera3D{
		Position:   rl.Vector3{X: 24, Y: 24, Z: 24},
		Target:     rl.Vector3{X: 0, Y: 0, Z: 0},
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       60,
		Projection: rl.CameraPerspective,
	}
	rl.BeginMode3D(cam)

	for _, cs := range snap.Chunks {
		if !cs.AnySolid {
			continue
		}
		origin := rl.Vector3{
			X: snap.Origin.X() + float32(cs.Coord.X*32)*snap.VoxelSize,
			Y: snap.Origin.Y() + float32(cs.Coord.Y*32)*snap.VoxelSize,
			Z: snap.Origin.Z() + float32(cs.Coord.Z*32)*snap.VoxelSize,
		}
		for i, mat := range cs.Voxels {
			if mat == 0 {
				continue
			}
			x, y, z := i%32, (i/32)%32, i/(32*32)
			pos := rl.Vector3{
				X: origin.X + float32(x)*snap.VoxelSize,
				Y: origin.Y + float32(y)*snap.VoxelSize,
				Z: origin.Z + float32(z)*snap.VoxelSize,
			}
			rl.DrawCube(pos, snap.VoxelSize, snap.VoxelSize, snap.VoxelSize, rl.Gray)
		}
	}

	for _, objSnap := range snap.Objects {
		pos := rl.Vector3{X: objSnap.Position.X(), Y: objSnap.Position.Y(), Z: objSnap.Position.Z()}
		rl.DrawSphere(pos, objSnap.VoxelSize*2, rl.Maroon)
	}

	for i := 0; i < snap.ParticleN; i++ {
		p := snap.Particles[i]
		pos := rl.Vector3{X: p.Position.X(), Y: p.Position.Y(), Z: p.Position.Z()}
		col := rl.Color{R: uint8(p.Color.X() * 255), G: uint8(p.Color.Y() * 255), B: uint8(p.Color.Z() * 255), A: 255}
		rl.DrawPoint3D(pos, col)
	}

	rl.EndMode3D()
	rl.DrawFPS(10, 10)
	rl.EndDrawing()
}

func finishProfile(prof *profile.Profiler, cfg *config.Config) {
	if cfg.ProfileCSVPath == "" {
		return
	}
	if err := prof.WriteCSV(cfg.ProfileCSVPath); err != nil {
		fmt.Fprintf(os.Stderr, "voxdemo: writing profile csv: %v\n", err)
	}
}
