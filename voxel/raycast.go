package voxel

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// rayEpsilon guards near-zero ray direction components so tDelta never
// divides by zero and never produces NaN.
const rayEpsilon = 1e-7

// RaycastHit describes a successful Volume.Raycast result.
type RaycastHit struct {
	Pos      mgl32.Vec3
	Normal   mgl32.Vec3
	Material uint8
	Dist     float32
}

// Raycast marches a ray through the volume using Amanatides-Woo 3D-DDA,
// returning the first solid voxel hit within maxDist.
//
// If the ray origin starts inside a solid voxel, Raycast reports an
// immediate hit at distance 0 with Normal == {0,0,0}: a zero normal is a
// cheap, unambiguous sentinel for "started inside solid" that callers can
// special-case, rather than inventing a face the ray never crossed.
func (v *Volume) Raycast(origin, dir mgl32.Vec3, maxDist float32) (RaycastHit, bool) {
	if dir.Len() < rayEpsilon {
		return RaycastHit{}, false
	}
	dir = dir.Normalize()

	aabb := v.AABB()
	tEntry, tExit, entryAxis, hitBox := slabIntersectAxis(origin, dir, aabb.Min, aabb.Max)
	if !hitBox || tExit < 0 || tEntry > maxDist {
		return RaycastHit{}, false
	}
	t0 := float32(0)
	if tEntry > 0 {
		t0 = tEntry
	}

	startPos := origin.Add(dir.Mul(t0))
	if mat := v.GetAt(startPos); mat != 0 {
		// tEntry > 0 means the ray origin was outside the volume and this
		// hit is on the face it entered through: report that face's
		// normal. tEntry <= 0 means the (unclipped) origin was already at
		// or inside a solid voxel, which gets the documented zero-normal
		// "started inside solid" sentinel (spec.md §9 Open Question 2).
		normal := mgl32.Vec3{}
		if tEntry > 0 {
			switch entryAxis {
			case 0:
				normal = mgl32.Vec3{-sign32(dir.X()), 0, 0}
			case 1:
				normal = mgl32.Vec3{0, -sign32(dir.Y()), 0}
			case 2:
				normal = mgl32.Vec3{0, 0, -sign32(dir.Z())}
			}
		}
		return RaycastHit{Pos: startPos, Normal: normal, Material: mat, Dist: t0}, true
	}

	vs := v.VoxelSize
	rel := startPos.Sub(v.Origin)
	ix := int(math.Floor(float64(rel.X() / vs)))
	iy := int(math.Floor(float64(rel.Y() / vs)))
	iz := int(math.Floor(float64(rel.Z() / vs)))

	stepX, tDeltaX, tMaxX := ddaAxis(origin.X(), dir.X(), v.Origin.X(), ix, vs, t0)
	stepY, tDeltaY, tMaxY := ddaAxis(origin.Y(), dir.Y(), v.Origin.Y(), iy, vs, t0)
	stepZ, tDeltaZ, tMaxZ := ddaAxis(origin.Z(), dir.Z(), v.Origin.Z(), iz, vs, t0)

	t := t0
	limit := maxDist
	if tExit < limit {
		limit = tExit
	}

	const maxIterations = 1_000_000
	lastAxis := -1
	for iter := 0; iter < maxIterations && t <= limit; iter++ {
		cx := floorDivInt(ix, ChunkEdge)
		cy := floorDivInt(iy, ChunkEdge)
		cz := floorDivInt(iz, ChunkEdge)
		if cx >= 0 && cy >= 0 && cz >= 0 && cx < v.ChunksX && cy < v.ChunksY && cz < v.ChunksZ {
			cc := ChunkCoord{cx, cy, cz}
			chunk := v.chunkAt(cc)
			if chunk != nil && chunk.AnySolid() {
				lx, ly, lz := ix-cx*ChunkEdge, iy-cy*ChunkEdge, iz-cz*ChunkEdge
				if mat := chunk.Get(lx, ly, lz); mat != 0 {
					normal := mgl32.Vec3{}
					switch lastAxis {
					case 0:
						normal = mgl32.Vec3{-sign32(dir.X()), 0, 0}
					case 1:
						normal = mgl32.Vec3{0, -sign32(dir.Y()), 0}
					case 2:
						normal = mgl32.Vec3{0, 0, -sign32(dir.Z())}
					}
					return RaycastHit{
						Pos:      origin.Add(dir.Mul(t)),
						Normal:   normal,
						Material: mat,
						Dist:     t,
					}, true
				}
			} else if chunk == nil || !chunk.AnySolid() {
				// Chunk-level empty skip: advance straight to this chunk's
				// exit plane instead of stepping voxel by voxel.
				exitT := chunkExitT(cx, cy, cz, v.Origin, vs, origin, dir)
				if exitT > t {
					t = exitT + rayEpsilon
					ix = int(math.Floor(float64((origin.Add(dir.Mul(t)).Sub(v.Origin)).X() / vs)))
					iy = int(math.Floor(float64((origin.Add(dir.Mul(t)).Sub(v.Origin)).Y() / vs)))
					iz = int(math.Floor(float64((origin.Add(dir.Mul(t)).Sub(v.Origin)).Z() / vs)))
					continue
				}
			}
		}

		// Advance the axis with the smallest tMax by one voxel.
		if tMaxX < tMaxY && tMaxX < tMaxZ {
			t = tMaxX
			ix += stepX
			tMaxX += tDeltaX
			lastAxis = 0
		} else if tMaxY < tMaxZ {
			t = tMaxY
			iy += stepY
			tMaxY += tDeltaY
			lastAxis = 1
		} else {
			t = tMaxZ
			iz += stepZ
			tMaxZ += tDeltaZ
			lastAxis = 2
		}
	}
	return RaycastHit{}, false
}

func sign32(f float32) float32 {
	if f > 0 {
		return 1
	}
	if f < 0 {
		return -1
	}
	return 0
}

// ddaAxis computes the per-axis step direction, tDelta, and initial tMax
// for Amanatides-Woo stepping along one axis.
func ddaAxis(originAxis, dirAxis, volOriginAxis float32, voxelIdx int, voxelSize, t0 float32) (step int, tDelta, tMax float32) {
	if dirAxis > rayEpsilon {
		step = 1
		tDelta = voxelSize / dirAxis
		nextBoundary := volOriginAxis + float32(voxelIdx+1)*voxelSize
		tMax = (nextBoundary - originAxis) / dirAxis
	} else if dirAxis < -rayEpsilon {
		step = -1
		tDelta = voxelSize / -dirAxis
		boundary := volOriginAxis + float32(voxelIdx)*voxelSize
		tMax = (boundary - originAxis) / dirAxis
	} else {
		step = 0
		tDelta = math.MaxFloat32
		tMax = math.MaxFloat32
	}
	if tMax < t0 {
		tMax = t0
	}
	return
}

// chunkExitT estimates the t value at which the ray exits chunk (cx,cy,cz)
// by slab-testing against that chunk's AABB.
func chunkExitT(cx, cy, cz int, origin mgl32.Vec3, voxelSize float32, rayOrigin, rayDir mgl32.Vec3) float32 {
	edge := float32(ChunkEdge) * voxelSize
	lo := mgl32.Vec3{origin.X() + float32(cx)*edge, origin.Y() + float32(cy)*edge, origin.Z() + float32(cz)*edge}
	hi := lo.Add(mgl32.Vec3{edge, edge, edge})
	_, tExit, _, ok := slabIntersectAxis(rayOrigin, rayDir, lo, hi)
	if !ok {
		return -1
	}
	return tExit
}

// slabIntersectAxis slab-tests a ray against box [lo, hi], additionally
// reporting which axis produced tmin (the entry plane) — the axis whose
// crossing determines the entry-face normal when the ray enters the box
// from outside.
func slabIntersectAxis(origin, dir, lo, hi mgl32.Vec3) (tmin, tmax float32, entryAxis int, ok bool) {
	tmin = -math.MaxFloat32
	tmax = math.MaxFloat32
	for axis := 0; axis < 3; axis++ {
		o, d := component(origin, axis), component(dir, axis)
		l, h := component(lo, axis), component(hi, axis)
		if d > -rayEpsilon && d < rayEpsilon {
			if o < l || o > h {
				return 0, 0, 0, false
			}
			continue
		}
		inv := 1 / d
		t1 := (l - o) * inv
		t2 := (h - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
			entryAxis = axis
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, 0, 0, false
		}
	}
	return tmin, tmax, entryAxis, true
}

func component(v mgl32.Vec3, axis int) float32 {
	switch axis {
	case 0:
		return v.X()
	case 1:
		return v.Y()
	default:
		return v.Z()
	}
}
