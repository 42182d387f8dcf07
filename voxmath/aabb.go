// Package voxmath holds small geometric helpers shared across the
// simulation packages. Vectors, quaternions and 3x3 matrices are
// go-gl/mathgl types; this package only adds what mathgl doesn't: an AABB
// and a couple of clamp helpers.
package voxmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const maxF32 = float32(math.MaxFloat32)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// EmptyAABB returns an AABB with inverted bounds, ready for repeated Expand
// calls to grow it from nothing.
func EmptyAABB() AABB {
	return AABB{
		Min: mgl32.Vec3{maxF32, maxF32, maxF32},
		Max: mgl32.Vec3{-maxF32, -maxF32, -maxF32},
	}
}

// Valid reports whether the box has been expanded at least once.
func (b AABB) Valid() bool {
	return b.Min.X() <= b.Max.X() && b.Min.Y() <= b.Max.Y() && b.Min.Z() <= b.Max.Z()
}

// Expand grows the box to include p, returning the new box.
func (b AABB) Expand(p mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min32(b.Min.X(), p.X()), min32(b.Min.Y(), p.Y()), min32(b.Min.Z(), p.Z())},
		Max: mgl32.Vec3{max32(b.Max.X(), p.X()), max32(b.Max.Y(), p.Y()), max32(b.Max.Z(), p.Z())},
	}
}

// Union returns the smallest AABB containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return b.Expand(o.Min).Expand(o.Max)
}

// Overlaps reports whether b and o share any volume.
func (b AABB) Overlaps(o AABB) bool {
	return b.Min.X() <= o.Max.X() && b.Max.X() >= o.Min.X() &&
		b.Min.Y() <= o.Max.Y() && b.Max.Y() >= o.Min.Y() &&
		b.Min.Z() <= o.Max.Z() && b.Max.Z() >= o.Min.Z()
}

// Contains reports whether p lies within b (inclusive).
func (b AABB) Contains(p mgl32.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

// Center returns the midpoint of the box.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtents returns half the box's dimensions along each axis.
func (b AABB) HalfExtents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampVec3 clamps each component of v to [lo, hi].
func ClampVec3(v mgl32.Vec3, lo, hi float32) mgl32.Vec3 {
	return mgl32.Vec3{Clamp(v.X(), lo, hi), Clamp(v.Y(), lo, hi), Clamp(v.Z(), lo, hi)}
}
