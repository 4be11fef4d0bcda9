package omath

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
)

// Float32ApproxEq determines whether two floating point numbers are close enough to each other
// by a threshold of 1e-5.
func Float32ApproxEq(a, b float32) bool {
	return math32.Abs(a-b) <= 1e-5
}

// IsFiniteVec32 returns false if any component of the vector is NaN or infinite.
func IsFiniteVec32(vec mgl32.Vec3) bool {
	for _, f := range vec {
		if math32.IsNaN(f) || math32.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Axis returns the unit vector along the axis passed (0 = X, 1 = Y, 2 = Z), scaled by sign.
func Axis(axis int, sign float32) mgl32.Vec3 {
	var v mgl32.Vec3
	v[axis] = sign
	return v
}

// BoxAround returns the bounding box with the given center and half extents.
func BoxAround(center, halfExtents mgl32.Vec3) cube.BBox {
	return cube.Box(
		center.X()-halfExtents.X(), center.Y()-halfExtents.Y(), center.Z()-halfExtents.Z(),
		center.X()+halfExtents.X(), center.Y()+halfExtents.Y(), center.Z()+halfExtents.Z(),
	)
}

// BoxCenter returns the center of a bounding box.
func BoxCenter(bb cube.BBox) mgl32.Vec3 {
	return bb.Min().Add(bb.Max()).Mul(0.5)
}

// AxisOverlaps returns the signed overlap of two boxes on each axis. A negative value is the gap
// separating the boxes on that axis.
func AxisOverlaps(a, b cube.BBox) mgl32.Vec3 {
	var overlap mgl32.Vec3
	for i := range 3 {
		overlap[i] = math32.Min(a.Max()[i], b.Max()[i]) - math32.Max(a.Min()[i], b.Min()[i])
	}
	return overlap
}

// FormatVec32 formats a vector as an <x, y, z> triple.
func FormatVec32(v mgl32.Vec3) string {
	return fmt.Sprintf("<%f, %f, %f>", v.X(), v.Y(), v.Z())
}
