// Package spatialmath provides the small dense-linear-algebra building
// blocks shared by the detection and tracking packages: vectors,
// quaternions, 4x4 matrices, homography solve/invert/apply, the
// Gauss-Jordan solver used by the marker homography pipeline, and the
// Kalman filter (which uses gonum's mat package, not the Gauss-Jordan
// solver). Numerics follow the same plain, allocation-light
// style as the teacher's internal/lidar/transform.go and obb.go.
package spatialmath

import "math"

// Vec2 is a 2D point, used for image-space coordinates (corners,
// keypoints, polygon vertices).
type Vec2 struct {
	X, Y float64
}

// Vec3 is a 3D point or direction in world/camera space.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a.X + b.X, a.Y + b.Y} }
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a.X - b.X, a.Y - b.Y} }
func (a Vec2) Scale(s float64) Vec2 { return Vec2{a.X * s, a.Y * s} }

// Cross2 returns the z-component of the 2D cross product, used for
// convexity and winding-order tests in contour/hull processing.
func Cross2(o, a, b Vec2) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// Dist2 returns the Euclidean distance between two 2D points.
func Dist2(a, b Vec2) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func (a Vec3) Length() float64 { return math.Sqrt(a.Dot(a)) }

// Normalize returns the unit vector in the direction of a. The zero
// vector normalizes to itself rather than producing NaNs — callers that
// need ‖n‖=1 (plane normals, quaternions) must check Length() > 0 first
// when a degenerate input is possible.
func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l == 0 {
		return a
	}
	return a.Scale(1 / l)
}
