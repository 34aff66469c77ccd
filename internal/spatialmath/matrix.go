package spatialmath

import "math"

// Mat4 is a row-major 4x4 homogeneous transform, the same layout the
// teacher's ApplyPose(x, y, z, T [16]float64) uses.
type Mat4 [16]float64

// Identity4 returns the identity transform.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// ApplyPose applies the homogeneous transform to a point, following the
// teacher's internal/lidar/transform.go row-major convention exactly.
func ApplyPose(x, y, z float64, t Mat4) (wx, wy, wz float64) {
	wx = t[0]*x + t[1]*y + t[2]*z + t[3]
	wy = t[4]*x + t[5]*y + t[6]*z + t[7]
	wz = t[8]*x + t[9]*y + t[10]*z + t[11]
	return
}

// TransformVec3 is the Vec3 convenience wrapper over ApplyPose.
func TransformVec3(v Vec3, t Mat4) Vec3 {
	wx, wy, wz := ApplyPose(v.X, v.Y, v.Z, t)
	return Vec3{wx, wy, wz}
}

// RotationFromQuaternion builds the 3x3 rotation matrix (row-major, 9
// entries) for a unit quaternion.
func RotationFromQuaternion(q Quaternion) [9]float64 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}
}

// Mat3MulVec3 multiplies a row-major 3x3 matrix by a vector.
func Mat3MulVec3(m [9]float64, v Vec3) Vec3 {
	return Vec3{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

// Mat3Invert inverts a 3x3 matrix via the cofactor/adjugate method,
// returning ok=false when the determinant is too small to trust (mirrors
// the teacher's obbCovarianceEpsilon guard in internal/lidar/obb.go).
func Mat3Invert(m [9]float64) (inv [9]float64, ok bool) {
	a, b, c := m[0], m[1], m[2]
	d, e, f := m[3], m[4], m[5]
	g, h, i := m[6], m[7], m[8]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if math.Abs(det) < 1e-12 {
		return inv, false
	}
	invDet := 1 / det

	inv[0] = (e*i - f*h) * invDet
	inv[1] = (c*h - b*i) * invDet
	inv[2] = (b*f - c*e) * invDet
	inv[3] = (f*g - d*i) * invDet
	inv[4] = (a*i - c*g) * invDet
	inv[5] = (c*d - a*f) * invDet
	inv[6] = (d*h - e*g) * invDet
	inv[7] = (b*g - a*h) * invDet
	inv[8] = (a*e - b*d) * invDet
	return inv, true
}
