package planes

import "github.com/arkit-go/engine/internal/spatialmath"

// Unproject inverts the pinhole projection: given a pixel (x, y) and a
// depth value (meters along the camera's optical axis), it returns the
// corresponding camera-space 3D point, per spec.md §8's unproject/
// project round-trip law.
func Unproject(x, y, depth float64, intrinsics CameraIntrinsics) spatialmath.Vec3 {
	return spatialmath.Vec3{
		X: (x - intrinsics.Cx) * depth / intrinsics.Fx,
		Y: (y - intrinsics.Cy) * depth / intrinsics.Fy,
		Z: depth,
	}
}

// Project maps a camera-space 3D point back to (x, y, depth) pixel
// coordinates, the inverse of Unproject.
func Project(p spatialmath.Vec3, intrinsics CameraIntrinsics) (x, y, depth float64) {
	depth = p.Z
	if depth == 0 {
		return intrinsics.Cx, intrinsics.Cy, 0
	}
	x = p.X*intrinsics.Fx/depth + intrinsics.Cx
	y = p.Y*intrinsics.Fy/depth + intrinsics.Cy
	return x, y, depth
}

// CameraIntrinsics mirrors arframe.CameraIntrinsics's pinhole fields.
// Declared locally (rather than imported) so this low-level package has
// no upward dependency on the shared frame-model package; the two
// structs are field-for-field convertible.
type CameraIntrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
}

// DepthMap is a dense per-pixel depth image (meters), row-major, the
// shape a depth-capable camera or a LiDAR-fused backend supplies.
type DepthMap struct {
	Values        []float64
	Width, Height int
}

// CloudFromDepthMap unprojects every strictly-positive-depth pixel in
// a DepthMap into a Cloud, subsampling by stride to bound point count
// (spec.md §4.5's RANSAC operates on clouds in the low thousands, not
// one point per pixel of a megapixel frame).
func CloudFromDepthMap(dm DepthMap, intrinsics CameraIntrinsics, stride int) Cloud {
	if stride < 1 {
		stride = 1
	}
	var cloud Cloud
	for y := 0; y < dm.Height; y += stride {
		for x := 0; x < dm.Width; x += stride {
			d := dm.Values[y*dm.Width+x]
			if d <= 0 {
				continue
			}
			cloud = append(cloud, Point{Position: Unproject(float64(x), float64(y), d, intrinsics)})
		}
	}
	return cloud
}
