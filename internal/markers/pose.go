package markers

import (
	"errors"

	"github.com/arkit-go/engine/internal/spatialmath"
	"github.com/arkit-go/engine/pkg/arframe"
)

// ErrEPnPUnimplemented is returned by SolvePoseEPnP: the spec leaves
// the choice of planar-pose algorithm open (spec.md §9's Open
// Question), and SPEC_FULL.md §9 resolves it in favor of homography
// decomposition as the shipped solver, with EPnP left as a named but
// unimplemented extension point for a future non-planar target.
var ErrEPnPUnimplemented = errors.New("markers: EPnP pose solver not implemented, use SolvePoseHomography")

// EPnPConstants documents the iteration/convergence parameters a
// future EPnP implementation would need, kept here so the extension
// point is concrete rather than a bare stub.
type EPnPConstants struct {
	MaxIterations      int
	ConvergenceEpsilon float64
}

// DefaultEPnPConstants are the values OpenCV's solvePnP iterative
// refinement uses by default.
var DefaultEPnPConstants = EPnPConstants{MaxIterations: 20, ConvergenceEpsilon: 1e-6}

// SolvePoseEPnP is an unimplemented extension point; see
// ErrEPnPUnimplemented.
func SolvePoseEPnP(markerCorners [4]spatialmath.Vec2, markerSizeMeters float64, intrinsics arframe.CameraIntrinsics) (arframe.Pose, error) {
	return arframe.Pose{}, ErrEPnPUnimplemented
}

// SolvePoseHomography recovers a 6-DOF pose for a square marker of
// side markerSizeMeters from its image-space homography, following the
// standard planar decomposition: R = K^-1 H normalized so its first
// two columns are orthonormal, third column r3 = r1 x r2, t = K^-1 h3
// scaled by the same normalization factor.
func SolvePoseHomography(markerCorners [4]spatialmath.Vec2, markerSizeMeters float64, intrinsics arframe.CameraIntrinsics) (arframe.Pose, error) {
	half := markerSizeMeters / 2
	world := [4]spatialmath.Vec2{
		{X: -half, Y: -half}, {X: half, Y: -half},
		{X: half, Y: half}, {X: -half, Y: half},
	}
	h, err := spatialmath.ComputeHomography(world, markerCorners)
	if err != nil {
		return arframe.Pose{}, err
	}

	fx, fy, cx, cy := intrinsics.Fx, intrinsics.Fy, intrinsics.Cx, intrinsics.Cy
	if fx == 0 {
		fx = 1
	}
	if fy == 0 {
		fy = 1
	}

	// K^-1 H, column by column. H's columns are (h0,h3,h6),(h1,h4,h7),(h2,h5,h8).
	kInvCol := func(hx, hy, hw float64) spatialmath.Vec3 {
		return spatialmath.Vec3{
			X: (hx - cx*hw) / fx,
			Y: (hy - cy*hw) / fy,
			Z: hw,
		}
	}
	r1 := kInvCol(h[0], h[3], h[6])
	r2 := kInvCol(h[1], h[4], h[7])
	t := kInvCol(h[2], h[5], h[8])

	lambda := 1 / r1.Length()
	r1 = r1.Scale(lambda)
	r2n := r2.Scale(lambda)
	// Re-orthogonalize r2 against r1 (homography DLT solutions are
	// rarely exactly orthonormal due to pixel noise).
	r2o := r2n.Sub(r1.Scale(r1.Dot(r2n)))
	if r2o.Length() > 0 {
		r2o = r2o.Normalize()
	}
	r3 := r1.Cross(r2o)
	t = t.Scale(lambda)

	rotMatrix := [9]float64{
		r1.X, r2o.X, r3.X,
		r1.Y, r2o.Y, r3.Y,
		r1.Z, r2o.Z, r3.Z,
	}
	quat := spatialmath.FromRotationMatrix(rotMatrix)

	return arframe.Pose{Position: t, Rotation: quat}, nil
}
