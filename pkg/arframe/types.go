// Package arframe defines the per-frame data model shared across the
// detection, tracking, and orchestration packages: ARFrame and the
// entities it carries (TrackedMarker, DetectedPlane, Keypoint,
// Descriptor, FeatureMatch, CameraIntrinsics, Pose). These are plain
// data types — see spec.md §3 for the full invariant list — with no
// GPU or camera dependency, so every other package can depend on this
// one without a cycle.
package arframe

import (
	"math"

	"github.com/arkit-go/engine/internal/spatialmath"
)

// TrackingState is the lifecycle state shared by marker and plane
// trackers (spec.md §4.6).
type TrackingState int

const (
	StateTentative TrackingState = iota
	StateTracking
	StateLost
)

func (s TrackingState) String() string {
	switch s {
	case StateTentative:
		return "tentative"
	case StateTracking:
		return "tracking"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Pose is a position plus unit-quaternion rotation, produced by a pose
// solver and smoothed by the tracking package's Kalman filter.
type Pose struct {
	Position spatialmath.Vec3
	Rotation spatialmath.Quaternion
}

// CameraIntrinsics holds the pinhole camera model used by the planar
// pose solver. Until a calibration is supplied, it is derived from the
// negotiated resolution and an assumed horizontal FOV (default 60°).
type CameraIntrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
	// DistortionNone records that this implementation does not model
	// lens distortion — see SPEC_FULL.md §3.
	DistortionNone bool
}

// IntrinsicsFromResolution derives CameraIntrinsics from a resolution
// and horizontal field of view, per spec.md §3.
func IntrinsicsFromResolution(width, height int, horizontalFOVDeg float64) CameraIntrinsics {
	if horizontalFOVDeg <= 0 {
		horizontalFOVDeg = 60
	}
	fx := float64(width) / 2 / tanHalfDeg(horizontalFOVDeg)
	// Assume square pixels absent calibration data.
	fy := fx
	return CameraIntrinsics{
		Fx: fx, Fy: fy,
		Cx: float64(width) / 2, Cy: float64(height) / 2,
		DistortionNone: true,
	}
}

// Quad is an ephemeral per-frame candidate quadrilateral produced by
// contour approximation, before homography/decode (spec.md §3).
type Quad struct {
	Corners   [4]spatialmath.Vec2 // ordered clockwise from TL
	Area      float64
	Perimeter float64
}

// TrackedMarker is a detected/tracked ArUco marker (spec.md §3).
type TrackedMarker struct {
	ID         int
	Corners    [4]spatialmath.Vec2 // TL, TR, BR, BL, clockwise
	Rotation   int                 // 0, 90, 180, or 270
	Confidence float64             // [0,1]
	Pose       *Pose               // nil until a pose solver runs
	State      TrackingState
	Stale      bool // not set by the pipeline; ARFrame.Stale reports lag per frame
}

// Keypoint is a per-frame FAST corner with orientation (spec.md §3).
type Keypoint struct {
	Point       spatialmath.Vec2
	Orientation float64 // radians
	Response    float64
	Octave      int
}

// Descriptor is a 256-bit ORB-style binary descriptor, stored as 4
// uint64 words (256 bits total).
type Descriptor [4]uint64

// HammingDistance returns the number of differing bits between two
// descriptors.
func (d Descriptor) HammingDistance(o Descriptor) int {
	total := 0
	for i := range d {
		total += popcount64(d[i] ^ o[i])
	}
	return total
}

func popcount64(x uint64) int {
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}

// FeatureMatch is a matched keypoint pair between two frames (spec.md §3).
type FeatureMatch struct {
	QueryIndex int
	TrainIndex int
	Distance   int
}

// PlaneOrientation classifies a detected plane's normal direction.
type PlaneOrientation int

const (
	OrientationHorizontal PlaneOrientation = iota
	OrientationVertical
	OrientationOther
)

func (o PlaneOrientation) String() string {
	switch o {
	case OrientationHorizontal:
		return "horizontal"
	case OrientationVertical:
		return "vertical"
	default:
		return "other"
	}
}

// ClassifyOrientation applies the y-axis angle thresholds from
// spec.md §4.5: horizontal if |n_y| > 0.9, vertical if |n_y| < 0.3,
// else other.
func ClassifyOrientation(normal spatialmath.Vec3) PlaneOrientation {
	ny := normal.Y
	if ny < 0 {
		ny = -ny
	}
	switch {
	case ny > 0.9:
		return OrientationHorizontal
	case ny < 0.3:
		return OrientationVertical
	default:
		return OrientationOther
	}
}

// DetectedPlane is a tracked planar surface (spec.md §3).
type DetectedPlane struct {
	ID           int
	Normal       spatialmath.Vec3 // unit vector
	Distance     float64          // signed distance to origin
	Centroid     spatialmath.Vec3
	InlierCount  int
	EstimatedArea float64
	Orientation  PlaneOrientation
	Confidence   float64 // [0,1]
	LastSeenUnixMicro int64
	Boundary     []spatialmath.Vec3 // 3D boundary polygon, may be nil
	State        TrackingState
}

// ARFrame is the per-frame output record (spec.md §3). References held
// in TextureHandle/GrayscaleHandle are only valid until the subscriber
// callback returns.
type ARFrame struct {
	TimestampMicro int64
	Sequence       uint64
	Width, Height  int

	ExternalTextureHandle uint64
	GrayscaleHandle       uint64

	Markers  []TrackedMarker
	Planes   []DetectedPlane
	Features []Keypoint

	// Stale is true when any plugin in this frame exported a
	// one-frame-lagged result (SPEC_FULL.md §3).
	Stale bool
}

func tanHalfDeg(deg float64) float64 {
	return math.Tan(deg / 2 * (math.Pi / 180))
}
