package markers

import (
	"github.com/arkit-go/engine/internal/spatialmath"
	"github.com/arkit-go/engine/pkg/arframe"
)

// DetectorConfig mirrors the marker_* tuning fields from spec.md §6.1.
type DetectorConfig struct {
	DictionaryGridSize int
	MinPerimeter       float64
	MaxPerimeter       float64
	MaxBatchSize       int
	MarkerSizeMeters   float64
	// MinEdgeLengthPixels is the fixed-pixel floor ValidateQuad rejects
	// candidate quads below (spec.md §4.3); defaults to
	// DefaultMinEdgeLengthPixels (20px) when zero.
	MinEdgeLengthPixels float64
}

// Detector runs the full ArUco pipeline over a preprocessed frame:
// contour extraction, polygon approximation, quad validation,
// homography warp, border verification, and dictionary decode.
type Detector struct {
	cfg  DetectorConfig
	dict *Dictionary
}

// NewDetector builds a Detector with a dictionary sized for
// cfg.DictionaryGridSize (4, 5, or 6), defaulting to 4x4/50 like
// OpenCV's default ArUco dictionary.
func NewDetector(cfg DetectorConfig) *Detector {
	var dict *Dictionary
	switch cfg.DictionaryGridSize {
	case Dict5x5Size:
		dict = Dict5x5100()
	case Dict6x6Size:
		dict = Dict6x6250()
	default:
		dict = Dict4x450()
	}
	if cfg.MinEdgeLengthPixels <= 0 {
		cfg.MinEdgeLengthPixels = DefaultMinEdgeLengthPixels
	}
	return &Detector{cfg: cfg, dict: dict}
}

// Detection is one decoded marker before tracking state is applied.
type Detection struct {
	ID         int
	Corners    [4]float64XY
	Rotation   int
	Confidence float64
}

// float64XY avoids importing spatialmath into this file's exported
// surface just for a coordinate pair; ToTrackedMarker below converts
// to the real Vec2 type for callers that need it.
type float64XY struct{ X, Y float64 }

// DetectFromThreshold runs contour-following plus the full
// quad/homography/decode chain over an already-thresholded binary
// image, returning one Detection per matched marker. gray is the
// (unthresholded) grayscale frame the warp samples from, since the
// bit grid is read from graylevel intensity, not the binary mask.
func (d *Detector) DetectFromThreshold(binaryPix []uint8, gray LuminanceSource, width, height int) []Detection {
	contours := FindContours(binaryPix, width, height)

	var detections []Detection
	for _, contour := range contours {
		perimeter := contour.Perimeter()
		if perimeter < d.cfg.MinPerimeter || perimeter > d.cfg.MaxPerimeter {
			continue
		}
		approx := ApproxPolyDP(contour.AsVec2(), perimeter*0.02)
		quad, ok := ValidateQuad(approx, perimeter, d.cfg.MinPerimeter, d.cfg.MaxPerimeter, d.cfg.MinEdgeLengthPixels)
		if !ok {
			continue
		}

		patch, err := WarpPatch(gray, quad.Corners)
		if err != nil {
			continue
		}
		if !VerifyBorder(patch) {
			continue
		}

		code := SampleBitGrid(patch, d.cfg.DictionaryGridSize)
		id, rotation, hamming, matched := d.dict.Match(code)
		if !matched {
			continue
		}

		rotated := rotateCorners(quad.Corners, rotation/90)
		var corners [4]float64XY
		for i, c := range rotated {
			corners[i] = float64XY{c.X, c.Y}
		}
		cellCount := d.cfg.DictionaryGridSize * d.cfg.DictionaryGridSize
		confidence := 1 - float64(hamming)/float64(cellCount)
		if confidence < 0 {
			confidence = 0
		}
		detections = append(detections, Detection{ID: id, Corners: corners, Rotation: rotation, Confidence: confidence})

		if d.cfg.MaxBatchSize > 0 && len(detections) >= d.cfg.MaxBatchSize {
			break
		}
	}
	return detections
}

// rotateCorners cyclically shifts a quad's TL/TR/BR/BL corners by
// steps positions. Dictionary.Match reports, in degrees, the clockwise
// rotation of the canonical code that best matched the sampled bit
// grid, which is read starting at quad.Corners[0]; steps is that value
// divided by 90. When the match required steps rotations, the marker's
// true top-left is the corner steps positions clockwise from
// quad.Corners[0], so out[0] = corners[steps] realigns index 0 with it.
func rotateCorners(corners [4]spatialmath.Vec2, steps int) [4]spatialmath.Vec2 {
	steps = ((steps % 4) + 4) % 4
	var out [4]spatialmath.Vec2
	for i := 0; i < 4; i++ {
		out[i] = corners[(i+steps)%4]
	}
	return out
}

// ToTrackedMarker converts a raw Detection into the package-neutral
// arframe.TrackedMarker shape the tracking package consumes,
// optionally solving for pose when intrinsics and a physical marker
// size are known.
func (d *Detection) ToTrackedMarker(intrinsics *arframe.CameraIntrinsics, markerSizeMeters float64) arframe.TrackedMarker {
	m := arframe.TrackedMarker{
		ID:         d.ID,
		Rotation:   d.Rotation,
		Confidence: d.Confidence,
		State:      arframe.StateTentative,
	}
	for i, c := range d.Corners {
		m.Corners[i] = spatialmath.Vec2{X: c.X, Y: c.Y}
	}
	if intrinsics != nil && markerSizeMeters > 0 {
		pose, err := SolvePoseHomography(m.Corners, markerSizeMeters, *intrinsics)
		if err == nil {
			m.Pose = &pose
		}
	}
	return m
}
