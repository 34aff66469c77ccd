package markers

import (
	"math"
	"testing"

	"github.com/arkit-go/engine/internal/spatialmath"
)

func TestRotateCornersShiftsIndicesCyclically(t *testing.T) {
	corners := [4]spatialmath.Vec2{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	}
	got := rotateCorners(corners, 1)
	want := [4]spatialmath.Vec2{
		{X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0},
	}
	if got != want {
		t.Errorf("rotateCorners(_, 1) = %v, want %v", got, want)
	}

	if got := rotateCorners(corners, 0); got != corners {
		t.Errorf("rotateCorners(_, 0) = %v, want the input unchanged", got)
	}
	if got := rotateCorners(corners, 4); got != corners {
		t.Errorf("rotateCorners(_, 4) = %v, want a full cycle back to the input", got)
	}
	if got := rotateCorners(corners, -1); got != rotateCorners(corners, 3) {
		t.Errorf("rotateCorners(_, -1) should normalize to the same result as rotateCorners(_, 3)")
	}
}

// renderSquareMarkerFrame draws an axis-aligned square marker (solid
// dark border ring plus a gridSize x gridSize interior bit pattern)
// into a frameSize x frameSize buffer, mirroring WarpPatch/
// SampleBitGrid's canonical-patch cell layout in reverse so
// DetectFromThreshold's full contour -> polygon -> warp -> decode
// chain can be exercised against a known code.
func renderSquareMarkerFrame(frameSize, x0, y0, squareSize, gridSize int, code uint64) (binaryPix, grayPix []uint8) {
	binaryPix = make([]uint8, frameSize*frameSize)
	grayPix = make([]uint8, frameSize*frameSize)
	cellSize := CanonicalPatchSize / (gridSize + 2)
	offset := cellSize

	for y := 0; y < frameSize; y++ {
		for x := 0; x < frameSize; x++ {
			idx := y*frameSize + x
			if x < x0 || x >= x0+squareSize || y < y0 || y >= y0+squareSize {
				grayPix[idx] = 255
				continue
			}
			u := float64(x-x0) / float64(squareSize)
			v := float64(y-y0) / float64(squareSize)
			px := int(u * CanonicalPatchSize)
			py := int(v * CanonicalPatchSize)
			if px >= CanonicalPatchSize {
				px = CanonicalPatchSize - 1
			}
			if py >= CanonicalPatchSize {
				py = CanonicalPatchSize - 1
			}

			dark := px < offset || px >= offset+gridSize*cellSize || py < offset || py >= offset+gridSize*cellSize
			if !dark {
				col := (px - offset) / cellSize
				row := (py - offset) / cellSize
				dark = bitAt(code, row*gridSize+col) == 0
			}
			if dark {
				grayPix[idx] = 0
				binaryPix[idx] = 255
			} else {
				grayPix[idx] = 255
			}
		}
	}
	return binaryPix, grayPix
}

func testDetectorConfig() DetectorConfig {
	return DetectorConfig{
		DictionaryGridSize: Dict4x4Size,
		MinPerimeter:       100,
		MaxPerimeter:       5000,
		MaxBatchSize:       10,
	}
}

// TestDetectFromThresholdSingleMarker covers spec.md §8's end-to-end
// single-marker scenario: a single well-formed marker in the frame
// decodes to its dictionary ID with zero rotation.
func TestDetectFromThresholdSingleMarker(t *testing.T) {
	d := NewDetector(testDetectorConfig())
	code := d.dict.codes[0][0]
	binaryPix, grayPix := renderSquareMarkerFrame(220, 30, 30, 160, Dict4x4Size, code)
	gray := LuminanceSource{Pix: grayPix, Width: 220, Height: 220}

	detections := d.DetectFromThreshold(binaryPix, gray, 220, 220)
	if len(detections) != 1 {
		t.Fatalf("DetectFromThreshold found %d markers, want 1", len(detections))
	}
	det := detections[0]
	if det.ID != 0 {
		t.Errorf("ID = %d, want 0", det.ID)
	}
	if det.Rotation != 0 {
		t.Errorf("Rotation = %d, want 0", det.Rotation)
	}
	if det.Confidence < 0.9 {
		t.Errorf("Confidence = %v, want a high-confidence exact decode", det.Confidence)
	}
}

// TestDetectFromThresholdRotatedMarkerRotatesCorners covers spec.md
// §8's rotated-marker scenario and review comment #3: when the
// sampled bit grid matches a 90-degree dictionary rotation, Rotation
// reports 90 and Corners is cyclically shifted to agree with it —
// verified by checking the rotated detection's corners against the
// unrotated detection's corners from the same underlying quad
// geometry.
func TestDetectFromThresholdRotatedMarkerRotatesCorners(t *testing.T) {
	d := NewDetector(testDetectorConfig())
	code := d.dict.codes[0][0]
	rotatedCode := rotate90(code, Dict4x4Size)

	baseBinary, baseGray := renderSquareMarkerFrame(220, 30, 30, 160, Dict4x4Size, code)
	rotBinary, rotGray := renderSquareMarkerFrame(220, 30, 30, 160, Dict4x4Size, rotatedCode)

	baseDetections := d.DetectFromThreshold(baseBinary, LuminanceSource{Pix: baseGray, Width: 220, Height: 220}, 220, 220)
	rotDetections := d.DetectFromThreshold(rotBinary, LuminanceSource{Pix: rotGray, Width: 220, Height: 220}, 220, 220)

	if len(baseDetections) != 1 || len(rotDetections) != 1 {
		t.Fatalf("expected exactly 1 detection per frame, got %d and %d", len(baseDetections), len(rotDetections))
	}
	base, rot := baseDetections[0], rotDetections[0]
	if rot.ID != base.ID {
		t.Errorf("rotated frame decoded ID %d, want %d (same marker, same dictionary code)", rot.ID, base.ID)
	}
	if rot.Rotation != 90 {
		t.Errorf("Rotation = %d, want 90", rot.Rotation)
	}
	// Same square geometry in both frames, so the underlying quad's
	// corners are identical; rotateCorners(_, 1) must have shifted the
	// rotated detection's corners by exactly one position relative to
	// the unrotated detection's.
	for i := 0; i < 4; i++ {
		want := base.Corners[(i+1)%4]
		got := rot.Corners[i]
		if math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-6 {
			t.Errorf("rotated Corners[%d] = %v, want %v (base Corners[%d])", i, got, want, (i+1)%4)
		}
	}
}
