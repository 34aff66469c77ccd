package features

import (
	"math"

	"github.com/arkit-go/engine/pkg/arframe"
)

// orbPatternRadius is the half-width of the intensity-centroid patch
// (31 px, the standard ORB orientation window) and of the descriptor's
// sampling pattern footprint.
const orbPatternRadius = 15

// IntensityCentroidAngle computes the orientation of a keypoint as
// atan2(m01, m10) of the intensity centroid over a 31px patch centered
// at (x, y), per spec.md §4.4.
func IntensityCentroidAngle(src grayscaleSource, x, y int) float64 {
	var m01, m10 float64
	w, h := src.Dims()
	for dy := -orbPatternRadius; dy <= orbPatternRadius; dy++ {
		py := y + dy
		if py < 0 || py >= h {
			continue
		}
		for dx := -orbPatternRadius; dx <= orbPatternRadius; dx++ {
			px := x + dx
			if px < 0 || px >= w {
				continue
			}
			if dx*dx+dy*dy > orbPatternRadius*orbPatternRadius {
				continue
			}
			intensity := float64(src.At(px, py))
			m10 += float64(dx) * intensity
			m01 += float64(dy) * intensity
		}
	}
	return math.Atan2(m01, m10)
}

// orbTestPair is one of the 256 precomputed sampling-pattern offsets
// the binary descriptor compares; values are the canonical ORB
// learned pattern footprint, regenerated here deterministically (the
// specific 256 offsets are not load-bearing for matching correctness,
// only their fixed reuse across frames is — see DESIGN.md).
type orbTestPair struct {
	P1X, P1Y, P2X, P2Y int
}

var orbPattern = generateOrbPattern()

// generateOrbPattern builds 256 test-pair offsets within a ±15px patch
// using a deterministic splitmix64 stream so every process run and
// every descriptor extraction compares the same pattern, the property
// Descriptor.HammingDistance depends on.
func generateOrbPattern() [256]orbTestPair {
	var pattern [256]orbTestPair
	seed := uint64(0xA5A5A5A5_12345678)
	next := func() int {
		seed = splitmix64(seed)
		// Map to [-15, 15].
		return int(seed%31) - 15
	}
	for i := range pattern {
		pattern[i] = orbTestPair{P1X: next(), P1Y: next(), P2X: next(), P2Y: next()}
	}
	return pattern
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Describe builds a 256-bit ORB-style descriptor for a keypoint: the
// fixed test pattern is rotated by the keypoint's orientation before
// sampling, so the descriptor is invariant to in-plane rotation
// (spec.md §4.4).
func Describe(src grayscaleSource, kp arframe.Keypoint) arframe.Descriptor {
	cosA := math.Cos(kp.Orientation)
	sinA := math.Sin(kp.Orientation)
	w, h := src.Dims()
	cx, cy := int(kp.Point.X), int(kp.Point.Y)

	sample := func(ox, oy int) uint8 {
		rx := float64(ox)*cosA - float64(oy)*sinA
		ry := float64(ox)*sinA + float64(oy)*cosA
		px := cx + int(math.Round(rx))
		py := cy + int(math.Round(ry))
		if px < 0 {
			px = 0
		}
		if py < 0 {
			py = 0
		}
		if px >= w {
			px = w - 1
		}
		if py >= h {
			py = h - 1
		}
		return src.At(px, py)
	}

	var desc arframe.Descriptor
	for i, pair := range orbPattern {
		if sample(pair.P1X, pair.P1Y) < sample(pair.P2X, pair.P2Y) {
			word := i / 64
			bit := uint(i % 64)
			desc[word] |= 1 << bit
		}
	}
	return desc
}

// DescribeAll extracts one descriptor per keypoint.
func DescribeAll(src grayscaleSource, keypoints []arframe.Keypoint) []arframe.Descriptor {
	out := make([]arframe.Descriptor, len(keypoints))
	for i, kp := range keypoints {
		out[i] = Describe(src, kp)
	}
	return out
}
