// Package features implements FAST corner detection and ORB-style
// binary descriptor extraction/matching (spec.md §4.4), the same
// detect-then-describe-then-match shape as the teacher's marker
// association pipeline (internal/lidar/hungarian.go matches tracks by
// cost; this package matches keypoints by Hamming distance) but
// operating on 2D image patches instead of 3D point tracks.
package features

import (
	"sort"

	"github.com/arkit-go/engine/internal/spatialmath"
	"github.com/arkit-go/engine/pkg/arframe"
)

// fastRing lists the 16 Bresenham-circle offsets around a candidate
// pixel at radius 3, in angular order, the standard FAST-9/FAST-12
// test circle.
var fastRing = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// grayscaleSource is satisfied by preprocess.Luminance-shaped values.
type grayscaleSource interface {
	At(x, y int) uint8
	Dims() (int, int)
}

// Response computes the FAST corner score at (x, y): the candidate is
// a corner if at least 12 contiguous ring pixels are all brighter than
// center+threshold or all darker than center-threshold (spec.md §4.4's
// 12-of-16 contiguous test). The returned score is the sum of absolute
// differences between the center and all 16 ring pixels, 0 if not a
// corner.
func Response(src grayscaleSource, x, y, threshold int) float64 {
	w, h := src.Dims()
	if x < 3 || y < 3 || x >= w-3 || y >= h-3 {
		return 0
	}
	center := int(src.At(x, y))

	var brighter, darker [16]bool
	for i, off := range fastRing {
		v := int(src.At(x+off[0], y+off[1]))
		brighter[i] = v > center+threshold
		darker[i] = v < center-threshold
	}

	if arcOf12(brighter) {
		return sumAbsDiff(src, x, y, center)
	}
	if arcOf12(darker) {
		return sumAbsDiff(src, x, y, center)
	}
	return 0
}

func arcOf12(flags [16]bool) bool {
	// Check every rotation of the 16-ring for 12 contiguous true values.
	doubled := append(flags[:], flags[:]...)
	run := 0
	for _, f := range doubled {
		if f {
			run++
			if run >= 12 {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func sumAbsDiff(src grayscaleSource, x, y, center int) float64 {
	sum := 0
	for _, off := range fastRing {
		v := int(src.At(x+off[0], y+off[1]))
		d := v - center
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return float64(sum)
}

// DetectKeypoints scans the image for FAST corners, applies 3x3
// non-maximum suppression on the response map, then keeps the
// maxKeypoints strongest survivors (spec.md §4.4).
func DetectKeypoints(src grayscaleSource, threshold, maxKeypoints int) []arframe.Keypoint {
	w, h := src.Dims()
	responses := make([]float64, w*h)
	for y := 3; y < h-3; y++ {
		for x := 3; x < w-3; x++ {
			responses[y*w+x] = Response(src, x, y, threshold)
		}
	}
	return DetectKeypointsFromResponses(src, responses, maxKeypoints)
}

// DetectKeypointsFromResponses runs the non-max-suppression and top-K
// selection half of FAST detection over a precomputed per-pixel
// response map — the part of spec.md §4.4 that stays on the CPU even
// when the response map itself came from a GPUResponseStage dispatch,
// since picking local maxima and sorting is a serial reduction rather
// than an independent per-pixel computation.
func DetectKeypointsFromResponses(src grayscaleSource, responses []float64, maxKeypoints int) []arframe.Keypoint {
	w, h := src.Dims()
	var candidates []arframe.Keypoint
	for y := 3; y < h-3; y++ {
		for x := 3; x < w-3; x++ {
			r := responses[y*w+x]
			if r == 0 || !isLocalMax3x3(responses, w, h, x, y) {
				continue
			}
			candidates = append(candidates, arframe.Keypoint{
				Point:       spatialmath.Vec2{X: float64(x), Y: float64(y)},
				Response:    r,
				Orientation: IntensityCentroidAngle(src, x, y),
			})
		}
	}

	sortByResponseDesc(candidates)
	if maxKeypoints > 0 && len(candidates) > maxKeypoints {
		candidates = candidates[:maxKeypoints]
	}
	return candidates
}

func isLocalMax3x3(responses []float64, w, h, x, y int) bool {
	v := responses[y*w+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= w || ny >= h {
				continue
			}
			if responses[ny*w+nx] > v {
				return false
			}
		}
	}
	return true
}

func sortByResponseDesc(kps []arframe.Keypoint) {
	sort.Slice(kps, func(i, j int) bool { return kps[i].Response > kps[j].Response })
}
