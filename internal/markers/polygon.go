package markers

import (
	"math"
	"sort"

	"github.com/arkit-go/engine/internal/spatialmath"
)

// ApproxPolyDP simplifies a closed point sequence with the
// Douglas-Peucker algorithm, epsilon given as an absolute distance
// (spec.md §4.3 uses epsilon = 0.02 * perimeter).
func ApproxPolyDP(points []spatialmath.Vec2, epsilon float64) []spatialmath.Vec2 {
	if len(points) < 3 {
		return points
	}
	// Split the closed loop at its two most distant points so the
	// open-curve DP recursion below can be applied to a closed contour,
	// the standard technique for simplifying loops with this algorithm.
	i0, i1 := mostDistantPair(points)
	if i0 > i1 {
		i0, i1 = i1, i0
	}

	arc1 := append([]spatialmath.Vec2{}, points[i0:i1+1]...)
	arc2 := append(append([]spatialmath.Vec2{}, points[i1:]...), points[:i0+1]...)

	simp1 := douglasPeucker(arc1, epsilon)
	simp2 := douglasPeucker(arc2, epsilon)

	// simp2 ends at points[i0], which is already simp1[0].
	out := append(simp1[:len(simp1)-1], simp2[:len(simp2)-1]...)
	return out
}

func mostDistantPair(points []spatialmath.Vec2) (int, int) {
	maxDist := -1.0
	bi, bj := 0, len(points)/2
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			d := spatialmath.Dist2(points[i], points[j])
			if d > maxDist {
				maxDist = d
				bi, bj = i, j
			}
		}
	}
	return bi, bj
}

func douglasPeucker(points []spatialmath.Vec2, epsilon float64) []spatialmath.Vec2 {
	if len(points) < 3 {
		return points
	}
	start, end := points[0], points[len(points)-1]
	maxDist := -1.0
	maxIdx := -1
	for i := 1; i < len(points)-1; i++ {
		d := perpendicularDistance(points[i], start, end)
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist <= epsilon {
		return []spatialmath.Vec2{start, end}
	}
	left := douglasPeucker(points[:maxIdx+1], epsilon)
	right := douglasPeucker(points[maxIdx:], epsilon)
	return append(left[:len(left)-1], right...)
}

func perpendicularDistance(p, a, b spatialmath.Vec2) float64 {
	if a == b {
		return spatialmath.Dist2(p, a)
	}
	num := math.Abs((b.Y-a.Y)*p.X - (b.X-a.X)*p.Y + b.X*a.Y - b.Y*a.X)
	den := spatialmath.Dist2(a, b)
	return num / den
}

// IsConvex reports whether a polygon's vertices all turn the same
// rotational direction.
func IsConvex(poly []spatialmath.Vec2) bool {
	if len(poly) < 4 {
		return false
	}
	n := len(poly)
	sign := 0
	for i := 0; i < n; i++ {
		cross := spatialmath.Cross2(poly[i], poly[(i+1)%n], poly[(i+2)%n])
		if cross == 0 {
			continue
		}
		s := 1
		if cross < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if sign != s {
			return false
		}
	}
	return sign != 0
}

// minEdgeLength returns the shortest edge of a (presumed 4-vertex)
// polygon.
func minEdgeLength(poly []spatialmath.Vec2) float64 {
	min := math.MaxFloat64
	n := len(poly)
	for i := 0; i < n; i++ {
		d := spatialmath.Dist2(poly[i], poly[(i+1)%n])
		if d < min {
			min = d
		}
	}
	return min
}

// OrderCorners sorts 4 quad corners into TL, TR, BR, BL order by
// centroid-relative polar angle, matching spec.md §4.3's canonical
// corner ordering.
func OrderCorners(poly []spatialmath.Vec2) [4]spatialmath.Vec2 {
	var centroid spatialmath.Vec2
	for _, p := range poly {
		centroid = centroid.Add(p)
	}
	centroid = centroid.Scale(1.0 / float64(len(poly)))

	sorted := append([]spatialmath.Vec2{}, poly...)
	sort.Slice(sorted, func(i, j int) bool {
		ai := math.Atan2(sorted[i].Y-centroid.Y, sorted[i].X-centroid.X)
		aj := math.Atan2(sorted[j].Y-centroid.Y, sorted[j].X-centroid.X)
		return ai < aj
	})

	// sorted is now in angular order starting from whichever point has
	// the smallest atan2 angle; rotate so index 0 is top-left (the
	// point with the smallest x+y sum).
	startIdx := 0
	best := math.MaxFloat64
	for i, p := range sorted {
		score := p.X + p.Y
		if score < best {
			best = score
			startIdx = i
		}
	}
	var out [4]spatialmath.Vec2
	for i := 0; i < 4; i++ {
		out[i] = sorted[(startIdx+i)%4]
	}
	return out
}

// QuadCandidate is a validated 4-corner polygon ready for homography.
type QuadCandidate struct {
	Corners   [4]spatialmath.Vec2
	Perimeter float64
	Area      float64
}

// DefaultMinEdgeLengthPixels is the fixed-pixel minimum average edge
// length spec.md §4.3 requires (20px), used when a DetectorConfig
// leaves MinEdgeLengthPixels unset.
const DefaultMinEdgeLengthPixels = 20.0

// ValidateQuad applies spec.md §4.3's candidate filters: exactly 4
// vertices after simplification, convex, perimeter within
// [minPerimeter, maxPerimeter], an average edge length of at least
// minEdgeLenPixels (a fixed pixel floor, not perimeter-relative), and
// an aspect ratio of at most 2.
func ValidateQuad(simplified []spatialmath.Vec2, perimeter, minPerimeter, maxPerimeter, minEdgeLenPixels float64) (QuadCandidate, bool) {
	if len(simplified) != 4 {
		return QuadCandidate{}, false
	}
	if perimeter < minPerimeter || perimeter > maxPerimeter {
		return QuadCandidate{}, false
	}
	if !IsConvex(simplified) {
		return QuadCandidate{}, false
	}
	edgeSum := 0.0
	for i := range simplified {
		edgeSum += spatialmath.Dist2(simplified[i], simplified[(i+1)%4])
	}
	if edgeSum/4 < minEdgeLenPixels {
		return QuadCandidate{}, false
	}
	ordered := OrderCorners(simplified)
	if !aspectRatioOK(ordered[:], 2.0) {
		return QuadCandidate{}, false
	}
	area := shoelaceArea(ordered[:])
	return QuadCandidate{Corners: ordered, Perimeter: perimeter, Area: area}, true
}

// aspectRatioOK rejects quads whose long-side-to-short-side ratio
// exceeds maxRatio, per spec.md §3's Quad invariant (aspect ratio < 2.0).
func aspectRatioOK(ordered []spatialmath.Vec2, maxRatio float64) bool {
	top := spatialmath.Dist2(ordered[0], ordered[1])
	bottom := spatialmath.Dist2(ordered[3], ordered[2])
	left := spatialmath.Dist2(ordered[0], ordered[3])
	right := spatialmath.Dist2(ordered[1], ordered[2])

	horiz := (top + bottom) / 2
	vert := (left + right) / 2
	if horiz <= 0 || vert <= 0 {
		return false
	}
	ratio := horiz / vert
	if ratio < 1 {
		ratio = 1 / ratio
	}
	return ratio <= maxRatio
}

func shoelaceArea(poly []spatialmath.Vec2) float64 {
	sum := 0.0
	n := len(poly)
	for i := 0; i < n; i++ {
		a, b := poly[i], poly[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}
