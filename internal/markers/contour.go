// Package markers implements ArUco fiducial marker detection
// (spec.md §4.3): contour extraction from a thresholded image, quad
// approximation, homography-based rectification, bit-grid decoding
// against a dictionary, and a planar pose solve. The pipeline shape —
// find candidate regions, filter by geometric plausibility, then
// classify each survivor — mirrors the teacher's cluster-then-classify
// structure in internal/lidar/dbscan_clusterer.go and
// internal/lidar/l4perception/cluster.go, adapted from 3D point
// clusters to 2D pixel contours.
package markers

import "github.com/arkit-go/engine/internal/spatialmath"

// Point is an integer pixel coordinate.
type Point struct{ X, Y int }

// Contour is an ordered sequence of boundary pixels traced around a
// connected foreground region; an outer boundary runs clockwise in
// image coordinates (y pointing down).
type Contour struct {
	Points []Point
}

// binaryImage is the minimal view contour following needs; markers
// package callers pass a preprocess.Luminance's Pix/Width/Height
// directly rather than this package importing preprocess, keeping the
// dependency direction flowing from pipeline downward only.
type binaryImage struct {
	pix           []uint8
	width, height int
}

func (b *binaryImage) isForeground(x, y int) bool {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return false
	}
	return b.pix[y*b.width+x] != 0
}

// FindContours traces the outer boundary of every 8-connected
// foreground region in a binary (0/255) image using Moore boundary
// tracing, the image-domain analogue of the teacher's region-growing
// DBSCAN neighbor walk. Pixels bordering a hole inside a region are not
// marked by the outer trace, so each hole's boundary is also returned
// as a contour of its own.
func FindContours(pix []uint8, width, height int) []Contour {
	img := &binaryImage{pix: pix, width: width, height: height}
	visited := make([]bool, width*height)
	var contours []Contour

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if visited[idx] || !img.isForeground(x, y) {
				continue
			}
			// Only start tracing at a boundary pixel: foreground with
			// at least one background 4-neighbor (or image edge).
			if !isBoundaryPixel(img, x, y) {
				continue
			}
			contour, traced := traceBoundary(img, visited, x, y)
			if traced {
				contours = append(contours, contour)
			}
		}
	}
	return contours
}

func isBoundaryPixel(img *binaryImage, x, y int) bool {
	return !img.isForeground(x-1, y) || !img.isForeground(x+1, y) ||
		!img.isForeground(x, y-1) || !img.isForeground(x, y+1)
}

// moore8 lists the 8-connected neighbor offsets in clockwise order
// starting from due north, the standard Moore-tracing step table.
var moore8 = [8]Point{
	{0, -1}, {1, -1}, {1, 0}, {1, 1},
	{0, 1}, {-1, 1}, {-1, 0}, {-1, -1},
}

// traceBoundary walks the outer boundary of the region containing
// (startX, startY) using Moore-neighbor tracing, marking every visited
// boundary pixel in `visited` so FindContours does not retrace it. The
// walk stops the first time it steps back onto the start pixel; the
// entry direction is not compared, so a boundary that passes through
// the start pixel more than once ends at its first return.
func traceBoundary(img *binaryImage, visited []bool, startX, startY int) (Contour, bool) {
	start := Point{startX, startY}
	contour := Contour{Points: []Point{start}}
	markVisited(visited, img.width, start)

	current := start
	backtrack := 7 // direction index pointing "behind" the start pixel

	for step := 0; step < img.width*img.height*4+8; step++ {
		found := false
		var next Point
		var nextDir int
		for i := 0; i < 8; i++ {
			dir := (backtrack + 1 + i) % 8
			cand := Point{current.X + moore8[dir].X, current.Y + moore8[dir].Y}
			if img.isForeground(cand.X, cand.Y) {
				next = cand
				nextDir = dir
				found = true
				break
			}
		}
		if !found {
			// Isolated single pixel: a valid, degenerate contour.
			return contour, true
		}
		if next == start && len(contour.Points) > 1 {
			return contour, true
		}
		contour.Points = append(contour.Points, next)
		markVisited(visited, img.width, next)
		backtrack = (nextDir + 5) % 8 // direction back toward current
		current = next

		if len(contour.Points) > img.width*img.height {
			// Pathological trace (shouldn't happen on real images);
			// bail out rather than spin forever.
			return contour, false
		}
	}
	return contour, true
}

func markVisited(visited []bool, width int, p Point) {
	visited[p.Y*width+p.X] = true
}

// Perimeter returns the contour's arc length, summing Euclidean
// distances between consecutive points (closing the loop).
func (c Contour) Perimeter() float64 {
	if len(c.Points) < 2 {
		return 0
	}
	total := 0.0
	for i := range c.Points {
		a := c.Points[i]
		b := c.Points[(i+1)%len(c.Points)]
		total += spatialmath.Dist2(
			spatialmath.Vec2{X: float64(a.X), Y: float64(a.Y)},
			spatialmath.Vec2{X: float64(b.X), Y: float64(b.Y)})
	}
	return total
}

// Area returns the contour's signed area magnitude via the shoelace
// formula.
func (c Contour) Area() float64 {
	if len(c.Points) < 3 {
		return 0
	}
	sum := 0.0
	for i := range c.Points {
		a := c.Points[i]
		b := c.Points[(i+1)%len(c.Points)]
		sum += float64(a.X)*float64(b.Y) - float64(b.X)*float64(a.Y)
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// AsVec2 converts the contour's integer points to float Vec2 for
// downstream polygon approximation.
func (c Contour) AsVec2() []spatialmath.Vec2 {
	out := make([]spatialmath.Vec2, len(c.Points))
	for i, p := range c.Points {
		out[i] = spatialmath.Vec2{X: float64(p.X), Y: float64(p.Y)}
	}
	return out
}
