package planes

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/arkit-go/engine/internal/spatialmath"
)

// Basis2D is an orthonormal (u, v) pair spanning the plane with the
// given normal, chosen deterministically so repeated calls for the
// same normal produce the same basis (needed for the boundary cache
// to be stable frame to frame).
type Basis2D struct {
	U, V spatialmath.Vec3
}

// ComputeBasis picks u ⊥ n deterministically: project world-X onto
// the plane unless n is nearly parallel to X, in which case project
// world-Z instead, then v = n × u.
func ComputeBasis(n spatialmath.Vec3) Basis2D {
	ref := spatialmath.Vec3{X: 1}
	if math.Abs(n.Dot(ref)) > 0.9 {
		ref = spatialmath.Vec3{Z: 1}
	}
	u := ref.Sub(n.Scale(n.Dot(ref))).Normalize()
	v := n.Cross(u)
	return Basis2D{U: u, V: v}
}

// Project2D maps a 3D point onto the plane's 2D basis, relative to
// centroid.
func Project2D(p, centroid spatialmath.Vec3, basis Basis2D) spatialmath.Vec2 {
	d := p.Sub(centroid)
	return spatialmath.Vec2{X: d.Dot(basis.U), Y: d.Dot(basis.V)}
}

// Unproject2D maps a 2D basis-space point back to 3D.
func Unproject2D(p spatialmath.Vec2, centroid spatialmath.Vec3, basis Basis2D) spatialmath.Vec3 {
	return centroid.Add(basis.U.Scale(p.X)).Add(basis.V.Scale(p.Y))
}

// ConvexHull2D computes the convex hull of a 2D point set using the
// Graham-scan/Andrew-monotone-chain algorithm, returned in
// counter-clockwise order.
func ConvexHull2D(points []spatialmath.Vec2) []spatialmath.Vec2 {
	pts := append([]spatialmath.Vec2{}, points...)
	if len(pts) < 3 {
		return pts
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	build := func(seq []spatialmath.Vec2) []spatialmath.Vec2 {
		var hull []spatialmath.Vec2
		for _, p := range seq {
			for len(hull) >= 2 && spatialmath.Cross2(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
				hull = hull[:len(hull)-1]
			}
			hull = append(hull, p)
		}
		return hull
	}

	lower := build(pts)
	upperSeq := make([]spatialmath.Vec2, len(pts))
	for i := range pts {
		upperSeq[i] = pts[len(pts)-1-i]
	}
	upper := build(upperSeq)

	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// SimplifyHull reduces a convex hull's vertex count with a
// Douglas-Peucker-style pass over the closed loop at the given
// tolerance (spec.md §4.5 default 10cm), the same simplification
// shape as markers.ApproxPolyDP applied to a 3D-plane boundary
// instead of an image contour.
func SimplifyHull(hull []spatialmath.Vec2, tolerance float64) []spatialmath.Vec2 {
	if len(hull) < 4 {
		return hull
	}
	keep := make([]bool, len(hull))
	keep[0] = true
	simplifyRange(hull, 0, len(hull)-1, tolerance, keep)
	keep[len(hull)-1] = true

	var out []spatialmath.Vec2
	for i, k := range keep {
		if k {
			out = append(out, hull[i])
		}
	}
	return out
}

func simplifyRange(pts []spatialmath.Vec2, start, end int, tolerance float64, keep []bool) {
	if end <= start+1 {
		return
	}
	maxDist := -1.0
	maxIdx := -1
	a, b := pts[start], pts[end]
	for i := start + 1; i < end; i++ {
		d := perpDist(pts[i], a, b)
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist <= tolerance {
		return
	}
	keep[maxIdx] = true
	simplifyRange(pts, start, maxIdx, tolerance, keep)
	simplifyRange(pts, maxIdx, end, tolerance, keep)
}

func perpDist(p, a, b spatialmath.Vec2) float64 {
	if a == b {
		return spatialmath.Dist2(p, a)
	}
	num := math.Abs((b.Y-a.Y)*p.X - (b.X-a.X)*p.Y + b.X*a.Y - b.Y*a.X)
	den := spatialmath.Dist2(a, b)
	return num / den
}

// BuildBoundary selects a candidate's inlier points, builds a
// deterministic 2D basis, computes the convex hull, simplifies it,
// and unprojects back to 3D, per spec.md §4.5.
func BuildBoundary(cloud Cloud, cand Candidate, centroid spatialmath.Vec3, tolerance float64) []spatialmath.Vec3 {
	basis := ComputeBasis(cand.Normal)
	pts2D := make([]spatialmath.Vec2, len(cand.InlierIdx))
	for i, idx := range cand.InlierIdx {
		pts2D[i] = Project2D(cloud[idx].Position, centroid, basis)
	}
	hull := ConvexHull2D(pts2D)
	simplified := SimplifyHull(hull, tolerance)

	out := make([]spatialmath.Vec3, len(simplified))
	for i, p := range simplified {
		out[i] = Unproject2D(p, centroid, basis)
	}
	return out
}

// boundaryCacheKey quantizes (normal, distance) to a stable string key
// so near-identical planes across consecutive frames hit the same
// cache entry (spec.md §4.5: "reuses the polygon if fresh within 1s").
func boundaryCacheKey(normal spatialmath.Vec3, distance float64) string {
	q := func(v float64) int64 { return int64(math.Round(v * 100)) }
	return fmt.Sprintf("%d_%d_%d_%d", q(normal.X), q(normal.Y), q(normal.Z), q(distance))
}

type boundaryCacheEntry struct {
	polygon  []spatialmath.Vec3
	computedAt time.Time
}

// BoundaryCache reuses a previously computed boundary polygon when the
// (normal, distance) key is unchanged and the cached entry is still
// fresh, avoiding a convex-hull recompute every frame for a
// stationary plane.
type BoundaryCache struct {
	ttl     time.Duration
	entries map[string]boundaryCacheEntry
	nowFn   func() time.Time
}

// NewBoundaryCache builds a cache with the given freshness window
// (spec.md §4.5 default 1s).
func NewBoundaryCache(ttl time.Duration) *BoundaryCache {
	return &BoundaryCache{ttl: ttl, entries: make(map[string]boundaryCacheEntry), nowFn: time.Now}
}

// Get returns a cached polygon for (normal, distance) if present and
// fresh.
func (c *BoundaryCache) Get(normal spatialmath.Vec3, distance float64) ([]spatialmath.Vec3, bool) {
	key := boundaryCacheKey(normal, distance)
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.nowFn().Sub(entry.computedAt) > c.ttl {
		return nil, false
	}
	return entry.polygon, true
}

// Put stores a freshly computed polygon.
func (c *BoundaryCache) Put(normal spatialmath.Vec3, distance float64, polygon []spatialmath.Vec3) {
	key := boundaryCacheKey(normal, distance)
	c.entries[key] = boundaryCacheEntry{polygon: polygon, computedAt: c.nowFn()}
}
