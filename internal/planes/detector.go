package planes

import (
	"math/rand"
	"time"

	"github.com/arkit-go/engine/internal/spatialmath"
	"github.com/arkit-go/engine/internal/tracking"
)

// DetectorConfig bundles the RANSAC, dedup, and boundary parameters
// a single Detect call needs.
type DetectorConfig struct {
	RANSAC            RANSACConfig
	Dedup             DedupRule
	MaxPlanes         int
	BoundaryTolerance float64
}

// Detector runs the full per-frame plane pipeline: normal estimation
// (only for points lacking one), RANSAC fitting, dedup/selection, and
// boundary extraction, producing tracking.PlaneCandidate values ready
// for tracking.PlaneTracker.Update.
type Detector struct {
	cfg   DetectorConfig
	rnd   *rand.Rand
	cache *BoundaryCache
}

// NewDetector builds a Detector. RANSAC sampling is driven by seed, so
// a fixed seed gives reproducible results; PlanePlugin passes 1.
func NewDetector(cfg DetectorConfig, seed int64) *Detector {
	return &Detector{cfg: cfg, rnd: rand.New(rand.NewSource(seed)), cache: NewBoundaryCache(time.Second)}
}

// WithBoundaryCache replaces the detector's boundary cache, letting
// callers share one cache across detectors or inject a fake clock in
// tests.
func (d *Detector) WithBoundaryCache(cache *BoundaryCache) *Detector {
	d.cache = cache
	return d
}

// Detect runs the pipeline over a point cloud and returns one
// PlaneCandidate per accepted plane.
func (d *Detector) Detect(cloud Cloud) []tracking.PlaneCandidate {
	EstimateNormals(cloud, 8)
	raw := FitRANSAC(cloud, d.cfg.RANSAC, d.rnd)
	accepted := SelectCandidates(raw, d.cfg.Dedup, d.cfg.MaxPlanes)

	out := make([]tracking.PlaneCandidate, len(accepted))
	for i, cand := range accepted {
		centroid := inlierCentroid(cloud, cand.InlierIdx)

		var boundary []spatialmath.Vec3
		if d.cache != nil {
			if cached, ok := d.cache.Get(cand.Normal, cand.Distance); ok {
				boundary = cached
			}
		}
		if boundary == nil {
			boundary = BuildBoundary(cloud, cand, centroid, d.cfg.BoundaryTolerance)
			if d.cache != nil {
				d.cache.Put(cand.Normal, cand.Distance, boundary)
			}
		}

		out[i] = tracking.PlaneCandidate{
			Normal:      cand.Normal,
			Distance:    cand.Distance,
			Centroid:    centroid,
			InlierCount: len(cand.InlierIdx),
			Area:        hullArea(boundary, centroid, cand.Normal),
			Confidence:  confidenceFromScore(cand.Score, len(cand.InlierIdx)),
			Boundary:    boundary,
		}
	}
	return out
}

func inlierCentroid(cloud Cloud, idx []int) spatialmath.Vec3 {
	var sum spatialmath.Vec3
	for _, i := range idx {
		sum = sum.Add(cloud[i].Position)
	}
	n := float64(len(idx))
	if n == 0 {
		return sum
	}
	return sum.Scale(1 / n)
}

// hullArea returns the area enclosed by a 3D boundary polygon,
// computed via the shoelace formula in the plane's own 2D basis.
func hullArea(boundary []spatialmath.Vec3, centroid, normal spatialmath.Vec3) float64 {
	if len(boundary) < 3 {
		return 0
	}
	basis := ComputeBasis(normal)
	pts := make([]spatialmath.Vec2, len(boundary))
	for i, p := range boundary {
		pts[i] = Project2D(p, centroid, basis)
	}
	sum := 0.0
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		sum += a.X*b.Y - b.X*a.Y
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// confidenceFromScore maps a RANSAC score (inliers weighted by fit
// quality) into the [0,1] confidence range the tracker's EMA expects:
// the per-inlier fit quality score/inliers, clamped to [0,1]. It does
// not depend on MinInliers.
func confidenceFromScore(score float64, inliers int) float64 {
	if inliers == 0 {
		return 0
	}
	c := score / float64(inliers)
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}
