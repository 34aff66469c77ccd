package planes

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/arkit-go/engine/internal/spatialmath"
)

// RANSACConfig holds the RANSAC tuning fields from spec.md §4.5 /
// §6.1 (iterations and min-inliers vary per preset).
type RANSACConfig struct {
	Iterations            int
	DistanceThreshold     float64
	NormalThresholdDeg    float64 // only applied when points carry normals
	EarlyTerminationRatio float64 // default 0.8
	MinInliers            int
}

// Candidate is one RANSAC-fit plane before dedup/tracking.
type Candidate struct {
	Normal      spatialmath.Vec3
	Distance    float64 // signed distance to origin, n.x + d = 0
	InlierIdx   []int
	Score       float64
}

// FitRANSAC runs up to cfg.Iterations trials (each trial samples a
// minimal 3-point set, fits a plane, and counts inliers), the way
// spec.md §4.5 describes. This stays on the CPU rather than dispatching
// through the Device contract: each trial's candidate plane depends on
// which points the previous trial sampled only through rnd's stream
// position, not through any per-trial data the GPU abstraction models,
// and the early-termination check after every trial needs the inlier
// count back before the next trial can decide whether to run at all —
// a tight sequential loop a compute-pass model would not speed up. See
// SPEC_FULL.md's Open Questions for the full reasoning. rnd is
// caller-supplied so tests get deterministic sampling without the
// package depending on a global random source.
func FitRANSAC(cloud Cloud, cfg RANSACConfig, rnd *rand.Rand) []Candidate {
	if len(cloud) < 3 {
		return nil
	}
	cosThreshold := math.Cos(cfg.NormalThresholdDeg * math.Pi / 180)
	total := len(cloud)
	iterations := cfg.Iterations
	if iterations <= 0 {
		iterations = 256
	}
	ratio := cfg.EarlyTerminationRatio
	if ratio <= 0 {
		ratio = 0.8
	}

	var candidates []Candidate
	for iter := 0; iter < iterations; iter++ {
		i0, i1, i2 := sampleThree(rnd, total)
		normal, d, ok := planeFromThree(cloud[i0].Position, cloud[i1].Position, cloud[i2].Position)
		if !ok {
			continue
		}

		var inliers []int
		var residuals []float64
		for idx, pt := range cloud {
			dist := normal.Dot(pt.Position) + d
			absDist := math.Abs(dist)
			if absDist >= cfg.DistanceThreshold {
				continue
			}
			if pt.Normal != nil && normal.Dot(*pt.Normal) <= cosThreshold {
				continue
			}
			inliers = append(inliers, idx)
			residuals = append(residuals, absDist)
		}
		if len(inliers) < cfg.MinInliers {
			continue
		}

		meanResidual := stat.Mean(residuals, nil)
		score := float64(len(inliers)) * (1 - meanResidual/cfg.DistanceThreshold)
		candidates = append(candidates, Candidate{Normal: normal, Distance: d, InlierIdx: inliers, Score: score})

		if float64(len(inliers))/float64(total) >= ratio {
			break
		}
	}
	return candidates
}

func sampleThree(rnd *rand.Rand, n int) (int, int, int) {
	i0 := rnd.Intn(n)
	i1 := rnd.Intn(n)
	i2 := rnd.Intn(n)
	return i0, i1, i2
}

// planeFromThree fits n.x + d = 0 through three points via their
// cross-product normal, rejecting near-collinear triples.
func planeFromThree(a, b, c spatialmath.Vec3) (spatialmath.Vec3, float64, bool) {
	ab := b.Sub(a)
	ac := c.Sub(a)
	n := ab.Cross(ac)
	if n.Length() < 1e-9 {
		return spatialmath.Vec3{}, 0, false
	}
	n = n.Normalize()
	d := -n.Dot(a)
	return n, d, true
}
