// Package planes implements point-cloud plane detection (spec.md
// §4.5): normal estimation, RANSAC plane fitting (run on the CPU, not
// through a gpu.Device), CPU
// candidate scoring/dedup, and convex-hull boundary extraction. The
// point-cloud-in/candidates-out shape mirrors the teacher's
// internal/lidar/l4perception ground-plane estimation and
// internal/lidar/obb.go's PCA/covariance numerics, generalized from a
// fixed ground-plane assumption to arbitrary-orientation RANSAC
// fitting plus tracked multi-plane output.
package planes

import (
	"gonum.org/v1/gonum/mat"

	"github.com/arkit-go/engine/internal/spatialmath"
)

// Point is one 3D sample, optionally carrying a precomputed normal
// (from depth-sensor metadata); when Normal is nil, EstimateNormals
// fills it in from local neighborhood covariance.
type Point struct {
	Position spatialmath.Vec3
	Normal   *spatialmath.Vec3
}

// Cloud is an unordered point set, the input to RANSAC plane fitting.
type Cloud []Point

// EstimateNormals fills in Normal for every point lacking one, using
// the k nearest neighbors' covariance matrix and taking its smallest
// eigenvector as the local surface normal — the same covariance/PCA
// technique internal/lidar/obb.go uses for 2D heading estimation,
// generalized to 3D via gonum's symmetric eigendecomposition instead
// of the closed-form 2x2 solution a 3x3 matrix doesn't admit as
// cleanly.
func EstimateNormals(cloud Cloud, k int) {
	if k < 3 {
		k = 3
	}
	for i := range cloud {
		if cloud[i].Normal != nil {
			continue
		}
		neighbors := kNearest(cloud, i, k)
		n := covarianceNormal(cloud, neighbors)
		cloud[i].Normal = &n
	}
}

// kNearest returns up to k indices (excluding self) closest to
// cloud[idx] by brute-force distance scan, adequate for the point
// counts this package's scenarios use (hundreds to low thousands of
// points per frame).
func kNearest(cloud Cloud, idx, k int) []int {
	type distIdx struct {
		dist float64
		idx  int
	}
	dists := make([]distIdx, 0, len(cloud)-1)
	p := cloud[idx].Position
	for j, pt := range cloud {
		if j == idx {
			continue
		}
		d := p.Sub(pt.Position).Length()
		dists = append(dists, distIdx{d, j})
	}
	// Partial selection sort for the k smallest; k is typically small
	// (8-16) relative to cloud size so this stays cheap.
	for i := 0; i < k && i < len(dists); i++ {
		minIdx := i
		for j := i + 1; j < len(dists); j++ {
			if dists[j].dist < dists[minIdx].dist {
				minIdx = j
			}
		}
		dists[i], dists[minIdx] = dists[minIdx], dists[i]
	}
	n := k
	if n > len(dists) {
		n = len(dists)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = dists[i].idx
	}
	return out
}

func covarianceNormal(cloud Cloud, neighborIdx []int) spatialmath.Vec3 {
	if len(neighborIdx) < 3 {
		return spatialmath.Vec3{Y: 1}
	}
	var mean spatialmath.Vec3
	for _, idx := range neighborIdx {
		mean = mean.Add(cloud[idx].Position)
	}
	mean = mean.Scale(1 / float64(len(neighborIdx)))

	cov := mat.NewSymDense(3, nil)
	for _, idx := range neighborIdx {
		d := cloud[idx].Position.Sub(mean)
		arr := [3]float64{d.X, d.Y, d.Z}
		for r := 0; r < 3; r++ {
			for c := r; c < 3; c++ {
				cov.SetSym(r, c, cov.At(r, c)+arr[r]*arr[c])
			}
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return spatialmath.Vec3{Y: 1}
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// The smallest eigenvalue's eigenvector is the least-variance
	// direction, i.e. the local surface normal.
	minIdx := 0
	for i := 1; i < len(values); i++ {
		if values[i] < values[minIdx] {
			minIdx = i
		}
	}
	n := spatialmath.Vec3{X: vectors.At(0, minIdx), Y: vectors.At(1, minIdx), Z: vectors.At(2, minIdx)}
	return n.Normalize()
}
