package spatialmath

import (
	"errors"
	"math"
)

// ErrSingular is returned by GaussJordanSolve when the coefficient matrix
// has no usable pivot (the quad is too close to degenerate to support a
// homography solve).
var ErrSingular = errors.New("spatialmath: singular matrix, no pivot found")

// GaussJordanSolve solves a*x = b for x, where a is an n×n coefficient
// matrix (row-major, flattened) and b is length n. It uses partial-pivoting
// Gauss-Jordan elimination, matching spec.md §4.3 step 8 ("solving an
// 8-row linear system via Gauss-Jordan"). a and b are not modified.
func GaussJordanSolve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	if n == 0 || len(b) != n {
		return nil, errors.New("spatialmath: dimension mismatch")
	}

	// Build an augmented n x (n+1) working copy.
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, n+1)
		copy(aug[i], a[i])
		aug[i][n] = b[i]
	}

	for col := 0; col < n; col++ {
		// Partial pivot: find the largest magnitude entry in this column
		// at or below the current row, for numerical stability.
		pivotRow := col
		maxAbs := math.Abs(aug[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(aug[r][col]); v > maxAbs {
				maxAbs = v
				pivotRow = r
			}
		}
		if maxAbs < 1e-12 {
			return nil, ErrSingular
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		pivot := aug[col][col]
		for c := col; c <= n; c++ {
			aug[col][c] /= pivot
		}

		// Eliminate this column from every other row (Gauss-Jordan, not
		// just forward elimination — leaves an identity matrix on the
		// left when done).
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := aug[r][col]
			if factor == 0 {
				continue
			}
			for c := col; c <= n; c++ {
				aug[r][c] -= factor * aug[col][c]
			}
		}
	}

	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = aug[i][n]
	}
	return x, nil
}
