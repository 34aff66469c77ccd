package spatialmath

// Homography is a row-major 3x3 projective transform (9 entries, h8
// normalized to 1 by construction) mapping one planar quadrilateral to
// another up to scale. Used by the marker pipeline to map a detected
// quad to the canonical square and back (spec.md §4.3 step 8).
type Homography [9]float64

// ComputeHomography solves for the homography mapping src[i] -> dst[i]
// for four point correspondences, via the direct linear transform
// reduced to an 8x8 linear system and solved with Gauss-Jordan
// elimination (GaussJordanSolve), exactly as spec.md §4.3 step 8
// prescribes.
func ComputeHomography(src, dst [4]Vec2) (Homography, error) {
	a := make([][]float64, 8)
	b := make([]float64, 8)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		// Row for the u equation: h0 x + h1 y + h2 - h6 x u - h7 y u = u
		a[2*i] = []float64{x, y, 1, 0, 0, 0, -x * u, -y * u}
		b[2*i] = u

		// Row for the v equation: h3 x + h4 y + h5 - h6 x v - h7 y v = v
		a[2*i+1] = []float64{0, 0, 0, x, y, 1, -x * v, -y * v}
		b[2*i+1] = v
	}

	h, err := GaussJordanSolve(a, b)
	if err != nil {
		return Homography{}, err
	}

	return Homography{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, nil
}

// Apply projects a source-plane point through the homography.
func (h Homography) Apply(p Vec2) Vec2 {
	denom := h[6]*p.X + h[7]*p.Y + h[8]
	if denom == 0 {
		return Vec2{}
	}
	return Vec2{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / denom,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / denom,
	}
}

// Invert returns the inverse homography. H * H^-1 = I within 1e-5 for
// well-conditioned quads, per spec.md §8's round-trip law.
func (h Homography) Invert() (Homography, error) {
	inv, ok := Mat3Invert([9]float64(h))
	if !ok {
		return Homography{}, ErrSingular
	}
	return Homography(inv), nil
}

// Mul composes two homographies: (a.Mul(b)).Apply(p) == a.Apply(b.Apply(p)).
func (a Homography) Mul(b Homography) Homography {
	var out [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += a[r*3+k] * b[k*3+c]
			}
			out[r*3+c] = sum
		}
	}
	return Homography(out)
}
