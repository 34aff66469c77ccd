package spatialmath

import "testing"

func quadFixture() (src, dst [4]Vec2) {
	src = [4]Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	dst = [4]Vec2{{X: 10, Y: 12}, {X: 54, Y: 18}, {X: 48, Y: 60}, {X: 8, Y: 58}}
	return src, dst
}

func TestComputeHomographyMapsCorrespondences(t *testing.T) {
	src, dst := quadFixture()
	h, err := ComputeHomography(src, dst)
	if err != nil {
		t.Fatalf("ComputeHomography: %v", err)
	}
	for i := range src {
		got := h.Apply(src[i])
		if absf(got.X-dst[i].X) > 1e-6 || absf(got.Y-dst[i].Y) > 1e-6 {
			t.Errorf("corner %d: Apply(%v) = %v, want %v", i, src[i], got, dst[i])
		}
	}
}

// TestHomographyInverseRoundTrip checks spec.md §8's H * H^-1 = I
// round-trip law: applying a homography then its inverse returns the
// original point within 1e-5.
func TestHomographyInverseRoundTrip(t *testing.T) {
	src, dst := quadFixture()
	h, err := ComputeHomography(src, dst)
	if err != nil {
		t.Fatalf("ComputeHomography: %v", err)
	}
	inv, err := h.Invert()
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}

	samples := []Vec2{{X: 0.25, Y: 0.25}, {X: 0.75, Y: 0.1}, {X: 0.5, Y: 0.5}, {X: 0, Y: 1}}
	for _, p := range samples {
		warped := h.Apply(p)
		back := inv.Apply(warped)
		if absf(back.X-p.X) > 1e-5 || absf(back.Y-p.Y) > 1e-5 {
			t.Errorf("round trip for %v: got %v back, want within 1e-5", p, back)
		}
	}
}

func TestHomographyMulComposesApply(t *testing.T) {
	src, dst := quadFixture()
	a, err := ComputeHomography(src, dst)
	if err != nil {
		t.Fatalf("ComputeHomography: %v", err)
	}
	b, err := a.Invert()
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	composed := a.Mul(b)
	p := Vec2{X: 3, Y: 4}
	direct := a.Apply(b.Apply(p))
	viaComposed := composed.Apply(p)
	if absf(direct.X-viaComposed.X) > 1e-5 || absf(direct.Y-viaComposed.Y) > 1e-5 {
		t.Errorf("a.Mul(b).Apply(p) = %v, want a.Apply(b.Apply(p)) = %v", viaComposed, direct)
	}
}

func TestComputeHomographyDuplicatePointsReturnsError(t *testing.T) {
	// A repeated correspondence leaves the 8x8 DLT system underdetermined
	// (two identical rows), so no pivot exists for that column.
	src := [4]Vec2{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	dst := [4]Vec2{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 9, Y: 9}, {X: 5, Y: 9}}
	if _, err := ComputeHomography(src, dst); err == nil {
		t.Error("expected an error for a degenerate (duplicated-correspondence) system")
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
