package spatialmath

import (
	"math"
	"testing"
)

func TestVec2AddSubScale(t *testing.T) {
	a := Vec2{X: 1, Y: 2}
	b := Vec2{X: 3, Y: -1}
	if got := a.Add(b); got != (Vec2{X: 4, Y: 1}) {
		t.Errorf("Add = %v, want {4 1}", got)
	}
	if got := a.Sub(b); got != (Vec2{X: -2, Y: 3}) {
		t.Errorf("Sub = %v, want {-2 3}", got)
	}
	if got := a.Scale(2); got != (Vec2{X: 2, Y: 4}) {
		t.Errorf("Scale = %v, want {2 4}", got)
	}
}

func TestDist2(t *testing.T) {
	if got := Dist2(Vec2{X: 0, Y: 0}, Vec2{X: 3, Y: 4}); got != 5 {
		t.Errorf("Dist2 = %v, want 5", got)
	}
}

func TestCross2SignMatchesWinding(t *testing.T) {
	// Counter-clockwise turn at the origin should be positive.
	ccw := Cross2(Vec2{X: 0, Y: 0}, Vec2{X: 1, Y: 0}, Vec2{X: 1, Y: 1})
	if ccw <= 0 {
		t.Errorf("expected a positive cross product for a CCW turn, got %v", ccw)
	}
	cw := Cross2(Vec2{X: 0, Y: 0}, Vec2{X: 0, Y: 1}, Vec2{X: 1, Y: 1})
	if cw >= 0 {
		t.Errorf("expected a negative cross product for a CW turn, got %v", cw)
	}
}

func TestVec3DotCrossLength(t *testing.T) {
	x := Vec3{X: 1, Y: 0, Z: 0}
	y := Vec3{X: 0, Y: 1, Z: 0}
	if got := x.Dot(y); got != 0 {
		t.Errorf("orthogonal Dot = %v, want 0", got)
	}
	z := x.Cross(y)
	if z != (Vec3{X: 0, Y: 0, Z: 1}) {
		t.Errorf("x cross y = %v, want {0 0 1}", z)
	}
	v := Vec3{X: 3, Y: 4, Z: 0}
	if got := v.Length(); math.Abs(got-5) > 1e-9 {
		t.Errorf("Length = %v, want 5", got)
	}
}

func TestVec3NormalizeUnitLength(t *testing.T) {
	v := Vec3{X: 2, Y: 0, Z: 0}
	n := v.Normalize()
	if math.Abs(n.Length()-1) > 1e-9 {
		t.Errorf("normalized length = %v, want 1", n.Length())
	}
}

func TestVec3NormalizeZeroVectorIsZero(t *testing.T) {
	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("Normalize of zero vector = %v, want zero", got)
	}
}
