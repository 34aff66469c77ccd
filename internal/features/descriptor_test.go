package features

import (
	"testing"

	"github.com/arkit-go/engine/internal/spatialmath"
	"github.com/arkit-go/engine/pkg/arframe"
)

type fakeGray struct {
	pix           []uint8
	width, height int
}

func (g fakeGray) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= g.width || y >= g.height {
		return 0
	}
	return g.pix[y*g.width+x]
}
func (g fakeGray) Dims() (int, int) { return g.width, g.height }

func checkerboard(w, h int) fakeGray {
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/8+y/8)%2 == 0 {
				pix[y*w+x] = 220
			} else {
				pix[y*w+x] = 30
			}
		}
	}
	return fakeGray{pix: pix, width: w, height: h}
}

func TestDescribeProducesStableBitPattern(t *testing.T) {
	src := checkerboard(64, 64)
	kp := arframe.Keypoint{Point: spatialmath.Vec2{X: 32, Y: 32}, Orientation: 0}

	d1 := Describe(src, kp)
	d2 := Describe(src, kp)
	if d1 != d2 {
		t.Fatalf("Describe is not deterministic for identical input: %v vs %v", d1, d2)
	}
}

func TestDescribeRotationChangesPattern(t *testing.T) {
	src := checkerboard(64, 64)
	kp0 := arframe.Keypoint{Point: spatialmath.Vec2{X: 32, Y: 32}, Orientation: 0}
	kp1 := arframe.Keypoint{Point: spatialmath.Vec2{X: 32, Y: 32}, Orientation: 1.2}

	d0 := Describe(src, kp0)
	d1 := Describe(src, kp1)
	if d0 == d1 {
		t.Errorf("expected rotating the sampling pattern to change the descriptor")
	}
}

func TestHammingDistanceIdenticalIsZero(t *testing.T) {
	src := checkerboard(64, 64)
	kp := arframe.Keypoint{Point: spatialmath.Vec2{X: 32, Y: 32}}
	d := Describe(src, kp)
	if dist := d.HammingDistance(d); dist != 0 {
		t.Errorf("expected 0 distance to self, got %d", dist)
	}
}

func TestIntensityCentroidAngleUniformPatchIsZero(t *testing.T) {
	pix := make([]uint8, 64*64)
	for i := range pix {
		pix[i] = 128
	}
	src := fakeGray{pix: pix, width: 64, height: 64}
	angle := IntensityCentroidAngle(src, 32, 32)
	if angle != 0 {
		t.Errorf("expected 0 angle for a uniform patch, got %f", angle)
	}
}
