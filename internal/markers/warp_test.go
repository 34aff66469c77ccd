package markers

import (
	"testing"

	"github.com/arkit-go/engine/internal/spatialmath"
)

// solidSquare builds a LuminanceSource of size x size filled entirely
// with value v, standing in for a uniformly dark or light patch.
func solidSquare(size int, v uint8) *LuminanceSource {
	pix := make([]uint8, size*size)
	for i := range pix {
		pix[i] = v
	}
	return &LuminanceSource{Pix: pix, Width: size, Height: size}
}

func TestVerifyBorderAcceptsDarkRingRejectsLightRing(t *testing.T) {
	dark := solidSquare(CanonicalPatchSize, 0)
	if !VerifyBorder(dark) {
		t.Error("expected an all-dark patch to pass border verification")
	}
	light := solidSquare(CanonicalPatchSize, 255)
	if VerifyBorder(light) {
		t.Error("expected an all-light patch to fail border verification")
	}
}

func TestSampleBitGridAllDarkIsZeroCode(t *testing.T) {
	dark := solidSquare(CanonicalPatchSize, 0)
	code := SampleBitGrid(dark, Dict4x4Size)
	if code != 0 {
		t.Errorf("SampleBitGrid of an all-dark patch = %d, want 0", code)
	}
}

func TestSampleBitGridAllLightIsAllOnesCode(t *testing.T) {
	light := solidSquare(CanonicalPatchSize, 255)
	code := SampleBitGrid(light, Dict4x4Size)
	want := uint64(1)<<uint(Dict4x4Size*Dict4x4Size) - 1
	if code != want {
		t.Errorf("SampleBitGrid of an all-light patch = %b, want %b", code, want)
	}
}

func TestWarpPatchIdentityQuadPreservesSource(t *testing.T) {
	src := &LuminanceSource{Width: 64, Height: 64, Pix: make([]uint8, 64*64)}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x < 32 {
				src.Pix[y*64+x] = 0
			} else {
				src.Pix[y*64+x] = 255
			}
		}
	}
	quad := [4]spatialmath.Vec2{{X: 0, Y: 0}, {X: 64, Y: 0}, {X: 64, Y: 64}, {X: 0, Y: 64}}
	patch, err := WarpPatch(src, quad)
	if err != nil {
		t.Fatalf("WarpPatch: %v", err)
	}
	// Left half of the canonical patch should stay dark, right half
	// light, since the identity-mapped quad spans the whole source.
	if patch.At(2, CanonicalPatchSize/2) >= 127 {
		t.Errorf("left side of warped patch should remain dark")
	}
	if patch.At(CanonicalPatchSize-2, CanonicalPatchSize/2) < 127 {
		t.Errorf("right side of warped patch should remain light")
	}
}
