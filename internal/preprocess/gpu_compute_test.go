package preprocess

import (
	"context"
	"testing"

	"github.com/arkit-go/engine/internal/gpu"
)

func randomLuminance(width, height int) *Luminance {
	l := NewLuminance(width, height)
	seed := uint32(1)
	for i := range l.Pix {
		seed = seed*1103515245 + 12345
		l.Pix[i] = uint8(seed >> 16)
	}
	return l
}

func TestGaussianBlurStageMatchesCPUFunction(t *testing.T) {
	device := gpu.NewNativeComputeBackend()
	src := randomLuminance(8, 6)

	stage, err := NewGaussianBlurStage(device, src.Width, src.Height, 3)
	if err != nil {
		t.Fatalf("NewGaussianBlurStage: %v", err)
	}
	got, err := stage.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := GaussianBlur(src, 3)
	if len(got.Pix) != len(want.Pix) {
		t.Fatalf("output length = %d, want %d", len(got.Pix), len(want.Pix))
	}
	for i := range want.Pix {
		if got.Pix[i] != want.Pix[i] {
			t.Fatalf("pixel %d = %d, want %d (GPU-dispatched blur must match the CPU function it wraps)", i, got.Pix[i], want.Pix[i])
		}
	}
}

func TestAdaptiveThresholdStageMatchesCPUFunction(t *testing.T) {
	device := gpu.NewNativeComputeBackend()
	src := randomLuminance(8, 6)

	stage, err := NewAdaptiveThresholdStage(device, src.Width, src.Height, 5, 7)
	if err != nil {
		t.Fatalf("NewAdaptiveThresholdStage: %v", err)
	}
	got, err := stage.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := AdaptiveThreshold(src, 5, 7)
	for i := range want.Pix {
		if got.Pix[i] != want.Pix[i] {
			t.Fatalf("pixel %d = %d, want %d (GPU-dispatched threshold must match the CPU function it wraps)", i, got.Pix[i], want.Pix[i])
		}
	}
}

func TestGPUStageReusesPersistentResources(t *testing.T) {
	device := gpu.NewNativeComputeBackend()
	src := randomLuminance(4, 4)
	stage, err := NewGaussianBlurStage(device, src.Width, src.Height, 3)
	if err != nil {
		t.Fatalf("NewGaussianBlurStage: %v", err)
	}
	before := device.Tracker().Count("")
	for i := 0; i < 5; i++ {
		if _, err := stage.Run(context.Background(), src); err != nil {
			t.Fatalf("Run[%d]: %v", i, err)
		}
	}
	after := device.Tracker().Count("")
	if after != before {
		t.Errorf("tracked resource count grew from %d to %d across repeated Run calls, want no growth (resources must be reused, not reallocated per frame)", before, after)
	}
}
