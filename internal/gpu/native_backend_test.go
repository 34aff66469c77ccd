package gpu

import (
	"context"
	"testing"
	"time"
)

func TestNativeComputeBackendDispatchesRegisteredKernel(t *testing.T) {
	b := NewNativeComputeBackend()
	shader, err := b.CompileShader("double", "kernel { double }")
	if err != nil {
		t.Fatalf("CompileShader: %v", err)
	}
	if err := b.RegisterComputeKernel("double", func(_, _, _ uint32, inputs [][]byte) [][]byte {
		out := make([]byte, len(inputs[0]))
		for i, v := range inputs[0] {
			out[i] = v * 2
		}
		return [][]byte{out}
	}); err != nil {
		t.Fatalf("RegisterComputeKernel: %v", err)
	}

	buf, err := b.CreateBuffer(BufferDescriptor{Label: "in-out", Size: 4, Usage: BufferUsageStorage | BufferUsageMapRead})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if err := b.WriteBuffer(buf, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	pipeline, err := b.CreateComputePipeline(shader, "main")
	if err != nil {
		t.Fatalf("CreateComputePipeline: %v", err)
	}
	bg, err := b.CreateBindGroup([]BindGroupEntry{{Binding: 0, Buffer: buf}})
	if err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}

	enc := b.CreateCommandEncoder()
	enc.BeginComputePass(*pipeline, *bg, 1, 1, 1)
	if err := b.Submit(context.Background(), enc); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := b.ReadBuffer(context.Background(), buf)
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	want := []byte{2, 4, 6, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadBuffer = %v, want %v", got, want)
		}
	}
}

func TestNativeComputeBackendUnregisteredShaderFallsBackToIdentity(t *testing.T) {
	b := NewNativeComputeBackend()
	shader, err := b.CompileShader("untouched", "kernel {}")
	if err != nil {
		t.Fatalf("CompileShader: %v", err)
	}
	buf, err := b.CreateBuffer(BufferDescriptor{Label: "buf", Size: 3, Usage: BufferUsageStorage})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if err := b.WriteBuffer(buf, []byte{9, 8, 7}); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	pipeline, err := b.CreateComputePipeline(shader, "main")
	if err != nil {
		t.Fatalf("CreateComputePipeline: %v", err)
	}
	bg, err := b.CreateBindGroup([]BindGroupEntry{{Binding: 0, Buffer: buf}})
	if err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}
	enc := b.CreateCommandEncoder()
	enc.BeginComputePass(*pipeline, *bg, 1, 1, 1)
	if err := b.Submit(context.Background(), enc); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	got, err := b.ReadBuffer(context.Background(), buf)
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	want := []byte{9, 8, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("identity fallback changed buffer: got %v, want %v", got, want)
		}
	}
}

func TestNativeComputeBackendDestroyReleasesAllTrackedResources(t *testing.T) {
	b := NewNativeComputeBackend()
	if _, err := b.CreateBuffer(BufferDescriptor{Label: "a", Size: 16}); err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if _, err := b.CreateTexture(TextureDescriptor{Label: "b", Width: 4, Height: 4, Format: FormatR8Unorm}); err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	shader, err := b.CompileShader("s", "kernel {}")
	if err != nil {
		t.Fatalf("CompileShader: %v", err)
	}
	pipeline, err := b.CreateComputePipeline(shader, "main")
	if err != nil {
		t.Fatalf("CreateComputePipeline: %v", err)
	}
	if _, err := b.CreateBindGroup([]BindGroupEntry{}); err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}
	_ = pipeline

	tracker := b.Tracker()
	if got := tracker.Count(""); got == 0 {
		t.Fatalf("expected tracked resources before Destroy, got %d", got)
	}

	if err := b.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if got := tracker.Count(""); got != 0 {
		t.Errorf("tracker.Count after Destroy = %d, want 0 (leak)", got)
	}
	if leaks := tracker.FindLeaks(0); len(leaks) != 0 {
		t.Errorf("FindLeaks after Destroy = %v, want none", leaks)
	}
}

func TestNativeComputeBackendDestroyedDeviceReturnsErrDeviceLost(t *testing.T) {
	b := NewNativeComputeBackend()
	if err := b.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := b.CreateBuffer(BufferDescriptor{Size: 1}); err != ErrDeviceLost {
		t.Errorf("CreateBuffer after Destroy = %v, want ErrDeviceLost", err)
	}
	if err := b.RegisterComputeKernel("x", identityShader); err != ErrDeviceLost {
		t.Errorf("RegisterComputeKernel after Destroy = %v, want ErrDeviceLost", err)
	}
}

func TestNativeComputeBackendImportReleaseExternalTexture(t *testing.T) {
	b := NewNativeComputeBackend()
	data := []byte{1, 2, 3, 4}
	tex, err := b.ImportExternalTexture(2, 2, data)
	if err != nil {
		t.Fatalf("ImportExternalTexture: %v", err)
	}
	if got := b.Tracker().Count(ResourceExternalTexture); got != 1 {
		t.Fatalf("Count(ResourceExternalTexture) = %d, want 1", got)
	}
	if err := b.ReleaseExternalTexture(tex); err != nil {
		t.Fatalf("ReleaseExternalTexture: %v", err)
	}
	if got := b.Tracker().Count(ResourceExternalTexture); got != 0 {
		t.Errorf("Count(ResourceExternalTexture) after release = %d, want 0", got)
	}
}

func TestEmulationBackendCountsFullscreenPasses(t *testing.T) {
	b := NewEmulationBackend()
	shader, err := b.CompileShader("s", "kernel {}")
	if err != nil {
		t.Fatalf("CompileShader: %v", err)
	}
	buf, err := b.CreateBuffer(BufferDescriptor{Size: 1})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	pipeline, err := b.CreateComputePipeline(shader, "main")
	if err != nil {
		t.Fatalf("CreateComputePipeline: %v", err)
	}
	bg, err := b.CreateBindGroup([]BindGroupEntry{{Binding: 0, Buffer: buf}})
	if err != nil {
		t.Fatalf("CreateBindGroup: %v", err)
	}
	enc := b.CreateCommandEncoder()
	enc.BeginComputePass(*pipeline, *bg, 1, 1, 1)
	enc.BeginComputePass(*pipeline, *bg, 1, 1, 1)
	if err := b.Submit(context.Background(), enc); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := b.FullscreenPassCount(); got != 2 {
		t.Errorf("FullscreenPassCount = %d, want 2", got)
	}
}

func TestResourceTrackerFindLeaksRespectsAge(t *testing.T) {
	tracker := NewResourceTracker()
	id := tracker.Track(ResourceBuffer, "stale", 10)
	if leaks := tracker.FindLeaks(time.Hour); len(leaks) != 0 {
		t.Fatalf("expected no leaks for a fresh resource under a 1h threshold, got %v", leaks)
	}
	tracker.Release(id)
	if got := tracker.Count(""); got != 0 {
		t.Errorf("Count after Release = %d, want 0", got)
	}
}
