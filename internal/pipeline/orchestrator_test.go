package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/arkit-go/engine/internal/camera"
	"github.com/arkit-go/engine/internal/config"
	"github.com/arkit-go/engine/internal/gpu"
	"github.com/arkit-go/engine/pkg/arevents"
)

func blankFrame(w, h int) camera.Frame {
	return camera.Frame{Pixels: make([]byte, w*h*4), Width: w, Height: h}
}

func testTuning() *config.TuningConfig {
	w, h := 64, 64
	return &config.TuningConfig{CameraWidth: &w, CameraHeight: &h}
}

func TestOrchestratorProcessFrameProducesIncreasingSequence(t *testing.T) {
	device := gpu.NewNativeComputeBackend()
	source := camera.NewFixtureSource([]camera.Frame{blankFrame(64, 64)}, camera.Capabilities{})
	tuning := testTuning()
	events := arevents.New()

	orch := New(device, source, tuning, events)
	orch.Use(NewMarkerPlugin(tuning))
	orch.Use(NewFeaturePlugin(tuning))

	ctx := context.Background()
	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer orch.Destroy(ctx)

	f1, err := orch.ProcessFrame(ctx)
	if err != nil {
		t.Fatalf("process frame 1: %v", err)
	}
	f2, err := orch.ProcessFrame(ctx)
	if err != nil {
		t.Fatalf("process frame 2: %v", err)
	}
	if f2.Sequence <= f1.Sequence {
		t.Errorf("expected strictly increasing sequence numbers, got %d then %d", f1.Sequence, f2.Sequence)
	}
	if f2.TimestampMicro <= f1.TimestampMicro {
		t.Errorf("expected strictly increasing timestamps, got %d then %d", f1.TimestampMicro, f2.TimestampMicro)
	}
}

func TestOrchestratorDestroyIsClean(t *testing.T) {
	device := gpu.NewNativeComputeBackend()
	source := camera.NewFixtureSource([]camera.Frame{blankFrame(64, 64)}, camera.Capabilities{})
	tuning := testTuning()
	orch := New(device, source, tuning, arevents.New())
	orch.Use(NewMarkerPlugin(tuning))

	ctx := context.Background()
	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := orch.ProcessFrame(ctx); err != nil {
		t.Fatalf("process frame: %v", err)
	}
	if err := orch.Destroy(ctx); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if active := device.Tracker().Count(""); active != 0 {
		t.Errorf("expected 0 active GPU resources after destroy, got %d", active)
	}
}

func TestOrchestratorStartStopEmitsFrames(t *testing.T) {
	device := gpu.NewNativeComputeBackend()
	source := camera.NewFixtureSource([]camera.Frame{blankFrame(64, 64)}, camera.Capabilities{})
	frameRate := 200
	tuning := &config.TuningConfig{CameraWidth: intPtr(64), CameraHeight: intPtr(64), CameraFrameRate: &frameRate}
	events := arevents.New()
	orch := New(device, source, tuning, events)
	orch.Use(NewMarkerPlugin(tuning))

	ctx := context.Background()
	if err := orch.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	defer orch.Destroy(ctx)

	frameCh := make(chan struct{}, 16)
	events.On(arevents.Frame, func(payload any) {
		select {
		case frameCh <- struct{}{}:
		default:
		}
	})

	if err := orch.Start(ctx, nil); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-frameCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for at least one frame event")
	}

	orch.Stop()
}

func intPtr(v int) *int { return &v }
