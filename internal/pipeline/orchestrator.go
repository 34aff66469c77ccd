package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arkit-go/engine/internal/arerr"
	"github.com/arkit-go/engine/internal/camera"
	"github.com/arkit-go/engine/internal/config"
	"github.com/arkit-go/engine/internal/gpu"
	"github.com/arkit-go/engine/internal/monitoring"
	"github.com/arkit-go/engine/internal/preprocess"
	"github.com/arkit-go/engine/internal/timeutil"
	"github.com/arkit-go/engine/pkg/arevents"
	"github.com/arkit-go/engine/pkg/arframe"
)

// Orchestrator owns the camera, GPU device, preprocessing stage, and
// the topologically ordered plugin set, and drives ProcessFrame on a
// ticker at the configured frame rate (spec.md §4.7). The shape
// generalizes the teacher's internal/lidar/pipeline.TrackingPipeline:
// same acquire -> stage -> assemble -> publish loop, a ticker instead
// of a blocking sensor read, and a registered-plugin stage list instead
// of a fixed L1-L6 chain.
type Orchestrator struct {
	device  gpu.Device
	source  camera.Source
	tuning  *config.TuningConfig
	events  *arevents.Emitter
	clock   timeutil.Clock

	blurStage *preprocess.GPUStage

	plugins []*pluginSlot
	ordered []Plugin

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	sequence uint64

	fpsWindow   []time.Time
	fpsReported float64
}

// New builds an Orchestrator; call Use to register plugins, then
// Initialize before Start.
func New(device gpu.Device, source camera.Source, tuning *config.TuningConfig, events *arevents.Emitter) *Orchestrator {
	return &Orchestrator{device: device, source: source, tuning: tuning, events: events, clock: timeutil.RealClock{}}
}

// WithClock overrides the orchestrator's time source, letting tests
// drive the frame ticker and FPS window deterministically with a
// timeutil.MockClock instead of sleeping on wall-clock time.
func (o *Orchestrator) WithClock(clock timeutil.Clock) *Orchestrator {
	o.clock = clock
	return o
}

// Use registers a plugin. Duplicate plugin names are rejected at
// Initialize time (spec.md §4.7's topological-order construction).
func (o *Orchestrator) Use(p Plugin) {
	o.plugins = append(o.plugins, newPluginSlot(p))
}

// Initialize topologically orders the registered plugins by
// dependency and priority, then calls Init on each in that order.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	nodes := make([]topoNode, len(o.plugins))
	byName := make(map[string]*pluginSlot, len(o.plugins))
	for i, slot := range o.plugins {
		nodes[i] = slot.plugin
		byName[slot.plugin.Name()] = slot
	}
	order, err := topoSort(nodes)
	if err != nil {
		return fmt.Errorf("pipeline: initialize: %w", err)
	}

	o.ordered = make([]Plugin, len(order))
	slots := make([]*pluginSlot, len(order))
	for i, n := range order {
		o.ordered[i] = n.(Plugin)
		slots[i] = byName[n.Name()]
	}
	o.plugins = slots

	negotiated, err := o.source.Initialize(ctx, camera.Settings{
		Width:     o.tuning.GetCameraWidth(),
		Height:    o.tuning.GetCameraHeight(),
		FrameRate: o.tuning.GetCameraFrameRate(),
		Facing:    camera.Facing(o.tuning.GetCameraFacing()),
	})
	if err != nil {
		return fmt.Errorf("pipeline: camera initialize: %w", err)
	}

	blurStage, err := preprocess.NewGaussianBlurStage(o.device, negotiated.Width, negotiated.Height, o.tuning.GetBlurKernelSize())
	if err != nil {
		return fmt.Errorf("pipeline: blur stage: %w", err)
	}
	o.blurStage = blurStage

	for _, p := range o.ordered {
		if err := p.Init(o.device); err != nil {
			return fmt.Errorf("pipeline: plugin %q init: %w", p.Name(), err)
		}
	}
	return nil
}

// Start begins the frame loop in a background goroutine, emitting
// "ready" once and then "frame" events at the configured rate.
// onFrame, if non-nil, is additionally invoked synchronously for every
// frame (spec.md §5's optional direct subscriber).
func (o *Orchestrator) Start(ctx context.Context, onFrame func(*arframe.ARFrame)) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return arerr.New(arerr.CodeInvalidState, "pipeline: already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true
	o.mu.Unlock()

	frameRate := o.tuning.GetCameraFrameRate()
	if frameRate <= 0 {
		frameRate = 30
	}
	interval := time.Second / time.Duration(frameRate)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.events.Emit(arevents.Ready, nil)

		ticker := o.clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C():
				frame, err := o.ProcessFrame(runCtx)
				if err != nil {
					monitoring.Logf("pipeline: process frame: %v", err)
					o.events.Emit(arevents.Error, err)
					continue
				}
				o.events.Emit(arevents.Frame, frame)
				if onFrame != nil {
					onFrame(frame)
				}
			}
		}
	}()
	return nil
}

// Stop cancels the frame loop and waits for it to exit. Idempotent.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
}

// Destroy stops the loop if running, waits for any in-flight plugin
// job, tears down every plugin, and destroys the camera and GPU
// device, per spec.md §5's cleanliness guarantee ("after destroy the
// Resource Tracker reports zero active resources"). Destroy is a
// no-op on a second call.
func (o *Orchestrator) Destroy(ctx context.Context) error {
	o.Stop()

	for _, slot := range o.plugins {
		slot.waitIdle(ctx)
	}

	var firstErr error
	for _, slot := range o.plugins {
		if err := slot.plugin.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := o.source.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := o.device.Destroy(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// ProcessFrame implements spec.md §4.7's six-step per-frame algorithm:
// acquire -> import to GPU texture -> preprocess -> submit to every
// plugin (single-flight, possibly stale) -> assemble the ARFrame ->
// release the imported texture. It is exported so tests and the CLI
// demo can drive single frames without the ticker loop.
func (o *Orchestrator) ProcessFrame(ctx context.Context) (*arframe.ARFrame, error) {
	raw, err := o.source.CurrentFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: acquire frame: %w", err)
	}

	tex, err := o.device.ImportExternalTexture(raw.Width, raw.Height, raw.Pixels)
	if err != nil {
		return nil, fmt.Errorf("pipeline: import frame: %w", err)
	}
	defer o.device.ReleaseExternalTexture(tex)

	gray := preprocess.RGBAToLuminance(raw.Pixels, raw.Width, raw.Height)
	blurred, err := o.blurStage.Run(ctx, gray)
	if err != nil {
		return nil, fmt.Errorf("pipeline: blur: %w", err)
	}

	o.events.Emit(arevents.FrameBefore, nil)

	o.mu.Lock()
	o.sequence++
	seq := o.sequence
	o.mu.Unlock()

	in := FrameInput{
		Sequence:  seq,
		Timestamp: raw.TimestampMicro,
		Width:     raw.Width,
		Height:    raw.Height,
		Gray:      blurred,
		Device:    o.device,
	}

	frame := &arframe.ARFrame{
		TimestampMicro:  raw.TimestampMicro,
		Sequence:        seq,
		Width:           raw.Width,
		Height:          raw.Height,
		ExternalTextureHandle: tex.ID,
	}

	for _, slot := range o.plugins {
		result, stale, err := slot.runFrame(ctx, in)
		if err != nil {
			monitoring.Logf("pipeline: plugin %q: %v", slot.plugin.Name(), err)
			o.events.Emit(arevents.Warning, err)
			continue
		}
		if stale {
			frame.Stale = true
		}
		applyPluginResult(frame, slot.plugin.Name(), result, o.events)
	}

	o.recordFPS(o.clock.Now())
	o.events.Emit(arevents.FrameAfter, nil)
	return frame, nil
}

// applyPluginResult folds a plugin's typed result into the frame,
// emitting the detection-lifecycle events spec.md §6 calls for.
func applyPluginResult(frame *arframe.ARFrame, pluginName string, result any, events *arevents.Emitter) {
	switch r := result.(type) {
	case markerPluginResult:
		frame.Markers = r.markers
		for _, id := range r.newlyDetected {
			events.Emit(arevents.MarkerDetected, id)
		}
		for _, id := range r.lost {
			events.Emit(arevents.MarkerLost, id)
		}
		if len(r.markers) > 0 {
			events.Emit(arevents.MarkerUpdated, r.markers)
		}
	case featurePluginResult:
		frame.Features = r.keypoints
	case planePluginResult:
		frame.Planes = r.planes
		for _, id := range r.removed {
			events.Emit(arevents.PlaneRemoved, id)
		}
		if len(r.planes) > 0 {
			events.Emit(arevents.PlaneUpdated, r.planes)
		}
	}
}

// recordFPS maintains a rolling 1-second window of frame timestamps
// and emits fps:change when the measured rate drifts by more than 10%
// from the last reported value (spec.md §6's fps:change event).
func (o *Orchestrator) recordFPS(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.fpsWindow = append(o.fpsWindow, now)
	cutoff := now.Add(-time.Second)
	i := 0
	for i < len(o.fpsWindow) && o.fpsWindow[i].Before(cutoff) {
		i++
	}
	o.fpsWindow = o.fpsWindow[i:]

	measured := float64(len(o.fpsWindow))
	if o.fpsReported == 0 {
		o.fpsReported = measured
		return
	}
	delta := measured - o.fpsReported
	if delta < 0 {
		delta = -delta
	}
	if delta/o.fpsReported > 0.1 {
		o.fpsReported = measured
		o.events.Emit(arevents.FPSChange, measured)
	}
}
