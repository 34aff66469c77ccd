// Package arengine is the engine's public API: construct an Engine,
// register plugins with Use, Initialize with a preset and camera
// source, Start/Stop the frame loop, subscribe to lifecycle events,
// and query Diagnostics. The lifecycle state machine and Subscribe-
// style event surface follow the teacher's pkg/miface.Tracker
// (_examples/MiFaceDEV-miface/pkg/miface/tracker.go): idle ->
// initialized -> running -> stopped -> destroyed, guarded by a mutex,
// with Stop and Destroy idempotent and safe to call from any state.
package arengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/arkit-go/engine/internal/arerr"
	"github.com/arkit-go/engine/internal/camera"
	"github.com/arkit-go/engine/internal/config"
	"github.com/arkit-go/engine/internal/gpu"
	"github.com/arkit-go/engine/internal/pipeline"
	"github.com/arkit-go/engine/pkg/arevents"
	"github.com/arkit-go/engine/pkg/arframe"
)

// State mirrors the teacher's TrackerState: idle, initialized, running,
// stopped, destroyed.
type State int

const (
	StateIdle State = iota
	StateInitialized
	StateRunning
	StateStopped
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Config is the caller-supplied engine configuration (spec.md §6):
// a named preset plus optional tuning overrides and a camera source.
// A nil Source defaults to the emulation-backed fixture source, useful
// for headless tests and CI.
type Config struct {
	Preset config.PresetName
	Tuning *config.TuningConfig
	Source camera.Source

	// GPUOptions selects the compute backend (spec.md §4.1). The zero
	// value picks the native backend.
	GPUOptions gpu.Options

	// EnableMarkers, EnableFeatures, EnablePlanes gate the built-in
	// plugins (spec.md §6.1's per-plugin enable blocks) when Preset is
	// empty. With a Preset set, all three plugins are registered and
	// these flags cannot turn any of them off.
	EnableMarkers  bool
	EnableFeatures bool
	EnablePlanes   bool

	// Depth optionally supplies a per-frame depth map for plane
	// detection (the plane plugin's point-cloud source); nil
	// disables plane detection regardless of EnablePlanes.
	Depth pipeline.DepthProvider
}

// Engine is the top-level entry point embedders construct.
type Engine struct {
	mu    sync.Mutex
	state State

	events *arevents.Emitter
	device gpu.Device
	orch   *pipeline.Orchestrator

	pluginNames map[string]bool
	userPlugins []pipeline.Plugin
}

// New constructs an idle Engine. Register plugins with Use, then call
// Initialize.
func New() *Engine {
	return &Engine{
		state:       StateIdle,
		events:      arevents.New(),
		pluginNames: make(map[string]bool),
	}
}

// Use registers an additional plugin beyond the three built-ins
// (marker/feature/plane). A name already passed to Use is rejected
// here with CodePluginDuplicate; a name that collides with a built-in
// plugin is rejected at Initialize. Must be called before Initialize.
func (e *Engine) Use(p pipeline.Plugin) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		return arerr.New(arerr.CodeInvalidState, "arengine: Use must be called before Initialize")
	}
	if e.pluginNames[p.Name()] {
		return arerr.New(arerr.CodePluginDuplicate, "arengine: duplicate plugin name").WithContext("name", p.Name())
	}
	e.pluginNames[p.Name()] = true
	e.userPlugins = append(e.userPlugins, p)
	return nil
}

// Initialize resolves the preset, builds the GPU device and camera
// source (or uses a caller-supplied one), registers the built-in
// detector plugins, and brings the whole pipeline up (spec.md §5).
func (e *Engine) Initialize(ctx context.Context, cfg Config) error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return arerr.New(arerr.CodeAlreadyInitialized, "arengine: already initialized")
	}
	e.mu.Unlock()

	tuning := cfg.Tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	if cfg.Preset != "" {
		preset, err := config.ResolvePreset(cfg.Preset)
		if err != nil {
			return fmt.Errorf("arengine: %w", err)
		}
		tuning = config.ApplyPreset(tuning, preset)
	}

	device, err := gpu.SelectBackend(cfg.GPUOptions)
	if err != nil {
		return fmt.Errorf("arengine: gpu backend: %w", err)
	}
	e.device = device

	source := cfg.Source
	if source == nil {
		source = camera.NewFixtureSource(nil, camera.Capabilities{})
	}

	e.orch = pipeline.New(device, source, tuning, e.events)

	intrinsics := arframe.IntrinsicsFromResolution(tuning.GetCameraWidth(), tuning.GetCameraHeight(), 60)

	if cfg.EnableMarkers || cfg.Preset != "" {
		markerPlugin := pipeline.NewMarkerPlugin(tuning)
		markerPlugin.SetIntrinsics(intrinsics)
		e.orch.Use(markerPlugin)
	}
	if cfg.EnableFeatures || cfg.Preset != "" {
		e.orch.Use(pipeline.NewFeaturePlugin(tuning))
	}
	if cfg.EnablePlanes || cfg.Preset != "" {
		e.orch.Use(pipeline.NewPlanePlugin(tuning, intrinsics, cfg.Depth))
	}
	for _, p := range e.userPlugins {
		e.orch.Use(p)
	}

	if err := e.orch.Initialize(ctx); err != nil {
		return fmt.Errorf("arengine: %w", err)
	}

	e.mu.Lock()
	e.state = StateInitialized
	e.mu.Unlock()
	return nil
}

// Start begins the frame loop. onFrame, if non-nil, is invoked
// synchronously for every produced ARFrame in addition to the "frame"
// event (spec.md §5).
func (e *Engine) Start(ctx context.Context, onFrame func(*arframe.ARFrame)) error {
	e.mu.Lock()
	if e.state != StateInitialized && e.state != StateStopped {
		e.mu.Unlock()
		return arerr.New(arerr.CodeInvalidState, "arengine: Start requires Initialize first")
	}
	e.mu.Unlock()

	if err := e.orch.Start(ctx, onFrame); err != nil {
		return err
	}

	e.mu.Lock()
	e.state = StateRunning
	e.mu.Unlock()
	return nil
}

// Stop halts the frame loop. Idempotent; safe to call when not running.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	e.mu.Unlock()

	e.orch.Stop()
}

// Destroy stops the loop if needed, tears down every plugin, the
// camera, and the GPU device, and releases all tracked resources
// (spec.md §5: "after destroy the Resource Tracker reports zero
// active resources"). A second Destroy call is a no-op.
func (e *Engine) Destroy(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateDestroyed || e.state == StateIdle {
		e.mu.Unlock()
		return nil
	}
	e.state = StateDestroyed
	orch := e.orch
	e.mu.Unlock()

	if orch == nil {
		return nil
	}
	return orch.Destroy(ctx)
}

// On registers a handler for name, firing on every emission.
func (e *Engine) On(name arevents.Name, h arevents.Handler) uint64 { return e.events.On(name, h) }

// Once registers a handler that fires at most once.
func (e *Engine) Once(name arevents.Name, h arevents.Handler) uint64 { return e.events.Once(name, h) }

// Off removes a single listener.
func (e *Engine) Off(name arevents.Name, id uint64) { e.events.Off(name, id) }

// WaitForEvent blocks until name next fires or ctx is done.
func (e *Engine) WaitForEvent(ctx context.Context, name arevents.Name) (any, error) {
	return e.events.WaitForEvent(ctx, name)
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Diagnostics is a capability snapshot (spec.md §6.4). Engine.Diagnostics
// fills in Backend and, on the emulation backend, one recommendation;
// it does not fill in CameraResolution or HasHardwareSync, which stay
// at their zero values.
type Diagnostics struct {
	Backend          string
	CameraResolution [2]int
	HasHardwareSync  bool
	Recommendations  []string
}

// Diagnostics returns a capability snapshot. Must be called after
// Initialize.
func (e *Engine) Diagnostics() Diagnostics {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := Diagnostics{}
	if e.device != nil {
		d.Backend = e.device.Name()
	}
	if d.Backend == "compute-emulation" {
		d.Recommendations = append(d.Recommendations,
			"running on the emulation backend: expect reduced throughput versus native compute")
	}
	return d
}
