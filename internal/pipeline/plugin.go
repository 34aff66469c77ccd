// Package pipeline implements the per-frame orchestrator (spec.md
// §4.7): it owns the camera source, GPU device, preprocessing stage,
// and an ordered list of detector plugins, drives ProcessFrame each
// tick, and runs each plugin's post-readback CPU work as an
// at-most-one-concurrent-job (single-flight), exporting the previous
// completed result with a one-frame lag while a job is in flight
// (spec.md §5). The stage-interface/single-flight shape is grounded on
// the teacher's internal/lidar/pipeline tracking_pipeline.go stage
// design and its MaxFrameRate budget accounting.
package pipeline

import (
	"context"

	"github.com/arkit-go/engine/internal/gpu"
	"github.com/arkit-go/engine/internal/preprocess"
)

// FrameInput is what a plugin's Submit receives: the current frame's
// preprocessed grayscale image and its GPU device handle, so plugins
// that need a compute dispatch (native backend) can still use one.
type FrameInput struct {
	Sequence  uint64
	Timestamp int64
	Width, Height int
	Gray      *preprocess.Luminance
	Device    gpu.Device
}

// Job is the CPU work a plugin defers until after GPU readback. The
// orchestrator runs at most one Job per plugin concurrently.
type Job func(ctx context.Context) (any, error)

// Plugin is a detector registered with the engine (spec.md §4.7:
// "Each plugin declares name, version, priority ... and an optional
// set of plugin-name dependencies").
type Plugin interface {
	Name() string
	Version() string
	Priority() int
	Dependencies() []string

	// Init runs once during Orchestrator.Initialize, in topological
	// order, so a plugin can assume its dependencies already
	// initialized.
	Init(device gpu.Device) error

	// Submit records this frame's GPU work (if any) and returns a Job
	// for the CPU-side work to run, possibly asynchronously. A plugin
	// with no async work may run its CPU step inline and return a Job
	// that just returns the already-computed result.
	Submit(ctx context.Context, in FrameInput) (Job, error)

	Destroy() error
}

// pluginSlot tracks one plugin's single-flight job state across
// frames.
type pluginSlot struct {
	plugin     Plugin
	inFlight   bool
	lastResult any
	lastErr    error
	done       chan struct{}
}

func newPluginSlot(p Plugin) *pluginSlot {
	return &pluginSlot{plugin: p}
}

// runFrame launches a new Job for this plugin if none is in flight,
// and always returns the most recently completed result (which may be
// this frame's, if synchronous, or a prior frame's, if the job is
// still running — the one-frame-lag behavior spec.md §4.7 requires).
// stale reports whether the returned result predates this frame.
func (s *pluginSlot) runFrame(ctx context.Context, in FrameInput) (result any, stale bool, err error) {
	job, submitErr := s.plugin.Submit(ctx, in)
	if submitErr != nil {
		return s.lastResult, true, submitErr
	}
	if job == nil {
		return s.lastResult, true, nil
	}

	if s.inFlight {
		// Previous instance still running: skip scheduling new work,
		// export the last completed result (spec.md §5).
		return s.lastResult, true, nil
	}

	s.inFlight = true
	done := make(chan struct{})
	s.done = done
	go func() {
		defer close(done)
		res, jobErr := job(ctx)
		s.lastResult, s.lastErr = res, jobErr
		s.inFlight = false
	}()

	// The select does not wait: only a job that has already finished by
	// this point returns this frame's result as fresh. Otherwise the
	// last completed result is returned marked stale, and a later frame
	// picks up this job's result once it is done.
	select {
	case <-done:
		return s.lastResult, false, s.lastErr
	case <-ctx.Done():
		return s.lastResult, true, ctx.Err()
	default:
		return s.lastResult, true, nil
	}
}

// waitIdle blocks until no job is in flight or ctx is done, used by
// Destroy (spec.md §5: "destroy additionally waits for any pending
// detector job to finish or timeout").
func (s *pluginSlot) waitIdle(ctx context.Context) {
	if !s.inFlight || s.done == nil {
		return
	}
	select {
	case <-s.done:
	case <-ctx.Done():
	}
}
