package gpu

// PowerPreference mirrors the WebGPU adapter request hint
// (spec.md §6.1's gpu.power_preference config field).
type PowerPreference string

const (
	PowerPreferenceLowPower        PowerPreference = "low-power"
	PowerPreferenceHighPerformance PowerPreference = "high-performance"
)

// Options configures backend selection.
type Options struct {
	PowerPreference PowerPreference
	// ForceEmulation skips native-backend probing, used by tests and
	// by callers who already know the host lacks compute support.
	ForceEmulation bool
}

// SelectBackend returns the emulation backend when opts.ForceEmulation
// is set and the native compute backend otherwise. Neither CPU-backed
// backend can fail to construct, so the returned error is always nil
// and ErrGPUUnavailable is never returned here.
func SelectBackend(opts Options) (Device, error) {
	if opts.ForceEmulation {
		return NewEmulationBackend(), nil
	}
	return NewNativeComputeBackend(), nil
}
