package config

import "fmt"

// PresetName is one of the five named presets from spec.md §6.1.
type PresetName string

const (
	PresetMobile       PresetName = "mobile"
	PresetDesktop      PresetName = "desktop"
	PresetHighQuality  PresetName = "high-quality"
	PresetLowLatency   PresetName = "low-latency"
	PresetBatterySaver PresetName = "battery-saver"
)

// Preset is the expanded camera+gpu+detector configuration a preset name
// resolves to, per the table in spec.md §6.1.
type Preset struct {
	Name               PresetName
	Width, Height      int
	FrameRate          int
	PowerPreference    string
	RansacIterations   int
	MinInliers         int
}

// presetTable holds the five presets exactly as specified.
var presetTable = map[PresetName]Preset{
	PresetMobile: {
		Name: PresetMobile, Width: 640, Height: 480, FrameRate: 30,
		PowerPreference: "low-power", RansacIterations: 128, MinInliers: 100,
	},
	PresetDesktop: {
		Name: PresetDesktop, Width: 1280, Height: 720, FrameRate: 60,
		PowerPreference: "high-performance", RansacIterations: 256, MinInliers: 150,
	},
	PresetHighQuality: {
		Name: PresetHighQuality, Width: 1920, Height: 1080, FrameRate: 60,
		PowerPreference: "high-performance", RansacIterations: 512, MinInliers: 200,
	},
	PresetLowLatency: {
		Name: PresetLowLatency, Width: 640, Height: 480, FrameRate: 120,
		PowerPreference: "high-performance", RansacIterations: 64, MinInliers: 50,
	},
	PresetBatterySaver: {
		Name: PresetBatterySaver, Width: 480, Height: 360, FrameRate: 15,
		PowerPreference: "low-power", RansacIterations: 64, MinInliers: 50,
	},
}

// ResolvePreset looks up a preset by name.
func ResolvePreset(name PresetName) (Preset, error) {
	p, ok := presetTable[name]
	if !ok {
		return Preset{}, fmt.Errorf("config: unknown preset %q", name)
	}
	return p, nil
}

// ApplyPreset overlays a preset's values onto a TuningConfig, returning a
// new TuningConfig that Get*() accessors will read the preset's values
// from. Per-plugin blocks supplied separately by the caller still take
// precedence, the same layering the teacher uses when a runtime JSON
// partial overrides DefaultTrackerConfig.
func ApplyPreset(base *TuningConfig, preset Preset) *TuningConfig {
	cfg := *base
	cfg.CameraWidth = ptrInt(preset.Width)
	cfg.CameraHeight = ptrInt(preset.Height)
	cfg.CameraFrameRate = ptrInt(preset.FrameRate)
	cfg.GpuPowerPreference = ptrString(preset.PowerPreference)
	cfg.PlaneRansacIterations = ptrInt(preset.RansacIterations)
	cfg.PlaneMinInliers = ptrInt(preset.MinInliers)
	return &cfg
}

func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }
