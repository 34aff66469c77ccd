// Package config provides tuning-defaults loading for the engine,
// following the teacher's internal/config.TuningConfig pattern exactly:
// every field is a pointer so a partial JSON document can override only
// the fields it mentions, and a Get*() accessor on each field supplies
// the production default when the field is omitted.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the canonical tuning defaults file, the single
// source of truth for default values across presets.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig holds optional overrides for every tunable parameter in
// the detection and tracking pipeline. Fields left nil fall back to the
// Get*() default.
type TuningConfig struct {
	// Camera
	CameraWidth     *int    `json:"camera_width,omitempty"`
	CameraHeight    *int    `json:"camera_height,omitempty"`
	CameraFrameRate *int    `json:"camera_frame_rate,omitempty"`
	CameraFacing    *string `json:"camera_facing,omitempty"`

	// GPU
	GpuPowerPreference *string `json:"gpu_power_preference,omitempty"`

	// Preprocessing
	BlurKernelSize     *int     `json:"blur_kernel_size,omitempty"`
	ThresholdBlockSize *int     `json:"threshold_block_size,omitempty"`
	ThresholdConstant  *float64 `json:"threshold_constant,omitempty"`

	// Marker detection
	MarkerDictionarySize *int    `json:"marker_dictionary_size,omitempty"`
	MarkerMinPerimeter   *float64 `json:"marker_min_perimeter,omitempty"`
	MarkerMaxPerimeter   *float64 `json:"marker_max_perimeter,omitempty"`
	MarkerMaxBatchSize   *int    `json:"marker_max_batch_size,omitempty"`
	MarkerLossTimeout    *string `json:"marker_loss_timeout,omitempty"`

	// Feature detection
	FeatureFastThreshold *float64 `json:"feature_fast_threshold,omitempty"`
	FeatureMaxKeypoints  *int     `json:"feature_max_keypoints,omitempty"`
	FeatureMatchRatio    *float64 `json:"feature_match_ratio,omitempty"`
	FeatureMaxDistance   *int     `json:"feature_max_distance,omitempty"`

	// Plane detection
	PlaneRansacIterations   *int     `json:"plane_ransac_iterations,omitempty"`
	PlaneMinInliers         *int     `json:"plane_min_inliers,omitempty"`
	PlaneDistanceThreshold  *float64 `json:"plane_distance_threshold,omitempty"`
	PlaneNormalThresholdDeg *float64 `json:"plane_normal_threshold_deg,omitempty"`
	PlaneMaxPlanes          *int     `json:"plane_max_planes,omitempty"`
	PlaneRemovalTimeout     *string  `json:"plane_removal_timeout,omitempty"`

	// Tracking
	TrackingConfirmHits      *int     `json:"tracking_confirm_hits,omitempty"`
	TrackingConfidenceAlpha  *float64 `json:"tracking_confidence_alpha,omitempty"`
	TrackingProcessNoisePos  *float64 `json:"tracking_process_noise_pos,omitempty"`
	TrackingProcessNoiseVel  *float64 `json:"tracking_process_noise_vel,omitempty"`
	TrackingMeasurementNoise *float64 `json:"tracking_measurement_noise,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields nil.
func EmptyTuningConfig() *TuningConfig { return &TuningConfig{} }

// LoadTuningConfig reads and parses a JSON tuning file. The file must
// have a .json extension and be under 1MB, matching the teacher's
// LoadTuningConfig safety checks.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upward through
// parent directories the way the teacher's MustLoadDefaultConfig does so
// tests run correctly regardless of package depth. Falls back to the
// compiled-in defaults (an empty config) when the file cannot be found —
// unlike the teacher, this is a library, so a missing tuning file on an
// embedder's machine must not panic the process.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	return EmptyTuningConfig()
}

// Validate checks that any set fields hold structurally valid values.
func (c *TuningConfig) Validate() error {
	if c.CameraWidth != nil && *c.CameraWidth <= 0 {
		return fmt.Errorf("camera_width must be positive, got %d", *c.CameraWidth)
	}
	if c.CameraHeight != nil && *c.CameraHeight <= 0 {
		return fmt.Errorf("camera_height must be positive, got %d", *c.CameraHeight)
	}
	if c.MarkerLossTimeout != nil && *c.MarkerLossTimeout != "" {
		if _, err := time.ParseDuration(*c.MarkerLossTimeout); err != nil {
			return fmt.Errorf("invalid marker_loss_timeout %q: %w", *c.MarkerLossTimeout, err)
		}
	}
	if c.PlaneRemovalTimeout != nil && *c.PlaneRemovalTimeout != "" {
		if _, err := time.ParseDuration(*c.PlaneRemovalTimeout); err != nil {
			return fmt.Errorf("invalid plane_removal_timeout %q: %w", *c.PlaneRemovalTimeout, err)
		}
	}
	if c.TrackingConfidenceAlpha != nil {
		if a := *c.TrackingConfidenceAlpha; a < 0 || a > 1 {
			return fmt.Errorf("tracking_confidence_alpha must be in [0,1], got %f", a)
		}
	}
	return nil
}

// --- Get*() accessors with production defaults ---

func (c *TuningConfig) GetCameraWidth() int {
	if c.CameraWidth == nil {
		return 1280
	}
	return *c.CameraWidth
}

func (c *TuningConfig) GetCameraHeight() int {
	if c.CameraHeight == nil {
		return 720
	}
	return *c.CameraHeight
}

func (c *TuningConfig) GetCameraFrameRate() int {
	if c.CameraFrameRate == nil {
		return 60
	}
	return *c.CameraFrameRate
}

func (c *TuningConfig) GetCameraFacing() string {
	if c.CameraFacing == nil {
		return "environment"
	}
	return *c.CameraFacing
}

func (c *TuningConfig) GetGpuPowerPreference() string {
	if c.GpuPowerPreference == nil {
		return "high-performance"
	}
	return *c.GpuPowerPreference
}

func (c *TuningConfig) GetBlurKernelSize() int {
	if c.BlurKernelSize == nil {
		return 5
	}
	return *c.BlurKernelSize
}

func (c *TuningConfig) GetThresholdBlockSize() int {
	if c.ThresholdBlockSize == nil {
		return 15
	}
	return oddPositive(*c.ThresholdBlockSize)
}

func (c *TuningConfig) GetThresholdConstant() float64 {
	if c.ThresholdConstant == nil {
		return 7
	}
	return *c.ThresholdConstant
}

func (c *TuningConfig) GetMarkerDictionarySize() int {
	if c.MarkerDictionarySize == nil {
		return 4
	}
	return *c.MarkerDictionarySize
}

func (c *TuningConfig) GetMarkerMinPerimeter() float64 {
	if c.MarkerMinPerimeter == nil {
		return 80
	}
	return *c.MarkerMinPerimeter
}

func (c *TuningConfig) GetMarkerMaxPerimeter() float64 {
	if c.MarkerMaxPerimeter == nil {
		return 4000
	}
	return *c.MarkerMaxPerimeter
}

func (c *TuningConfig) GetMarkerMaxBatchSize() int {
	if c.MarkerMaxBatchSize == nil {
		return 32
	}
	return *c.MarkerMaxBatchSize
}

func (c *TuningConfig) GetMarkerLossTimeout() time.Duration {
	if c.MarkerLossTimeout == nil || *c.MarkerLossTimeout == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.MarkerLossTimeout)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

func (c *TuningConfig) GetFeatureFastThreshold() float64 {
	if c.FeatureFastThreshold == nil {
		return 20
	}
	return *c.FeatureFastThreshold
}

func (c *TuningConfig) GetFeatureMaxKeypoints() int {
	if c.FeatureMaxKeypoints == nil {
		return 500
	}
	return *c.FeatureMaxKeypoints
}

func (c *TuningConfig) GetFeatureMatchRatio() float64 {
	if c.FeatureMatchRatio == nil {
		return 0.75
	}
	return *c.FeatureMatchRatio
}

func (c *TuningConfig) GetFeatureMaxDistance() int {
	if c.FeatureMaxDistance == nil {
		return 64
	}
	return *c.FeatureMaxDistance
}

func (c *TuningConfig) GetPlaneRansacIterations() int {
	if c.PlaneRansacIterations == nil {
		return 256
	}
	return *c.PlaneRansacIterations
}

func (c *TuningConfig) GetPlaneMinInliers() int {
	if c.PlaneMinInliers == nil {
		return 150
	}
	return *c.PlaneMinInliers
}

func (c *TuningConfig) GetPlaneDistanceThreshold() float64 {
	if c.PlaneDistanceThreshold == nil {
		return 0.02
	}
	return *c.PlaneDistanceThreshold
}

func (c *TuningConfig) GetPlaneNormalThresholdDeg() float64 {
	if c.PlaneNormalThresholdDeg == nil {
		return 15
	}
	return *c.PlaneNormalThresholdDeg
}

func (c *TuningConfig) GetPlaneMaxPlanes() int {
	if c.PlaneMaxPlanes == nil {
		return 5
	}
	return *c.PlaneMaxPlanes
}

func (c *TuningConfig) GetPlaneRemovalTimeout() time.Duration {
	if c.PlaneRemovalTimeout == nil || *c.PlaneRemovalTimeout == "" {
		return 2 * time.Second
	}
	d, err := time.ParseDuration(*c.PlaneRemovalTimeout)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

func (c *TuningConfig) GetTrackingConfirmHits() int {
	if c.TrackingConfirmHits == nil {
		return 3
	}
	return *c.TrackingConfirmHits
}

func (c *TuningConfig) GetTrackingConfidenceAlpha() float64 {
	if c.TrackingConfidenceAlpha == nil {
		return 0.3
	}
	return *c.TrackingConfidenceAlpha
}

func (c *TuningConfig) GetTrackingProcessNoisePos() float64 {
	if c.TrackingProcessNoisePos == nil {
		return 0.01
	}
	return *c.TrackingProcessNoisePos
}

func (c *TuningConfig) GetTrackingProcessNoiseVel() float64 {
	if c.TrackingProcessNoiseVel == nil {
		return 0.1
	}
	return *c.TrackingProcessNoiseVel
}

func (c *TuningConfig) GetTrackingMeasurementNoise() float64 {
	if c.TrackingMeasurementNoise == nil {
		return 0.05
	}
	return *c.TrackingMeasurementNoise
}

func oddPositive(n int) int {
	if n <= 0 {
		n = 1
	}
	if n%2 == 0 {
		n++
	}
	return n
}
