package pipeline

import (
	"context"

	"github.com/arkit-go/engine/internal/config"
	"github.com/arkit-go/engine/internal/gpu"
	"github.com/arkit-go/engine/internal/markers"
	"github.com/arkit-go/engine/internal/preprocess"
	"github.com/arkit-go/engine/internal/tracking"
	"github.com/arkit-go/engine/pkg/arframe"
)

// markerPluginResult is the typed value MarkerPlugin.Submit's Job
// returns, unpacked by the orchestrator into ARFrame.Markers plus the
// marker:detected/marker:lost event payloads.
type markerPluginResult struct {
	markers       []arframe.TrackedMarker
	newlyDetected []int
	lost          []int
}

// MarkerPlugin wires internal/markers (detection) and the marker half
// of internal/tracking (lifecycle/pose smoothing) into the Plugin
// contract. Submit only thresholds the frame; contour detection,
// decoding and tracking run inside the returned Job, under the
// orchestrator's single-flight bookkeeping like every other plugin.
type MarkerPlugin struct {
	detectorCfg markers.DetectorConfig
	thresholdBlockSize int
	thresholdConstant  float64
	markerSizeMeters   float64
	width, height      int
	intrinsics         *arframe.CameraIntrinsics

	detector       *markers.Detector
	tracker        *tracking.MarkerTracker
	thresholdStage *preprocess.GPUStage
}

// NewMarkerPlugin builds a MarkerPlugin from tuning config. intrinsics
// may be nil until the camera resolution is known; pose solving is
// skipped until it is set via SetIntrinsics.
func NewMarkerPlugin(tuning *config.TuningConfig) *MarkerPlugin {
	return &MarkerPlugin{
		detectorCfg: markers.DetectorConfig{
			DictionaryGridSize: tuning.GetMarkerDictionarySize(),
			MinPerimeter:       tuning.GetMarkerMinPerimeter(),
			MaxPerimeter:       tuning.GetMarkerMaxPerimeter(),
			MaxBatchSize:       tuning.GetMarkerMaxBatchSize(),
		},
		thresholdBlockSize: tuning.GetThresholdBlockSize(),
		thresholdConstant:  tuning.GetThresholdConstant(),
		markerSizeMeters:   0.05,
		width:              tuning.GetCameraWidth(),
		height:             tuning.GetCameraHeight(),
		tracker: tracking.NewMarkerTracker(
			tracking.LifecycleConfig{
				ConfirmHits:     tuning.GetTrackingConfirmHits(),
				LossTimeout:     tuning.GetMarkerLossTimeout(),
				RemovalTimeout:  tuning.GetMarkerLossTimeout() * 4,
				ConfidenceAlpha: tuning.GetTrackingConfidenceAlpha(),
			},
			tracking.KalmanConfig{
				ProcessNoisePos:  tuning.GetTrackingProcessNoisePos(),
				ProcessNoiseVel:  tuning.GetTrackingProcessNoiseVel(),
				MeasurementNoise: tuning.GetTrackingMeasurementNoise(),
			},
		),
	}
}

// SetIntrinsics supplies the camera model once the negotiated
// resolution is known, enabling per-marker pose solving.
func (p *MarkerPlugin) SetIntrinsics(intrinsics arframe.CameraIntrinsics) {
	p.intrinsics = &intrinsics
}

func (p *MarkerPlugin) Name() string            { return "marker" }
func (p *MarkerPlugin) Version() string         { return "1.0.0" }
func (p *MarkerPlugin) Priority() int           { return 10 }
func (p *MarkerPlugin) Dependencies() []string  { return nil }

func (p *MarkerPlugin) Init(device gpu.Device) error {
	p.detector = markers.NewDetector(p.detectorCfg)
	stage, err := preprocess.NewAdaptiveThresholdStage(device, p.width, p.height, p.thresholdBlockSize, p.thresholdConstant)
	if err != nil {
		return err
	}
	p.thresholdStage = stage
	return nil
}

func (p *MarkerPlugin) Submit(ctx context.Context, in FrameInput) (Job, error) {
	binary, err := p.thresholdStage.Run(ctx, in.Gray)
	if err != nil {
		return nil, err
	}
	graySource := markers.LuminanceSource{Pix: in.Gray.Pix, Width: in.Gray.Width, Height: in.Gray.Height}

	return func(ctx context.Context) (any, error) {
		detections := p.detector.DetectFromThreshold(binary.Pix, graySource, in.Width, in.Height)

		tracked := make([]arframe.TrackedMarker, len(detections))
		for i := range detections {
			tracked[i] = detections[i].ToTrackedMarker(p.intrinsics, p.markerSizeMeters)
		}

		updated, newlyDetected, lost := p.tracker.Update(tracked)
		return markerPluginResult{markers: updated, newlyDetected: newlyDetected, lost: lost}, nil
	}, nil
}

func (p *MarkerPlugin) Destroy() error { return nil }
