package pipeline

import (
	"context"

	"github.com/arkit-go/engine/internal/config"
	"github.com/arkit-go/engine/internal/gpu"
	"github.com/arkit-go/engine/internal/planes"
	"github.com/arkit-go/engine/internal/tracking"
	"github.com/arkit-go/engine/pkg/arframe"
)

// planePluginResult is the typed value PlanePlugin.Submit's Job
// returns.
type planePluginResult struct {
	planes  []arframe.DetectedPlane
	removed []int
}

// DepthProvider supplies the current frame's depth map, for cameras
// with a depth sensor or a fused stereo/LiDAR backend. ok is false
// when no depth is available for this frame (e.g. a plain RGB
// camera), in which case PlanePlugin detects no new planes that frame
// (planes already tracked are still reported until they time out)
// rather than fabricating a cloud, matching spec.md §4.5's stated
// input contract ("a 3D point cloud, unprojected from depth or
// reconstructed from keypoint triangulation") — triangulation from
// matched features is a documented extension point, not yet wired.
type DepthProvider func() (dm planes.DepthMap, ok bool)

// PlanePlugin wires internal/planes (normal estimation, RANSAC
// fitting, dedup, boundary extraction) and the plane half of
// internal/tracking into the Plugin contract.
type PlanePlugin struct {
	detectorCfg planes.DetectorConfig
	matchRule   tracking.PlaneMatchRule
	lifecycle   tracking.LifecycleConfig
	intrinsics  planes.CameraIntrinsics
	depthStride int
	depth       DepthProvider

	detector *planes.Detector
	tracker  *tracking.PlaneTracker
}

// NewPlanePlugin builds a PlanePlugin from tuning config. depth may be
// nil, in which case the plugin never produces planes.
func NewPlanePlugin(tuning *config.TuningConfig, intrinsics arframe.CameraIntrinsics, depth DepthProvider) *PlanePlugin {
	return &PlanePlugin{
		detectorCfg: planes.DetectorConfig{
			RANSAC: planes.RANSACConfig{
				Iterations:            tuning.GetPlaneRansacIterations(),
				DistanceThreshold:     tuning.GetPlaneDistanceThreshold(),
				NormalThresholdDeg:    tuning.GetPlaneNormalThresholdDeg(),
				EarlyTerminationRatio: 0.8,
				MinInliers:            tuning.GetPlaneMinInliers(),
			},
			Dedup:             planes.DefaultDedupRule,
			MaxPlanes:         tuning.GetPlaneMaxPlanes(),
			BoundaryTolerance: 0.10,
		},
		matchRule: tracking.DefaultPlaneMatchRule,
		lifecycle: tracking.LifecycleConfig{
			ConfirmHits:     tuning.GetTrackingConfirmHits(),
			LossTimeout:     tuning.GetPlaneRemovalTimeout() / 2,
			RemovalTimeout:  tuning.GetPlaneRemovalTimeout(),
			ConfidenceAlpha: tuning.GetTrackingConfidenceAlpha(),
		},
		intrinsics:  planes.CameraIntrinsics{Fx: intrinsics.Fx, Fy: intrinsics.Fy, Cx: intrinsics.Cx, Cy: intrinsics.Cy},
		depthStride: 4,
		depth:       depth,
	}
}

func (p *PlanePlugin) Name() string           { return "plane" }
func (p *PlanePlugin) Version() string        { return "1.0.0" }
func (p *PlanePlugin) Priority() int          { return 30 }
func (p *PlanePlugin) Dependencies() []string { return nil }

// Init does not dispatch RANSAC fitting through device: each trial's
// early-termination check depends on the previous trial's inlier count,
// so the fit loop is a sequential reduction rather than independent
// per-trial work a compute pass would help with (see
// internal/planes.FitRANSAC and SPEC_FULL.md's Open Questions).
func (p *PlanePlugin) Init(device gpu.Device) error {
	p.detector = planes.NewDetector(p.detectorCfg, 1)
	p.tracker = tracking.NewPlaneTracker(p.lifecycle, p.matchRule)
	return nil
}

func (p *PlanePlugin) Submit(ctx context.Context, in FrameInput) (Job, error) {
	if p.depth == nil {
		return func(ctx context.Context) (any, error) {
			tracked, removed := p.tracker.Update(nil)
			return planePluginResult{planes: tracked, removed: removed}, nil
		}, nil
	}
	dm, ok := p.depth()
	if !ok {
		return func(ctx context.Context) (any, error) {
			tracked, removed := p.tracker.Update(nil)
			return planePluginResult{planes: tracked, removed: removed}, nil
		}, nil
	}

	return func(ctx context.Context) (any, error) {
		cloud := planes.CloudFromDepthMap(dm, p.intrinsics, p.depthStride)
		candidates := p.detector.Detect(cloud)
		tracked, removed := p.tracker.Update(candidates)
		return planePluginResult{planes: tracked, removed: removed}, nil
	}, nil
}

func (p *PlanePlugin) Destroy() error { return nil }
