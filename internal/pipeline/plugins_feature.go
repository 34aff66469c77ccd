package pipeline

import (
	"context"

	"github.com/arkit-go/engine/internal/config"
	"github.com/arkit-go/engine/internal/features"
	"github.com/arkit-go/engine/internal/gpu"
	"github.com/arkit-go/engine/pkg/arframe"
)

// featurePluginResult is the typed value FeaturePlugin.Submit's Job
// returns.
type featurePluginResult struct {
	keypoints []arframe.Keypoint
	matches   []arframe.FeatureMatch
}

// FeaturePlugin wires internal/features (FAST detection, ORB
// description, ratio-test matching against the previous frame) into
// the Plugin contract. It has no tracking counterpart of its own: per
// spec.md §4.4, matches are against the immediately previous frame
// only, not a persistent multi-frame track.
type FeaturePlugin struct {
	cfg           features.ExtractorConfig
	width, height int
	extractor     *features.Extractor
}

// NewFeaturePlugin builds a FeaturePlugin from tuning config.
func NewFeaturePlugin(tuning *config.TuningConfig) *FeaturePlugin {
	return &FeaturePlugin{
		cfg: features.ExtractorConfig{
			FastThreshold: int(tuning.GetFeatureFastThreshold()),
			MaxKeypoints:  tuning.GetFeatureMaxKeypoints(),
			MatchRatio:    tuning.GetFeatureMatchRatio(),
			MaxDistance:   tuning.GetFeatureMaxDistance(),
		},
		width:  tuning.GetCameraWidth(),
		height: tuning.GetCameraHeight(),
	}
}

func (p *FeaturePlugin) Name() string           { return "feature" }
func (p *FeaturePlugin) Version() string        { return "1.0.0" }
func (p *FeaturePlugin) Priority() int          { return 20 }
func (p *FeaturePlugin) Dependencies() []string { return nil }

func (p *FeaturePlugin) Init(device gpu.Device) error {
	p.extractor = features.NewExtractor(p.cfg)
	stage, err := features.NewGPUResponseStage(device, p.width, p.height, p.cfg.FastThreshold)
	if err != nil {
		return err
	}
	p.extractor.SetGPUResponseStage(stage)
	return nil
}

func (p *FeaturePlugin) Submit(ctx context.Context, in FrameInput) (Job, error) {
	gray := in.Gray
	return func(ctx context.Context) (any, error) {
		result, err := p.extractor.ProcessGPU(ctx, gray, gray.Pix)
		if err != nil {
			return nil, err
		}
		return featurePluginResult{keypoints: result.Keypoints, matches: result.Matches}, nil
	}, nil
}

// Reset clears the extractor's retained previous-frame state, the
// GPU-error recovery path spec.md §4.4 describes.
func (p *FeaturePlugin) Reset() {
	if p.extractor != nil {
		p.extractor.Reset()
	}
}

func (p *FeaturePlugin) Destroy() error { return nil }
