package features

import (
	"context"

	"github.com/arkit-go/engine/pkg/arframe"
)

// ExtractorConfig mirrors the feature_* tuning fields from spec.md §6.1.
type ExtractorConfig struct {
	FastThreshold int
	MaxKeypoints  int
	MatchRatio    float64
	MaxDistance   int
}

// Extractor runs FAST detection, ORB description, and ratio-test
// matching against the previous frame's descriptors, the same
// detect/describe/associate shape as markers.Detector but for sparse
// points instead of fiducials.
type Extractor struct {
	cfg ExtractorConfig

	prevKeypoints   []arframe.Keypoint
	prevDescriptors []arframe.Descriptor

	responseStage *GPUResponseStage
}

// SetGPUResponseStage wires a GPUResponseStage into the extractor so
// ProcessGPU dispatches corner-response computation through the
// Device contract instead of running DetectKeypoints inline.
func (e *Extractor) SetGPUResponseStage(stage *GPUResponseStage) {
	e.responseStage = stage
}

// NewExtractor builds an Extractor with no retained previous frame.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Result is one frame's keypoints, descriptors, and matches against
// the previously processed frame.
type Result struct {
	Keypoints   []arframe.Keypoint
	Descriptors []arframe.Descriptor
	Matches     []arframe.FeatureMatch
}

// Process runs the full pipeline over a grayscale frame and retains
// its output as the "previous frame" for the next call's matching
// step. On any panic-worthy GPU failure upstream, callers should call
// Reset instead of Process so matching doesn't pair against stale data
// (spec.md §4.4's failure semantics).
func (e *Extractor) Process(src grayscaleSource) Result {
	keypoints := DetectKeypoints(src, e.cfg.FastThreshold, e.cfg.MaxKeypoints)
	return e.finish(src, keypoints)
}

// ProcessGPU behaves like Process but, when a GPUResponseStage has
// been wired in via SetGPUResponseStage, dispatches the corner
// response computation through the Device contract instead of running
// it inline on the CPU. pix must be src's backing grayscale buffer.
func (e *Extractor) ProcessGPU(ctx context.Context, src grayscaleSource, pix []byte) (Result, error) {
	if e.responseStage == nil {
		return e.Process(src), nil
	}
	responses, err := e.responseStage.Run(ctx, pix)
	if err != nil {
		return Result{}, err
	}
	keypoints := DetectKeypointsFromResponses(src, responses, e.cfg.MaxKeypoints)
	return e.finish(src, keypoints), nil
}

func (e *Extractor) finish(src grayscaleSource, keypoints []arframe.Keypoint) Result {
	descriptors := DescribeAll(src, keypoints)

	var matches []arframe.FeatureMatch
	if len(e.prevDescriptors) > 0 {
		matches = Match(descriptors, e.prevDescriptors, MatchConfig{
			MaxDistance:    e.cfg.MaxDistance,
			RatioThreshold: e.cfg.MatchRatio,
		})
	}

	e.prevKeypoints = keypoints
	e.prevDescriptors = descriptors

	return Result{Keypoints: keypoints, Descriptors: descriptors, Matches: matches}
}

// Reset clears retained frame state, the features package's GPU-error
// recovery path (spec.md §4.4: "the current keypoint/descriptor
// arrays are cleared and an empty match list returned").
func (e *Extractor) Reset() {
	e.prevKeypoints = nil
	e.prevDescriptors = nil
}
