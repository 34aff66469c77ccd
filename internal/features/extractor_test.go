package features

import "testing"

func testExtractorConfig() ExtractorConfig {
	return ExtractorConfig{FastThreshold: 20, MaxKeypoints: 50, MatchRatio: 0.9, MaxDistance: 200}
}

func TestExtractorFirstFrameHasNoMatches(t *testing.T) {
	e := NewExtractor(testExtractorConfig())
	result := e.Process(cornerPatch(64, 64))
	if len(result.Matches) != 0 {
		t.Errorf("expected no matches on the first processed frame, got %v", result.Matches)
	}
	if len(result.Keypoints) == 0 {
		t.Fatal("expected the corner patch to yield keypoints")
	}
}

func TestExtractorMatchesAcrossIdenticalFrames(t *testing.T) {
	e := NewExtractor(testExtractorConfig())
	src := cornerPatch(64, 64)

	first := e.Process(src)
	second := e.Process(src)

	if len(first.Keypoints) == 0 {
		t.Fatal("expected keypoints on the first frame")
	}
	if len(second.Matches) == 0 {
		t.Fatal("expected identical consecutive frames to produce matches")
	}
}

func TestExtractorResetClearsPreviousFrame(t *testing.T) {
	e := NewExtractor(testExtractorConfig())
	src := cornerPatch(64, 64)

	e.Process(src)
	e.Reset()
	result := e.Process(src)
	if len(result.Matches) != 0 {
		t.Errorf("expected Reset to clear retained state so matching has nothing to pair against, got %v", result.Matches)
	}
}
