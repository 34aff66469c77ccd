package features

import "testing"

// cornerPatch builds a flat background with a small bright 3x3 block
// whose top-left pixel at (w/2, h/2) is a genuine FAST-12 corner: 15
// of its 16 ring pixels lie on the darker background.
func cornerPatch(w, h int) fakeGray {
	pix := make([]uint8, w*h)
	for i := range pix {
		pix[i] = 50
	}
	for y := h / 2; y < h/2+3; y++ {
		for x := w / 2; x < w/2+3; x++ {
			pix[y*w+x] = 220
		}
	}
	return fakeGray{pix: pix, width: w, height: h}
}

func TestResponseZeroOnFlatRegion(t *testing.T) {
	pix := make([]uint8, 32*32)
	for i := range pix {
		pix[i] = 100
	}
	src := fakeGray{pix: pix, width: 32, height: 32}
	if r := Response(src, 16, 16, 20); r != 0 {
		t.Errorf("expected 0 response on a flat region, got %f", r)
	}
}

func TestResponseZeroNearBorder(t *testing.T) {
	src := cornerPatch(32, 32)
	if r := Response(src, 1, 1, 20); r != 0 {
		t.Errorf("expected 0 response within the 3px border margin, got %f", r)
	}
}

func TestResponsePositiveAtCorner(t *testing.T) {
	src := cornerPatch(32, 32)
	if r := Response(src, 16, 16, 20); r <= 0 {
		t.Errorf("expected a positive response at the block corner, got %f", r)
	}
}

func TestDetectKeypointsRespectsMaxKeypoints(t *testing.T) {
	src := cornerPatch(64, 64)
	all := DetectKeypoints(src, 20, 0)
	if len(all) == 0 {
		t.Fatal("expected the corner patch to yield at least one keypoint")
	}

	capped := DetectKeypoints(src, 20, 2)
	if len(capped) > 2 {
		t.Fatalf("expected at most 2 keypoints, got %d", len(capped))
	}
	for i := 1; i < len(capped); i++ {
		if capped[i].Response > capped[i-1].Response {
			t.Fatalf("expected keypoints sorted by descending response, got %v", capped)
		}
	}
}

func TestDetectKeypointsEmptyOnFlatImage(t *testing.T) {
	pix := make([]uint8, 32*32)
	for i := range pix {
		pix[i] = 100
	}
	src := fakeGray{pix: pix, width: 32, height: 32}
	if kps := DetectKeypoints(src, 20, 0); len(kps) != 0 {
		t.Errorf("expected no keypoints on a flat image, got %d", len(kps))
	}
}
