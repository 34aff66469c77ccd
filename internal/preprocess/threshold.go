package preprocess

// AdaptiveThreshold produces a binary image using a local-mean-minus-
// constant rule, matching OpenCV's ADAPTIVE_THRESH_MEAN_C: a pixel is
// set (255) when it is brighter than the mean of its blockSize x
// blockSize neighborhood minus constant, per spec.md §4.2 (default
// blockSize 15, constant 7). blockSize is clamped to the nearest odd
// value >= 3.
func AdaptiveThreshold(src *Luminance, blockSize int, constant float64) *Luminance {
	if blockSize < 3 {
		blockSize = 3
	}
	if blockSize%2 == 0 {
		blockSize++
	}
	radius := blockSize / 2

	integral := buildIntegralImage(src)
	out := NewLuminance(src.Width, src.Height)

	for y := 0; y < src.Height; y++ {
		y0 := clampInt(y-radius, 0, src.Height-1)
		y1 := clampInt(y+radius, 0, src.Height-1)
		for x := 0; x < src.Width; x++ {
			x0 := clampInt(x-radius, 0, src.Width-1)
			x1 := clampInt(x+radius, 0, src.Width-1)

			count := (x1 - x0 + 1) * (y1 - y0 + 1)
			sum := integral.sumRegion(x0, y0, x1, y1)
			mean := float64(sum) / float64(count)

			idx := y*src.Width + x
			if float64(src.Pix[idx]) > mean-constant {
				out.Pix[idx] = 255
			} else {
				out.Pix[idx] = 0
			}
		}
	}
	return out
}

// integralImage is a summed-area table used so AdaptiveThreshold's
// per-pixel neighborhood mean is O(1) instead of O(blockSize^2).
type integralImage struct {
	sums          []int64
	width, height int
}

func buildIntegralImage(src *Luminance) *integralImage {
	w, h := src.Width, src.Height
	sums := make([]int64, (w+1)*(h+1))
	stride := w + 1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sums[(y+1)*stride+(x+1)] = int64(src.At(x, y)) +
				sums[y*stride+(x+1)] + sums[(y+1)*stride+x] - sums[y*stride+x]
		}
	}
	return &integralImage{sums: sums, width: w, height: h}
}

func (ii *integralImage) sumRegion(x0, y0, x1, y1 int) int64 {
	stride := ii.width + 1
	a := ii.sums[y0*stride+x0]
	b := ii.sums[y0*stride+(x1+1)]
	c := ii.sums[(y1+1)*stride+x0]
	d := ii.sums[(y1+1)*stride+(x1+1)]
	return d - b - c + a
}
