package markers

import (
	"github.com/arkit-go/engine/internal/spatialmath"
)

// CanonicalPatchSize is the resolution the quad interior is warped to
// before border verification and bit sampling (spec.md §4.3).
const CanonicalPatchSize = 32

// grayscaleSource is the minimal pixel-read contract warp needs.
type grayscaleSource interface {
	At(x, y int) uint8
	Dims() (int, int)
}

// LuminanceSource adapts a preprocess.Luminance-shaped value (Pix,
// Width, Height) without importing the preprocess package, keeping
// markers free of an upward dependency on the stage that feeds it.
type LuminanceSource struct {
	Pix           []uint8
	Width, Height int
}

func (l LuminanceSource) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return 0
	}
	return l.Pix[y*l.Width+x]
}

func (l LuminanceSource) Dims() (int, int) { return l.Width, l.Height }

// WarpPatch samples a CanonicalPatchSize x CanonicalPatchSize square
// patch out of src using the inverse of a homography mapping the
// canonical unit square [0,1]x[0,1] to quad's image-space corners —
// i.e. for every destination pixel we map forward through H to find
// the source sample location, the standard inverse-warp technique.
func WarpPatch(src grayscaleSource, quad [4]spatialmath.Vec2) (*LuminanceSource, error) {
	unitSquare := [4]spatialmath.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	h, err := spatialmath.ComputeHomography(unitSquare, quad)
	if err != nil {
		return nil, err
	}

	out := &LuminanceSource{Pix: make([]uint8, CanonicalPatchSize*CanonicalPatchSize), Width: CanonicalPatchSize, Height: CanonicalPatchSize}
	for y := 0; y < CanonicalPatchSize; y++ {
		v := (float64(y) + 0.5) / CanonicalPatchSize
		for x := 0; x < CanonicalPatchSize; x++ {
			u := (float64(x) + 0.5) / CanonicalPatchSize
			sp := h.Apply(spatialmath.Vec2{X: u, Y: v})
			out.Pix[y*CanonicalPatchSize+x] = bilinearSample(src, sp.X, sp.Y)
		}
	}
	return out, nil
}

func bilinearSample(src grayscaleSource, x, y float64) uint8 {
	w, h := src.Dims()
	if x < 0 || y < 0 || x >= float64(w-1) || y >= float64(h-1) {
		if x < 0 {
			x = 0
		}
		if y < 0 {
			y = 0
		}
		if int(x) >= w {
			x = float64(w - 1)
		}
		if int(y) >= h {
			y = float64(h - 1)
		}
		return src.At(int(x), int(y))
	}
	x0, y0 := int(x), int(y)
	fx, fy := x-float64(x0), y-float64(y0)

	p00 := float64(src.At(x0, y0))
	p10 := float64(src.At(x0+1, y0))
	p01 := float64(src.At(x0, y0+1))
	p11 := float64(src.At(x0+1, y0+1))

	top := p00*(1-fx) + p10*fx
	bottom := p01*(1-fx) + p11*fx
	return uint8(top*(1-fy) + bottom*fy + 0.5)
}

// VerifyBorder checks that at least 75% of the outer ring of a
// canonical patch sits below the mid-intensity threshold (127), the
// black-border sanity check spec.md §4.3 requires before bit sampling.
func VerifyBorder(patch *LuminanceSource) bool {
	const threshold = 127
	total, dark := 0, 0
	n := patch.Width
	for i := 0; i < n; i++ {
		for _, p := range [][2]int{{i, 0}, {i, n - 1}, {0, i}, {n - 1, i}} {
			total++
			if patch.At(p[0], p[1]) < threshold {
				dark++
			}
		}
	}
	return float64(dark)/float64(total) >= 0.75
}

// SampleBitGrid reads a gridSize x gridSize grid of bits from the
// patch's interior (excluding the border ring), thresholding each
// cell's mean intensity at 127 (spec.md §4.3). Bits are packed
// row-major, cell 0 in the lowest bit.
func SampleBitGrid(patch *LuminanceSource, gridSize int) uint64 {
	const threshold = 127
	// The interior spans the patch excluding a 1-cell border on every
	// side, divided into gridSize cells.
	interior := patch.Width - 2*(patch.Width/(gridSize+2))
	cellSize := patch.Width / (gridSize + 2)
	offset := cellSize

	var code uint64
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			sum, count := 0, 0
			y0 := offset + r*cellSize
			x0 := offset + c*cellSize
			for dy := 0; dy < cellSize; dy++ {
				for dx := 0; dx < cellSize; dx++ {
					sum += int(patch.At(x0+dx, y0+dy))
					count++
				}
			}
			mean := sum / maxInt(count, 1)
			if mean >= threshold {
				code |= 1 << uint(r*gridSize+c)
			}
		}
	}
	_ = interior
	return code
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
