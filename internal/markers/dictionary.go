package markers

import "math/bits"

// Dictionary is a fixed set of binary marker codes, one per ID, each
// gridSize x gridSize bits. Each entry stores all 4 rotations of its
// code (see rotations) so decode can search all orientations
// (spec.md §4.3).
type Dictionary struct {
	GridSize int
	MaxHammingDistance int
	codes    [][4]uint64 // codes[id][rotation] packed row-major, cell 0 in the least significant bit
}

// bitAt/setBit operate on a gridSize*gridSize-bit code packed into a
// single uint64 word (gridSize <= 8, so at most 64 bits).
func bitAt(code uint64, idx int) int {
	return int((code >> uint(idx)) & 1)
}

// rotate90 rotates a gridSize x gridSize bit grid 90 degrees clockwise.
func rotate90(code uint64, gridSize int) uint64 {
	var out uint64
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			srcIdx := r*gridSize + c
			if bitAt(code, srcIdx) == 0 {
				continue
			}
			// (r,c) -> (c, gridSize-1-r) under clockwise rotation.
			nr, nc := c, gridSize-1-r
			dstIdx := nr*gridSize + nc
			out |= 1 << uint(dstIdx)
		}
	}
	return out
}

// NewDictionary builds a deterministic dictionary of nMarkers codes
// over a gridSize x gridSize bit grid, generated with a splitmix64
// stream seeded by (gridSize, nMarkers) and accepted only when its
// minimum Hamming distance to every already-accepted code (across all
// 4 rotations) is at least minDistance. If no acceptable code turns up
// within 10,000 draws, that id is skipped, so the result can hold
// fewer than nMarkers codes. This reproduces the structural
// contract of OpenCV's predefined dictionaries (fixed grid size,
// guaranteed inter-code separation) without requiring OpenCV's exact
// byte tables (DESIGN.md records this decision).
func NewDictionary(gridSize, nMarkers, minDistance int) *Dictionary {
	d := &Dictionary{
		GridSize:           gridSize,
		MaxHammingDistance: (gridSize * gridSize) / 8,
	}
	bitCount := gridSize * gridSize
	seed := uint64(gridSize)*1_000_003 + uint64(nMarkers)*97 + 1

	for id := 0; id < nMarkers; id++ {
		for attempt := 0; attempt < 10_000; attempt++ {
			seed = splitmix64(seed)
			code := seed & ((1 << uint(bitCount)) - 1)
			if bitCount == 64 {
				code = seed
			}
			if d.farEnoughFromAll(code, gridSize, minDistance) {
				d.codes = append(d.codes, rotations(code, gridSize))
				break
			}
		}
	}
	return d
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	z := x
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func rotations(code uint64, gridSize int) [4]uint64 {
	var r [4]uint64
	r[0] = code
	for i := 1; i < 4; i++ {
		r[i] = rotate90(r[i-1], gridSize)
	}
	return r
}

func (d *Dictionary) farEnoughFromAll(code uint64, gridSize, minDistance int) bool {
	cand := rotations(code, gridSize)
	for _, existing := range d.codes {
		for _, c := range cand {
			for _, e := range existing {
				if bits.OnesCount64(c^e) < minDistance {
					return false
				}
			}
		}
	}
	return true
}

// Match finds the dictionary entry whose best rotation has the
// smallest Hamming distance to sampled, accepting only if that
// distance is within MaxHammingDistance (spec.md §4.3). Returns
// (id, rotationDegrees, hamming, true) on success, where
// rotationDegrees is 0, 90, 180 or 270.
func (d *Dictionary) Match(sampled uint64) (id int, rotationDegrees int, hamming int, ok bool) {
	bestDist := 1 << 30
	bestID, bestRot := -1, 0
	for i, code := range d.codes {
		for rot, c := range code {
			dist := bits.OnesCount64(c ^ sampled)
			if dist < bestDist {
				bestDist = dist
				bestID = i
				bestRot = rot
			}
		}
	}
	if bestID < 0 || bestDist > d.MaxHammingDistance {
		return 0, 0, bestDist, false
	}
	return bestID, bestRot * 90, bestDist, true
}

// PackGrid packs a row-major gridSize x gridSize bit slice (0/1 per
// cell) into a single uint64 code.
func PackGrid(bits []int, gridSize int) uint64 {
	var code uint64
	for i, b := range bits {
		if b != 0 {
			code |= 1 << uint(i)
		}
		_ = gridSize
	}
	return code
}

// Standard dictionary sizes named in spec.md §4.3.
const (
	Dict4x4Size = 4
	Dict5x5Size = 5
	Dict6x6Size = 6
)

// Dict4x450 mirrors OpenCV's DICT_4X4_50 capacity and grid size.
func Dict4x450() *Dictionary { return NewDictionary(Dict4x4Size, 50, 4) }

// Dict5x5100 mirrors OpenCV's DICT_5X5_100 capacity and grid size.
func Dict5x5100() *Dictionary { return NewDictionary(Dict5x5Size, 100, 6) }

// Dict6x6250 mirrors OpenCV's DICT_6X6_250 capacity and grid size.
func Dict6x6250() *Dictionary { return NewDictionary(Dict6x6Size, 250, 7) }
