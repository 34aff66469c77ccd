package markers

import "testing"

func TestDictionaryMatchDecodesAllFourRotations(t *testing.T) {
	d := NewDictionary(Dict4x4Size, 1, 5)
	if len(d.codes) != 1 {
		t.Fatalf("expected exactly 1 generated code, got %d", len(d.codes))
	}
	rots := d.codes[0]
	for steps, sampled := range rots {
		id, rotationSteps, hamming, ok := d.Match(sampled)
		if !ok {
			t.Fatalf("rotation %d: Match failed to decode an exact rotation of its own code", steps)
		}
		if id != 0 {
			t.Errorf("rotation %d: id = %d, want 0", steps, id)
		}
		if hamming != 0 {
			t.Errorf("rotation %d: hamming = %d, want 0 for an exact match", steps, hamming)
		}
		if rotationSteps != steps*90 {
			t.Errorf("rotation %d: rotationSteps = %d, want %d", steps, rotationSteps, steps*90)
		}
	}
}

func TestDictionaryMatchHammingFlipBoundary(t *testing.T) {
	d := NewDictionary(Dict4x4Size, 1, 5)
	code := d.codes[0][0]
	if d.MaxHammingDistance != 2 {
		t.Fatalf("expected MaxHammingDistance 2 for a 4x4 grid (16 bits / 8), got %d", d.MaxHammingDistance)
	}

	accept := []uint64{
		code ^ (1 << 0),
		code ^ (1<<0 | 1<<1),
	}
	for i, sampled := range accept {
		if _, _, hamming, ok := d.Match(sampled); !ok {
			t.Errorf("flip %d: expected Match to accept a %d-bit flip (<=MaxHammingDistance), hamming reported %d", i+1, i+1, hamming)
		}
	}

	reject := code ^ (1<<0 | 1<<1 | 1<<2)
	if _, _, hamming, ok := d.Match(reject); ok {
		t.Errorf("expected Match to reject a 3-bit flip beyond MaxHammingDistance, got accepted with hamming %d", hamming)
	}
}

func TestDictionaryMatchUnrelatedCodeRejected(t *testing.T) {
	d := NewDictionary(Dict4x4Size, 1, 5)
	// Flip every bit: maximal distance from every rotation of the only code.
	flipped := d.codes[0][0] ^ 0xFFFF
	if _, _, _, ok := d.Match(flipped); ok {
		t.Error("expected Match to reject a code with no close dictionary entry")
	}
}

func TestRotate90IsOrderFourOnASquareGrid(t *testing.T) {
	code := uint64(0b1011_0010_0100_1101)
	r1 := rotate90(code, 4)
	r2 := rotate90(r1, 4)
	r3 := rotate90(r2, 4)
	r4 := rotate90(r3, 4)
	if r4 != code {
		t.Errorf("four 90-degree rotations should return the original code, got %016b want %016b", r4, code)
	}
	if r1 == code {
		t.Error("a single 90-degree rotation of an asymmetric code should differ from the original")
	}
}

func TestPackGridMatchesBitAtConvention(t *testing.T) {
	bits := []int{1, 0, 0, 1}
	code := PackGrid(bits, 2)
	if bitAt(code, 0) != 1 || bitAt(code, 1) != 0 || bitAt(code, 2) != 0 || bitAt(code, 3) != 1 {
		t.Errorf("PackGrid/bitAt round trip mismatch for code %04b", code)
	}
}
