package features

import (
	"testing"

	"github.com/arkit-go/engine/pkg/arframe"
)

// descriptorWithBits returns a descriptor with its lowest n bits set,
// so two descriptors built from nearby n values sit at a known Hamming
// distance from the all-zero descriptor.
func descriptorWithBits(n int) arframe.Descriptor {
	var d arframe.Descriptor
	for i := 0; i < n; i++ {
		d[i/64] |= 1 << uint(i%64)
	}
	return d
}

func TestMatchAcceptsCloseBestCandidate(t *testing.T) {
	q := descriptorWithBits(0)
	nearby := descriptorWithBits(1) // Hamming distance 1 from q
	far := descriptorWithBits(200)  // Hamming distance 200 from q

	matches := Match([]arframe.Descriptor{q}, []arframe.Descriptor{far, nearby}, MatchConfig{
		MaxDistance:    64,
		RatioThreshold: 0.75,
	})
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].TrainIndex != 1 {
		t.Errorf("expected the close descriptor (index 1) to win, got index %d", matches[0].TrainIndex)
	}
	if matches[0].Distance != 1 {
		t.Errorf("expected distance 1, got %d", matches[0].Distance)
	}
}

func TestMatchRejectsBeyondMaxDistance(t *testing.T) {
	q := descriptorWithBits(0)
	train := descriptorWithBits(100)

	matches := Match([]arframe.Descriptor{q}, []arframe.Descriptor{train}, MatchConfig{
		MaxDistance:    64,
		RatioThreshold: 0.75,
	})
	if len(matches) != 0 {
		t.Fatalf("expected no match beyond MaxDistance, got %v", matches)
	}
}

func TestMatchRejectsAmbiguousRatio(t *testing.T) {
	q := descriptorWithBits(0)
	// Two train descriptors at nearly identical distance from q: the
	// ratio test should reject the pair as ambiguous.
	a := descriptorWithBits(10)
	b := descriptorWithBits(11)

	matches := Match([]arframe.Descriptor{q}, []arframe.Descriptor{a, b}, MatchConfig{
		MaxDistance:    64,
		RatioThreshold: 0.75,
	})
	if len(matches) != 0 {
		t.Fatalf("expected the ambiguous best/second-best pair to be rejected, got %v", matches)
	}
}

func TestMatchEmptyInputsYieldNoMatches(t *testing.T) {
	if matches := Match(nil, nil, MatchConfig{MaxDistance: 64, RatioThreshold: 0.75}); len(matches) != 0 {
		t.Errorf("expected no matches for empty inputs, got %v", matches)
	}
}
