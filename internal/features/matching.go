package features

import "github.com/arkit-go/engine/pkg/arframe"

// MatchConfig holds the matching thresholds from spec.md §4.4.
type MatchConfig struct {
	MaxDistance int
	RatioThreshold float64 // Lowe's ratio test, default 0.75
}

// Match computes, for every query descriptor, the best and second-best
// train descriptor by Hamming distance and accepts the pair when
// d1 <= MaxDistance and d1 <= RatioThreshold*d2 (spec.md §4.4). On a
// GPU error upstream, callers pass nil/empty slices and get back an
// empty match list, matching the package's documented failure mode.
func Match(queries, train []arframe.Descriptor, cfg MatchConfig) []arframe.FeatureMatch {
	var matches []arframe.FeatureMatch
	for qi, q := range queries {
		best, second := -1, -1
		bestDist, secondDist := 1<<30, 1<<30
		for ti, t := range train {
			d := q.HammingDistance(t)
			if d < bestDist {
				second, secondDist = best, bestDist
				best, bestDist = ti, d
			} else if d < secondDist {
				second, secondDist = ti, d
			}
		}
		if best < 0 || bestDist > cfg.MaxDistance {
			continue
		}
		if second >= 0 && float64(bestDist) > cfg.RatioThreshold*float64(secondDist) {
			continue
		}
		matches = append(matches, arframe.FeatureMatch{QueryIndex: qi, TrainIndex: best, Distance: bestDist})
	}
	return matches
}
