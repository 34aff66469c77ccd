package planes

import (
	"math"
	"sort"
)

// DedupRule is the within-frame similarity test spec.md §4.5 uses to
// reject a RANSAC candidate as a duplicate of one already accepted:
// cosine of the normal angle above NormalCosThreshold AND |Δd| below
// DistanceThreshold. This is a tighter rule than the tracked-plane
// matching rule in internal/tracking (0.95/0.1m here vs 0.9/0.15m
// there) — the spec gives two different numbers for the two purposes.
type DedupRule struct {
	NormalCosThreshold float64
	DistanceThreshold  float64
}

// DefaultDedupRule is spec.md §4.5's literal dedup threshold.
var DefaultDedupRule = DedupRule{NormalCosThreshold: 0.95, DistanceThreshold: 0.1}

// SelectCandidates sorts RANSAC candidates by score descending,
// rejects candidates too similar to one already accepted, and keeps
// up to maxPlanes survivors (default 5), per spec.md §4.5.
func SelectCandidates(candidates []Candidate, rule DedupRule, maxPlanes int) []Candidate {
	sorted := append([]Candidate{}, candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var accepted []Candidate
	for _, cand := range sorted {
		if maxPlanes > 0 && len(accepted) >= maxPlanes {
			break
		}
		if isDuplicate(cand, accepted, rule) {
			continue
		}
		accepted = append(accepted, cand)
	}
	return accepted
}

func isDuplicate(cand Candidate, accepted []Candidate, rule DedupRule) bool {
	for _, a := range accepted {
		cos := a.Normal.Dot(cand.Normal)
		deltaD := math.Abs(a.Distance - cand.Distance)
		if cos > rule.NormalCosThreshold && deltaD < rule.DistanceThreshold {
			return true
		}
	}
	return false
}
