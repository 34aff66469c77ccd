package tracking

import (
	"time"

	"github.com/arkit-go/engine/internal/spatialmath"
	"github.com/arkit-go/engine/pkg/arframe"
)

// PlaneCandidate is one RANSAC-accepted plane from the current frame,
// before a tracked id is assigned.
type PlaneCandidate struct {
	Normal      spatialmath.Vec3
	Distance    float64
	Centroid    spatialmath.Vec3
	InlierCount int
	Area        float64
	Confidence  float64
	Boundary    []spatialmath.Vec3
}

// PlaneTrack is one tracked plane's lifecycle.
type PlaneTrack struct {
	lifecycle
	ID       int
	Normal   spatialmath.Vec3
	Distance float64
	Centroid spatialmath.Vec3
	Inliers  int
	Area     float64
	Boundary []spatialmath.Vec3
}

// PlaneMatchRule is the similarity test spec.md §3 uses to match a
// candidate to an existing tracked plane: normal cosine similarity
// above NormalCosThreshold and |Δd| below DistanceThreshold. This is
// deliberately a looser rule than the within-frame dedup threshold in
// internal/planes (0.9/0.15m here vs 0.95/0.1m there), matching the
// spec's two separate numbers.
type PlaneMatchRule struct {
	NormalCosThreshold float64
	DistanceThreshold  float64
}

// DefaultPlaneMatchRule is spec.md §3's tracked-plane matching rule.
var DefaultPlaneMatchRule = PlaneMatchRule{NormalCosThreshold: 0.9, DistanceThreshold: 0.15}

// PlaneTracker maintains the map of active plane tracks across frames,
// matching RANSAC candidates to existing tracks by normal/distance
// similarity rather than by a stable upstream id (RANSAC candidates
// have none).
type PlaneTracker struct {
	cfg    LifecycleConfig
	rule   PlaneMatchRule
	tracks map[int]*PlaneTrack
	nextID int
	nowFn  func() time.Time
}

// NewPlaneTracker builds an empty tracker.
func NewPlaneTracker(cfg LifecycleConfig, rule PlaneMatchRule) *PlaneTracker {
	return &PlaneTracker{cfg: cfg, rule: rule, tracks: make(map[int]*PlaneTrack)}
}

func (t *PlaneTracker) now() time.Time {
	if t.nowFn != nil {
		return t.nowFn()
	}
	return time.Now()
}

// Update folds this frame's RANSAC-accepted candidates into the
// tracker. Matched candidates update their track in place (state,
// geometry, EMA confidence); unmatched candidates get a new id.
// Returns the current set of tracked planes plus the ids removed this
// frame (not updated for RemovalTimeout, spec.md §4.5's 2s default).
func (t *PlaneTracker) Update(candidates []PlaneCandidate) (tracked []arframe.DetectedPlane, removed []int) {
	now := t.now()
	matchedTrackIDs := make(map[int]bool)

	for _, cand := range candidates {
		id, track := t.findMatch(cand)
		if track == nil {
			id = t.nextID
			t.nextID++
			track = &PlaneTrack{
				lifecycle: newLifecycle(t.cfg, now, cand.Confidence),
				ID:        id,
			}
			t.tracks[id] = track
		} else {
			track.observe(now, cand.Confidence)
		}
		track.Normal = cand.Normal
		track.Distance = cand.Distance
		track.Centroid = cand.Centroid
		track.Inliers = cand.InlierCount
		track.Area = cand.Area
		if cand.Boundary != nil {
			track.Boundary = cand.Boundary
		}
		matchedTrackIDs[id] = true
	}

	for id, track := range t.tracks {
		if matchedTrackIDs[id] {
			continue
		}
		track.missed()
		track.expire(now)
		if track.shouldRemove(now) {
			removed = append(removed, id)
			delete(t.tracks, id)
		}
	}

	for id, track := range t.tracks {
		_ = id
		tracked = append(tracked, arframe.DetectedPlane{
			ID:                track.ID,
			Normal:            track.Normal,
			Distance:          track.Distance,
			Centroid:          track.Centroid,
			InlierCount:       track.Inliers,
			EstimatedArea:     track.Area,
			Orientation:       arframe.ClassifyOrientation(track.Normal),
			Confidence:        track.Confidence(),
			LastSeenUnixMicro: now.UnixMicro(),
			Boundary:          track.Boundary,
			State:             track.State(),
		})
	}
	return tracked, removed
}

func (t *PlaneTracker) findMatch(cand PlaneCandidate) (int, *PlaneTrack) {
	for id, track := range t.tracks {
		cos := track.Normal.Dot(cand.Normal)
		deltaD := track.Distance - cand.Distance
		if deltaD < 0 {
			deltaD = -deltaD
		}
		if cos > t.rule.NormalCosThreshold && deltaD < t.rule.DistanceThreshold {
			return id, track
		}
	}
	return 0, nil
}

// Active returns the number of currently tracked planes.
func (t *PlaneTracker) Active() int { return len(t.tracks) }
