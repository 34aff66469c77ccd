package tracking

import (
	"time"

	"github.com/arkit-go/engine/internal/spatialmath"
	"github.com/arkit-go/engine/pkg/arframe"
)

// MarkerTrack is one tracked marker's lifecycle and pose-smoothing
// state, keyed by decoded marker id.
type MarkerTrack struct {
	lifecycle
	ID          int
	kalman      *spatialmath.Kalman6
	lastQuat    spatialmath.Quaternion
	lastCorners [4]spatialmath.Vec2
	lastRotation int
}

// MarkerTracker maintains the map of active marker tracks across
// frames, matching new detections by id (ArUco decode is itself the
// identity match, unlike plane similarity matching).
type MarkerTracker struct {
	cfg     LifecycleConfig
	kalman  KalmanConfig
	tracks  map[int]*MarkerTrack
	nowFn   func() time.Time
}

// KalmanConfig holds the Kalman6 process/measurement noise from
// spec.md §4.6.
type KalmanConfig struct {
	ProcessNoisePos  float64
	ProcessNoiseVel  float64
	MeasurementNoise float64
}

// NewMarkerTracker builds an empty tracker.
func NewMarkerTracker(cfg LifecycleConfig, kalman KalmanConfig) *MarkerTracker {
	return &MarkerTracker{
		cfg:    cfg,
		kalman: kalman,
		tracks: make(map[int]*MarkerTrack),
		nowFn:  time.Now,
	}
}

// Update folds this frame's decoded marker detections into the
// tracker. updated holds every marker the tracker still holds, in any
// state (Tentative, Tracking or Lost); newlyDetected holds the ids
// first seen this frame; lost holds the ids dropped after
// RemovalTimeout, for which the orchestrator emits marker:lost.
// Markers with a Pose are smoothed through the Kalman filter and
// SLERP; markers that have never carried a pose pass their corners
// through unsmoothed and have a nil Pose.
func (t *MarkerTracker) Update(detections []arframe.TrackedMarker) (updated []arframe.TrackedMarker, newlyDetected []int, lost []int) {
	now := t.nowFn()
	seen := make(map[int]bool, len(detections))

	for _, det := range detections {
		seen[det.ID] = true
		track, exists := t.tracks[det.ID]
		if !exists {
			track = &MarkerTrack{
				lifecycle: newLifecycle(t.cfg, now, det.Confidence),
				ID:        det.ID,
				kalman:    spatialmath.NewKalman6(t.kalman.ProcessNoisePos, t.kalman.ProcessNoiseVel, t.kalman.MeasurementNoise),
			}
			t.tracks[det.ID] = track
			newlyDetected = append(newlyDetected, det.ID)
		} else {
			track.observe(now, det.Confidence)
		}

		track.lastCorners = det.Corners
		track.lastRotation = det.Rotation
		if det.Pose != nil {
			track.kalman.Predict(0.033)
			smoothedPos := track.kalman.Update(det.Pose.Position.X, det.Pose.Position.Y, det.Pose.Position.Z)
			if track.lastQuat == (spatialmath.Quaternion{}) {
				track.lastQuat = det.Pose.Rotation
			} else {
				track.lastQuat = spatialmath.Slerp(track.lastQuat, det.Pose.Rotation, 0.5)
			}
			det.Pose = &arframe.Pose{Position: smoothedPos, Rotation: track.lastQuat}
		}
	}

	for id, track := range t.tracks {
		if !seen[id] {
			track.missed()
			track.expire(now)
			if track.shouldRemove(now) {
				lost = append(lost, id)
				delete(t.tracks, id)
			}
		}
	}

	for id, track := range t.tracks {
		_ = id
		m := arframe.TrackedMarker{
			ID:         track.ID,
			Corners:    track.lastCorners,
			Rotation:   track.lastRotation,
			Confidence: track.Confidence(),
			State:      track.State(),
		}
		if track.lastQuat != (spatialmath.Quaternion{}) {
			pos := track.kalman.Position()
			m.Pose = &arframe.Pose{Position: pos, Rotation: track.lastQuat}
		}
		updated = append(updated, m)
	}
	return updated, newlyDetected, lost
}

// Active returns the current number of tracked (non-removed) markers.
func (t *MarkerTracker) Active() int { return len(t.tracks) }
