// Package tracking implements the shared marker/plane state-machine
// schema from spec.md §4.6: tentative/tracking/lost lifecycle,
// confidence fusion by exponential moving average, and pose smoothing
// via a constant-velocity Kalman filter plus quaternion SLERP. The
// lifecycle-counter shape (hits-to-confirm, misses-to-drop) mirrors
// the teacher's internal/lidar/l5tracks.TrackedObject state machine,
// generalized from a single confirmed/deleted pair of states to the
// spec's three-state tentative/tracking/lost schema shared by both
// marker and plane trackers.
package tracking

import (
	"time"

	"github.com/arkit-go/engine/pkg/arframe"
)

// LifecycleConfig holds the hit/timeout thresholds from spec.md §4.6.
type LifecycleConfig struct {
	ConfirmHits      int           // consecutive updates before Tentative -> Tracking
	LossTimeout      time.Duration // no update for this long: Tracking -> Lost
	RemovalTimeout   time.Duration // no update for this long while Lost: Removed
	ConfidenceAlpha  float64       // EMA smoothing factor, default 0.3
}

// lifecycle is embedded by MarkerTrack and PlaneTrack: it owns the
// state transitions and confidence fusion common to both.
type lifecycle struct {
	cfg LifecycleConfig

	state          arframe.TrackingState
	consecutiveHits int
	confidence     float64
	lastUpdate     time.Time
}

func newLifecycle(cfg LifecycleConfig, now time.Time, initialConfidence float64) lifecycle {
	return lifecycle{
		cfg:             cfg,
		state:           arframe.StateTentative,
		consecutiveHits: 1,
		confidence:      initialConfidence,
		lastUpdate:      now,
	}
}

// observe folds in a new measurement's confidence and advances the
// lifecycle state machine:
//
//	Tentative --confirm after K updates--> Tracking
//	Tracking --no update for T--> Lost (handled by expire, not observe)
//	Lost --update--> Tracking (reappearance)
func (l *lifecycle) observe(now time.Time, observedConfidence float64) {
	l.confidence = l.cfg.ConfidenceAlpha*observedConfidence + (1-l.cfg.ConfidenceAlpha)*l.confidence
	l.lastUpdate = now
	l.consecutiveHits++

	switch l.state {
	case arframe.StateTentative:
		if l.consecutiveHits >= l.cfg.ConfirmHits {
			l.state = arframe.StateTracking
		}
	case arframe.StateLost:
		l.state = arframe.StateTracking
		l.consecutiveHits = 1
	}
}

// missed lowers confidence when the track was expected but not
// observed this frame, per spec.md §4.6's "Any --missed while
// expected--> lower confidence" transition.
func (l *lifecycle) missed() {
	l.confidence = (1 - l.cfg.ConfidenceAlpha) * l.confidence
	l.consecutiveHits = 0
}

// expire moves a Tracking track to Lost once LossTimeout has passed
// since its last update; removal is decided by shouldRemove.
func (l *lifecycle) expire(now time.Time) {
	age := now.Sub(l.lastUpdate)
	if l.state == arframe.StateTracking && age >= l.cfg.LossTimeout {
		l.state = arframe.StateLost
	}
}

// shouldRemove reports whether a Lost or never-confirmed Tentative
// track has gone RemovalTimeout without an update and should be
// dropped from the tracker's map.
func (l *lifecycle) shouldRemove(now time.Time) bool {
	return (l.state == arframe.StateLost || l.state == arframe.StateTentative) &&
		now.Sub(l.lastUpdate) >= l.cfg.RemovalTimeout
}

func (l *lifecycle) State() arframe.TrackingState { return l.state }
func (l *lifecycle) Confidence() float64          { return l.confidence }
