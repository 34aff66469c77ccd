package camera

import (
	"context"
	"time"
)

// FixtureSource is an in-memory Source backed by a caller-supplied
// sequence of frames, the camera-package equivalent of the teacher's
// MockRadarPort: used in tests and in headless/CI environments where
// no real capture device is attached.
type FixtureSource struct {
	lifecycle

	frames  []Frame
	nextIdx int
	start   time.Time

	settings Settings
	caps     Capabilities
}

// NewFixtureSource constructs a fixture that replays frames in order,
// looping once exhausted.
func NewFixtureSource(frames []Frame, caps Capabilities) *FixtureSource {
	return &FixtureSource{
		frames: frames,
		caps:   caps,
		start:  time.Now(),
	}
}

func (f *FixtureSource) Initialize(ctx context.Context, want Settings) (Settings, error) {
	f.settings = want
	f.markOpened()
	return f.settings, nil
}

func (f *FixtureSource) CurrentFrame(ctx context.Context) (Frame, error) {
	if !f.isOpened() {
		return Frame{}, errNotFound("fixture")
	}
	if len(f.frames) == 0 {
		return Frame{}, errNotFound("fixture")
	}
	frame := f.frames[f.nextIdx%len(f.frames)]
	f.nextIdx++
	frame.TimestampMicro = monotonicMicros(f.start)
	return frame, nil
}

func (f *FixtureSource) Resolution() (int, int) {
	return f.settings.Width, f.settings.Height
}

func (f *FixtureSource) Capabilities() Capabilities { return f.caps }

func (f *FixtureSource) UpdateSettings(want Settings) (Settings, error) {
	f.settings = want
	return f.settings, nil
}

func (f *FixtureSource) Destroy() error {
	f.markDestroyed()
	return nil
}
