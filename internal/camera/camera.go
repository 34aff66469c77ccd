// Package camera provides the CameraSource contract the pipeline pulls
// frames through (spec.md §4.1), generalizing the teacher's
// OpenCVCamera device-lifecycle shape (open/configure/read-loop/close)
// from a single GoCV webcam binding to an interface two backends can
// satisfy: a real device backend and a fixture backend for tests and
// headless environments. An optional hardware sync trigger rides over
// go.bug.st/serial the same way the teacher's radar package drives an
// external sensor from a serial port.
package camera

import (
	"context"
	"sync"
	"time"

	"github.com/arkit-go/engine/internal/arerr"
)

// Facing selects which physical camera to request, matching the
// camera.facing config field in spec.md §6.1.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Settings are the negotiated capture parameters.
type Settings struct {
	Width, Height int
	FrameRate     int
	Facing        Facing
}

// Capabilities describes what a concrete device can offer, reported
// to Engine.Diagnostics() (spec.md §6.4).
type Capabilities struct {
	MaxWidth, MaxHeight int
	SupportedFrameRates []int
	HasHardwareSync     bool
}

// Frame is one captured image plus its capture timestamp. Pixels are
// tightly packed RGBA8.
type Frame struct {
	Pixels         []byte
	Width, Height  int
	TimestampMicro int64
}

// Source is the capability contract every camera backend implements.
type Source interface {
	Initialize(ctx context.Context, want Settings) (Settings, error)
	CurrentFrame(ctx context.Context) (Frame, error)
	Resolution() (int, int)
	Capabilities() Capabilities
	UpdateSettings(want Settings) (Settings, error)
	Destroy() error
}

// monotonicMicros returns a monotonic microsecond timestamp suitable
// for frame ordering, independent of wall-clock adjustments.
func monotonicMicros(start time.Time) int64 {
	return time.Since(start).Microseconds()
}

// errPermissionDenied, errNotFound and errBusy are the three device
// failure modes spec.md §7 calls out explicitly.
func errPermissionDenied(device string) error {
	return arerr.New(arerr.CodeCameraPermission, "camera: permission denied").
		WithContext("device", device).
		WithRecoverable(arerr.Suggestion{
			Message: "grant camera access and retry Initialize",
			Action:  "prompt the user for camera permission",
		})
}

func errNotFound(device string) error {
	return arerr.New(arerr.CodeCameraNotFound, "camera: device not found").
		WithContext("device", device)
}

func errBusy(device string) error {
	return arerr.New(arerr.CodeCameraBusy, "camera: device busy").
		WithContext("device", device).
		WithRecoverable(arerr.Suggestion{
			Message: "close other applications using the camera and retry",
		})
}

// mu-guarded base embedded by concrete sources so Destroy is
// idempotent and CurrentFrame fails cleanly after teardown, the same
// opened/mu pattern the teacher's OpenCVCamera uses.
type lifecycle struct {
	mu       sync.Mutex
	opened   bool
	destroyed bool
}

func (l *lifecycle) markOpened() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = true
}

func (l *lifecycle) isOpened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened && !l.destroyed
}

func (l *lifecycle) markDestroyed() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.destroyed = true
	l.opened = false
}
