package camera

import (
	"context"
	"testing"
)

func testFrames() []Frame {
	return []Frame{
		{Pixels: []byte{1, 2, 3, 4}, Width: 1, Height: 1},
		{Pixels: []byte{5, 6, 7, 8}, Width: 1, Height: 1},
	}
}

func TestFixtureSourceCurrentFrameBeforeInitializeFails(t *testing.T) {
	f := NewFixtureSource(testFrames(), Capabilities{})
	if _, err := f.CurrentFrame(context.Background()); err == nil {
		t.Error("expected CurrentFrame to fail before Initialize")
	}
}

func TestFixtureSourceLoopsFrames(t *testing.T) {
	f := NewFixtureSource(testFrames(), Capabilities{MaxWidth: 640, MaxHeight: 480})
	want := Settings{Width: 640, Height: 480, FrameRate: 30, Facing: FacingEnvironment}
	got, err := f.Initialize(context.Background(), want)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got != want {
		t.Errorf("Initialize returned %+v, want %+v", got, want)
	}

	for i := 0; i < 5; i++ {
		frame, err := f.CurrentFrame(context.Background())
		if err != nil {
			t.Fatalf("CurrentFrame[%d]: %v", i, err)
		}
		want := testFrames()[i%2].Pixels
		if len(frame.Pixels) != len(want) {
			t.Fatalf("CurrentFrame[%d] pixel length = %d, want %d", i, len(frame.Pixels), len(want))
		}
		for j, v := range want {
			if frame.Pixels[j] != v {
				t.Errorf("CurrentFrame[%d] byte %d = %d, want %d (loop did not replay in order)", i, j, frame.Pixels[j], v)
			}
		}
	}
}

func TestFixtureSourceDestroyStopsCurrentFrame(t *testing.T) {
	f := NewFixtureSource(testFrames(), Capabilities{})
	if _, err := f.Initialize(context.Background(), Settings{Width: 320, Height: 240}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := f.CurrentFrame(context.Background()); err != nil {
		t.Fatalf("CurrentFrame before Destroy: %v", err)
	}
	if err := f.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if _, err := f.CurrentFrame(context.Background()); err == nil {
		t.Error("expected CurrentFrame to fail after Destroy")
	}
}

func TestFixtureSourceUpdateSettingsAndResolution(t *testing.T) {
	f := NewFixtureSource(testFrames(), Capabilities{})
	if _, err := f.Initialize(context.Background(), Settings{Width: 320, Height: 240}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	newSettings := Settings{Width: 1280, Height: 720, FrameRate: 60, Facing: FacingUser}
	got, err := f.UpdateSettings(newSettings)
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got != newSettings {
		t.Errorf("UpdateSettings returned %+v, want %+v", got, newSettings)
	}
	w, h := f.Resolution()
	if w != 1280 || h != 720 {
		t.Errorf("Resolution = (%d, %d), want (1280, 720)", w, h)
	}
}

func TestFixtureSourceEmptyFramesFails(t *testing.T) {
	f := NewFixtureSource(nil, Capabilities{})
	if _, err := f.Initialize(context.Background(), Settings{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := f.CurrentFrame(context.Background()); err == nil {
		t.Error("expected CurrentFrame to fail with no fixture frames")
	}
}
