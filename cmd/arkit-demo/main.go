// Command arkit-demo drives the engine against a fixture camera
// source and logs detection events, the CLI wrapper shape grounded on
// _examples/MiFaceDEV-miface/cmd/miface/main.go (flag parsing, signal
// handling, verbose per-frame logging).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arkit-go/engine/internal/camera"
	"github.com/arkit-go/engine/internal/config"
	"github.com/arkit-go/engine/internal/monitoring"
	"github.com/arkit-go/engine/internal/version"
	"github.com/arkit-go/engine/pkg/arengine"
	"github.com/arkit-go/engine/pkg/arevents"
	"github.com/arkit-go/engine/pkg/arframe"
)

func main() {
	presetName := flag.String("preset", "desktop", "tuning preset: mobile, desktop, high-quality, low-latency, battery-saver")
	showVersion := flag.Bool("version", false, "show version information")
	verbose := flag.Bool("verbose", false, "log every frame (otherwise only the final frame count is logged)")
	durationSec := flag.Int("duration", 0, "stop automatically after N seconds (0 = run until signaled)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "arkit-demo - drives the AR perception engine against a synthetic fixture feed\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("arkit-demo version %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		os.Exit(0)
	}

	source := camera.NewFixtureSource(syntheticFrames(), camera.Capabilities{
		MaxWidth: 1280, MaxHeight: 720, SupportedFrameRates: []int{30, 60},
	})

	engine := arengine.New()

	var frameCount uint64
	engine.On(arevents.Frame, func(payload any) {
		frameCount++
		if *verbose {
			if frame, ok := payload.(*arframe.ARFrame); ok {
				monitoring.Logf("frame %d: %d markers, %d planes, %d features (stale=%v)",
					frame.Sequence, len(frame.Markers), len(frame.Planes), len(frame.Features), frame.Stale)
			}
		}
	})
	engine.On(arevents.MarkerDetected, func(payload any) {
		monitoring.Logf("marker detected: id=%v", payload)
	})
	engine.On(arevents.MarkerLost, func(payload any) {
		monitoring.Logf("marker lost: id=%v", payload)
	})
	engine.On(arevents.Error, func(payload any) {
		monitoring.Logf("engine error: %v", payload)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Initialize(ctx, arengine.Config{
		Preset: config.PresetName(*presetName),
		Source: source,
	}); err != nil {
		monitoring.Logf("initialize: %v", err)
		os.Exit(1)
	}

	if err := engine.Start(ctx, nil); err != nil {
		monitoring.Logf("start: %v", err)
		os.Exit(1)
	}
	monitoring.Logf("engine started, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *durationSec > 0 {
		timer := time.NewTimer(time.Duration(*durationSec) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case sig := <-sigCh:
		monitoring.Logf("received signal %v, shutting down", sig)
	case <-timeout:
		monitoring.Logf("duration elapsed, shutting down")
	}

	engine.Stop()
	if err := engine.Destroy(ctx); err != nil {
		monitoring.Logf("destroy: %v", err)
		os.Exit(1)
	}
	monitoring.Logf("processed %d frames total", frameCount)
}

// syntheticFrames builds a small looping set of blank 1280x720 RGBA
// frames so the demo runs end to end without a physical camera;
// replace with a real camera.Source for production use.
func syntheticFrames() []camera.Frame {
	const w, h = 1280, 720
	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = 200
	}
	return []camera.Frame{{Pixels: pixels, Width: w, Height: h}}
}
