package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arkit-go/engine/internal/gpu"
)

// blockingPlugin returns a Job that blocks until release is closed, so
// tests can observe the single-flight/stale-export behavior directly.
type blockingPlugin struct {
	release chan struct{}
	calls   int
	mu      sync.Mutex
}

func (p *blockingPlugin) Name() string           { return "blocking" }
func (p *blockingPlugin) Version() string        { return "1.0.0" }
func (p *blockingPlugin) Priority() int          { return 1 }
func (p *blockingPlugin) Dependencies() []string { return nil }
func (p *blockingPlugin) Init(device gpu.Device) error { return nil }
func (p *blockingPlugin) Destroy() error         { return nil }

func (p *blockingPlugin) Submit(ctx context.Context, in FrameInput) (Job, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	p.mu.Unlock()
	return func(ctx context.Context) (any, error) {
		<-p.release
		return n, nil
	}, nil
}

func TestPluginSlotStaleWhileInFlight(t *testing.T) {
	plugin := &blockingPlugin{release: make(chan struct{})}
	slot := newPluginSlot(plugin)

	result, stale, err := slot.runFrame(context.Background(), FrameInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stale {
		t.Fatalf("expected the first frame's job (still running) to report stale=true with nil result")
	}
	if result != nil {
		t.Fatalf("expected nil result before any job has completed, got %v", result)
	}

	// A second frame arrives while the first job is still in flight:
	// single-flight must skip scheduling new work.
	result2, stale2, err := slot.runFrame(context.Background(), FrameInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stale2 || result2 != nil {
		t.Fatalf("expected the second frame to also report stale nil result while in flight, got result=%v stale=%v", result2, stale2)
	}

	close(plugin.release)
	time.Sleep(20 * time.Millisecond)

	result3, stale3, err := slot.runFrame(context.Background(), FrameInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stale3 {
		t.Fatalf("expected the prior job's result to be reported stale on a later frame (one-frame lag)")
	}
	if result3 != 1 {
		t.Fatalf("expected the completed job's result (1), got %v", result3)
	}
}

func TestPluginSlotWaitIdle(t *testing.T) {
	plugin := &blockingPlugin{release: make(chan struct{})}
	slot := newPluginSlot(plugin)
	slot.runFrame(context.Background(), FrameInput{})

	done := make(chan struct{})
	go func() {
		slot.waitIdle(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected waitIdle to block while the job is still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(plugin.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected waitIdle to return once the job completes")
	}
}
