// Package arevents implements the typed event bus the engine publishes
// frame and detection lifecycle events on (spec.md §6): on/once/off/
// emit plus a blocking waitForEvent and a channel-based stream
// adapter. The design generalizes the teacher's Subscribe() channel
// fan-out pattern (_examples' miface.Tracker) from a single fixed
// channel to named events with multiple independent listeners per
// name.
package arevents

import (
	"context"
	"errors"
	"sync"
)

// Name is an event name from spec.md §6's event table.
type Name string

const (
	Ready              Name = "ready"
	Frame              Name = "frame"
	FrameBefore        Name = "frame:before"
	FrameAfter         Name = "frame:after"
	MarkerDetected     Name = "marker:detected"
	MarkerUpdated      Name = "marker:updated"
	MarkerLost         Name = "marker:lost"
	PlaneDetected      Name = "plane:detected"
	PlaneUpdated       Name = "plane:updated"
	PlaneRemoved       Name = "plane:removed"
	FPSChange          Name = "fps:change"
	PerformanceWarning Name = "performance:warning"
	Error              Name = "error"
	Warning            Name = "warning"
)

// Handler receives an event's payload. The concrete type depends on
// Name, per spec.md §6's payload table (e.g. Frame carries *arframe.ARFrame).
type Handler func(payload any)

// ErrWaitTimeout is returned by WaitForEvent when the deadline elapses
// before the named event fires.
var ErrWaitTimeout = errors.New("arevents: wait for event timed out")

type listener struct {
	id      uint64
	handler Handler
	once    bool
}

// Emitter is a concurrency-safe named-event bus. Emission order within
// a single Emit call follows subscription order, and a `once` listener
// is removed before the next Emit of that name returns (spec.md §5's
// ordering guarantee).
type Emitter struct {
	mu        sync.Mutex
	listeners map[Name][]listener
	nextID    uint64
}

// New constructs an empty Emitter.
func New() *Emitter {
	return &Emitter{listeners: make(map[Name][]listener)}
}

// On registers a handler that fires on every emission of name until
// removed with Off.
func (e *Emitter) On(name Name, h Handler) (id uint64) {
	return e.add(name, h, false)
}

// Once registers a handler that fires at most once: it is removed
// before the emission that triggers it returns.
func (e *Emitter) Once(name Name, h Handler) (id uint64) {
	return e.add(name, h, true)
}

func (e *Emitter) add(name Name, h Handler, once bool) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners[name] = append(e.listeners[name], listener{id: id, handler: h, once: once})
	return id
}

// Off removes a single listener by the id On/Once returned.
func (e *Emitter) Off(name Name, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls := e.listeners[name]
	for i, l := range ls {
		if l.id == id {
			e.listeners[name] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// OffAll removes every listener for name.
func (e *Emitter) OffAll(name Name) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, name)
}

// Emit synchronously invokes every listener registered for name, in
// subscription order, with payload. Once-listeners are stripped from
// the registry before any handler runs so a handler that re-emits the
// same event cannot re-trigger a still-pending once listener.
func (e *Emitter) Emit(name Name, payload any) {
	e.mu.Lock()
	ls := append([]listener{}, e.listeners[name]...)
	if remaining := stripOnce(e.listeners[name]); len(remaining) != len(e.listeners[name]) {
		e.listeners[name] = remaining
	}
	e.mu.Unlock()

	for _, l := range ls {
		l.handler(payload)
	}
}

func stripOnce(ls []listener) []listener {
	out := ls[:0:0]
	for _, l := range ls {
		if !l.once {
			out = append(out, l)
		}
	}
	return out
}

// WaitForEvent blocks until name next fires or ctx is done, returning
// the payload. The temporary listener is removed before returning in
// either case, per spec.md §5.
func (e *Emitter) WaitForEvent(ctx context.Context, name Name) (any, error) {
	result := make(chan any, 1)
	id := e.Once(name, func(payload any) {
		select {
		case result <- payload:
		default:
		}
	})

	select {
	case payload := <-result:
		return payload, nil
	case <-ctx.Done():
		e.Off(name, id)
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrWaitTimeout
		}
		return nil, ctx.Err()
	}
}

// Stream returns a channel that receives every emission of name until
// ctx is canceled, the async-stream adapter spec.md §4.7 calls for.
// The channel is buffered so a slow consumer does not block Emit;
// once full, new events for this stream are dropped rather than
// blocking the frame loop (matching the orchestrator's no-blocking-
// suspension-point rule in spec.md §5).
func (e *Emitter) Stream(ctx context.Context, name Name) <-chan any {
	const bufferSize = 64
	ch := make(chan any, bufferSize)
	id := e.On(name, func(payload any) {
		select {
		case ch <- payload:
		default:
		}
	})
	go func() {
		<-ctx.Done()
		e.Off(name, id)
		close(ch)
	}()
	return ch
}
