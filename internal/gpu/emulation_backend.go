package gpu

import "context"

// EmulationBackend is used when the host device exposes no native
// compute-pipeline support (spec.md §4.1 notes this case explicitly).
// It conceptually lowers each compute dispatch to a fullscreen
// triangle pass sampling a shader storage buffer as a texture, the
// technique WebGL2-only targets use to emulate compute; since no real
// rasterizer sits underneath this implementation, lowering reduces to
// delegating to the same CPU kernel dispatch as NativeComputeBackend,
// with every pass counted so diagnostics can report how many dispatches
// took the emulated path.
type EmulationBackend struct {
	*NativeComputeBackend
	fullscreenPassCount uint64
}

// NewEmulationBackend constructs a backend with no allocations.
func NewEmulationBackend() *EmulationBackend {
	return &EmulationBackend{NativeComputeBackend: NewNativeComputeBackend()}
}

func (b *EmulationBackend) Name() string { return "compute-emulation" }

// FullscreenPassCount reports how many compute dispatches were lowered
// to a fullscreen pass, for Diagnostics() (spec.md §6.4).
func (b *EmulationBackend) FullscreenPassCount() uint64 { return b.fullscreenPassCount }

func (b *EmulationBackend) Submit(ctx context.Context, enc *CommandEncoder) error {
	b.fullscreenPassCount += uint64(len(enc.passes))
	return b.NativeComputeBackend.Submit(ctx, enc)
}
