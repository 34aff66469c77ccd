package gpu

import (
	"context"
	"sync"
	"sync/atomic"
)

// NativeComputeBackend models a device with real compute-pipeline
// support. Every buffer and texture lives as a plain Go byte slice;
// Submit walks the encoder's recorded passes and applies each pass's
// registered ComputeKernel directly over the bound buffers. There is
// no actual GPU involved — this backend exists so the rest of the
// pipeline can be written against the Device contract and exercised
// without a native graphics stack.
type NativeComputeBackend struct {
	mu        sync.Mutex
	nextID    uint64
	tracker   *ResourceTracker
	destroyed bool

	buffers      map[uint64][]byte
	textures     map[uint64][]byte
	shaderLabels map[uint64]string
	kernels      map[string]ComputeKernel

	// trackIDs maps every live resource's own id (buffer, texture,
	// shader, pipeline, bind group, or external texture — all drawn
	// from the same id() counter, so the keys never collide) to its
	// ResourceTracker id, so Destroy can release everything it created.
	trackIDs map[uint64]string
}

// NewNativeComputeBackend constructs a backend with no allocations.
func NewNativeComputeBackend() *NativeComputeBackend {
	return &NativeComputeBackend{
		tracker:      NewResourceTracker(),
		buffers:      make(map[uint64][]byte),
		textures:     make(map[uint64][]byte),
		shaderLabels: make(map[uint64]string),
		kernels:      make(map[string]ComputeKernel),
		trackIDs:     make(map[uint64]string),
	}
}

func (b *NativeComputeBackend) Name() string { return "native-compute" }

func (b *NativeComputeBackend) Tracker() *ResourceTracker { return b.tracker }

func (b *NativeComputeBackend) id() uint64 { return atomic.AddUint64(&b.nextID, 1) }

// track records id against a freshly created resource and remembers
// its tracker id for release at Destroy time.
func (b *NativeComputeBackend) track(id uint64, kind ResourceKind, label string, sizeBytes int) {
	trackID := b.tracker.Track(kind, label, sizeBytes)
	b.mu.Lock()
	b.trackIDs[id] = trackID
	b.mu.Unlock()
}

func (b *NativeComputeBackend) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	if b.destroyed {
		return nil, ErrDeviceLost
	}
	id := b.id()
	size := desc.Width * desc.Height * bytesPerPixel(desc.Format)
	b.mu.Lock()
	b.textures[id] = make([]byte, size)
	b.mu.Unlock()
	b.track(id, ResourceTexture, desc.Label, size)
	return &Texture{ID: id, Width: desc.Width, Height: desc.Height, Format: desc.Format}, nil
}

func (b *NativeComputeBackend) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	if b.destroyed {
		return nil, ErrDeviceLost
	}
	id := b.id()
	b.mu.Lock()
	b.buffers[id] = make([]byte, desc.Size)
	b.mu.Unlock()
	b.track(id, ResourceBuffer, desc.Label, desc.Size)
	return &Buffer{ID: id, Size: desc.Size}, nil
}

func (b *NativeComputeBackend) CompileShader(label, source string) (*ShaderModule, error) {
	if b.destroyed {
		return nil, ErrDeviceLost
	}
	if source == "" {
		return nil, NewShaderCompileError(label, "empty shader source")
	}
	id := b.id()
	b.mu.Lock()
	b.shaderLabels[id] = label
	b.mu.Unlock()
	b.track(id, ResourceShaderModule, label, len(source))
	return &ShaderModule{ID: id, Label: label, Source: source}, nil
}

// RegisterComputeKernel binds label — matched against the label a
// shader was compiled under — to a concrete CPU kernel. A pass whose
// shader label has no registered kernel falls back to identityShader,
// so a pipeline can be built before its real kernel is wired without
// Submit failing.
func (b *NativeComputeBackend) RegisterComputeKernel(label string, kernel ComputeKernel) error {
	if b.destroyed {
		return ErrDeviceLost
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kernels[label] = kernel
	return nil
}

// identityShader is the fallback kernel for a shader label with no
// registered implementation: it passes bound buffers through
// unchanged.
func identityShader(_, _, _ uint32, inputs [][]byte) [][]byte { return inputs }

func (b *NativeComputeBackend) CreateComputePipeline(shader *ShaderModule, entryPoint string) (*ComputePipeline, error) {
	if b.destroyed {
		return nil, ErrDeviceLost
	}
	id := b.id()
	b.track(id, ResourceComputePipeline, entryPoint, 0)
	return &ComputePipeline{ID: id, EntryPoint: entryPoint, shader: *shader}, nil
}

func (b *NativeComputeBackend) CreateBindGroup(entries []BindGroupEntry) (*BindGroup, error) {
	if b.destroyed {
		return nil, ErrDeviceLost
	}
	id := b.id()
	b.track(id, ResourceBindGroup, "", 0)
	return &BindGroup{ID: id, Entries: entries}, nil
}

func (b *NativeComputeBackend) CreateCommandEncoder() *CommandEncoder {
	return &CommandEncoder{ID: b.id()}
}

// Submit executes every recorded compute pass in order. Each pass's
// kernel (resolved from its shader's label, falling back to the
// identity shader when no kernel is registered under that label) runs
// over the bound buffers' current contents and writes results back in
// binding order.
func (b *NativeComputeBackend) Submit(ctx context.Context, enc *CommandEncoder) error {
	if b.destroyed {
		return ErrDeviceLost
	}
	for _, pass := range enc.passes {
		b.mu.Lock()
		label := b.shaderLabels[pass.pipeline.shader.ID]
		kernel, ok := b.kernels[label]
		b.mu.Unlock()
		if !ok {
			kernel = identityShader
		}

		var inputs [][]byte
		var bufIDs []uint64
		for _, e := range pass.bindGroup.Entries {
			if e.Buffer == nil {
				continue
			}
			b.mu.Lock()
			inputs = append(inputs, b.buffers[e.Buffer.ID])
			b.mu.Unlock()
			bufIDs = append(bufIDs, e.Buffer.ID)
		}

		outputs := kernel(pass.workgroupsX, pass.workgroupsY, pass.workgroupsZ, inputs)

		b.mu.Lock()
		for i, out := range outputs {
			if i < len(bufIDs) {
				b.buffers[bufIDs[i]] = out
			}
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

func (b *NativeComputeBackend) ImportExternalTexture(width, height int, data []byte) (*Texture, error) {
	if b.destroyed {
		return nil, ErrDeviceLost
	}
	id := b.id()
	b.mu.Lock()
	b.textures[id] = data
	b.mu.Unlock()
	b.track(id, ResourceExternalTexture, "camera-frame", len(data))
	return &Texture{ID: id, Width: width, Height: height, Format: FormatRGBA8Unorm}, nil
}

func (b *NativeComputeBackend) ReleaseExternalTexture(tex *Texture) error {
	b.mu.Lock()
	delete(b.textures, tex.ID)
	trackID, ok := b.trackIDs[tex.ID]
	delete(b.trackIDs, tex.ID)
	b.mu.Unlock()
	if ok {
		b.tracker.Release(trackID)
	}
	return nil
}

func (b *NativeComputeBackend) ReadBuffer(ctx context.Context, buf *Buffer) ([]byte, error) {
	if b.destroyed {
		return nil, ErrDeviceLost
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.buffers[buf.ID]
	if !ok {
		return nil, NewBindLayoutError(1, 0)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (b *NativeComputeBackend) WriteBuffer(buf *Buffer, data []byte) error {
	if b.destroyed {
		return ErrDeviceLost
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	existing, ok := b.buffers[buf.ID]
	if !ok {
		return NewBindLayoutError(1, 0)
	}
	copy(existing, data)
	return nil
}

// Destroy releases every resource this backend ever tracked — buffers,
// textures, compiled shaders, pipelines, bind groups, and any
// still-imported external textures — so the caller's post-teardown
// FindLeaks check reports zero (spec.md §6.4).
func (b *NativeComputeBackend) Destroy() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
	for _, trackID := range b.trackIDs {
		b.tracker.Release(trackID)
	}
	b.buffers = nil
	b.textures = nil
	b.shaderLabels = nil
	b.kernels = nil
	b.trackIDs = nil
	return nil
}

func bytesPerPixel(f TextureFormat) int {
	switch f {
	case FormatRGBA8Unorm:
		return 4
	case FormatR32Float:
		return 4
	default:
		return 1
	}
}
