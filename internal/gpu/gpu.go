// Package gpu defines the capability contract the perception pipeline
// requires from its compute backend (spec.md §4.1): texture and buffer
// allocation, shader compilation, compute pipelines, bind groups,
// command encoding, queue submission, external-texture import for
// zero-copy camera frames, and mapped-buffer readback.
//
// Two backends satisfy the contract: NativeComputeBackend, which
// models a real compute-capable device, and EmulationBackend, which
// lowers every compute dispatch to a conceptual fullscreen-pass the
// way a WebGL2-only device would. Neither backend
// touches an actual GPU; both run the equivalent arithmetic on the
// CPU so the rest of the pipeline can depend on the contract without
// depending on a native graphics stack.
package gpu

import (
	"context"

	"github.com/arkit-go/engine/internal/arerr"
)

// TextureFormat enumerates the subset of formats the pipeline uses.
type TextureFormat int

const (
	FormatRGBA8Unorm TextureFormat = iota
	FormatR8Unorm
	FormatR32Float
)

// BufferUsage is a bitmask of how a buffer will be used, mirroring the
// WebGPU usage-flag contract.
type BufferUsage uint32

const (
	BufferUsageStorage BufferUsage = 1 << iota
	BufferUsageUniform
	BufferUsageCopySrc
	BufferUsageCopyDst
	BufferUsageMapRead
	BufferUsageIndirect
)

// TextureDescriptor describes a texture to allocate.
type TextureDescriptor struct {
	Label         string
	Width, Height int
	Format        TextureFormat
}

// BufferDescriptor describes a buffer to allocate.
type BufferDescriptor struct {
	Label string
	Size  int
	Usage BufferUsage
}

// Texture is an opaque allocated texture handle.
type Texture struct {
	ID     uint64
	Width  int
	Height int
	Format TextureFormat
}

// Buffer is an opaque allocated buffer handle.
type Buffer struct {
	ID   uint64
	Size int
}

// ShaderModule is a compiled compute shader. Label carries the name the
// shader was compiled under so Submit can resolve the registered
// ComputeKernel that backs it, independent of whether CompileShader or
// RegisterComputeKernel ran first.
type ShaderModule struct {
	ID     uint64
	Label  string
	Source string
}

// ComputeKernel is the CPU stand-in for a compiled compute shader's
// per-dispatch body: given the bound buffers' current contents in
// binding order (plus the dispatched workgroup counts, for kernels
// whose output size depends on them), it returns the new contents in
// the same order. A caller wires real algorithm code into the Device
// contract by compiling a shader under a label and registering a
// kernel under that same label (RegisterComputeKernel); CompileShader
// and RegisterComputeKernel may run in either order.
type ComputeKernel func(workgroupsX, workgroupsY, workgroupsZ uint32, inputs [][]byte) [][]byte

// ComputePipeline is a shader bound to an entry point, ready to
// dispatch.
type ComputePipeline struct {
	ID         uint64
	EntryPoint string
	shader     ShaderModule
}

// BindGroupEntry binds one resource to a numbered slot.
type BindGroupEntry struct {
	Binding uint32
	Buffer  *Buffer
	Texture *Texture
}

// BindGroup is a resolved set of bindings for a compute pipeline.
type BindGroup struct {
	ID      uint64
	Entries []BindGroupEntry
}

// CommandEncoder accumulates compute passes before submission.
type CommandEncoder struct {
	ID    uint64
	passes []computePass
}

type computePass struct {
	pipeline  ComputePipeline
	bindGroup BindGroup
	workgroupsX, workgroupsY, workgroupsZ uint32
}

// BeginComputePass records a dispatch of the given pipeline with the
// given bind group and workgroup counts. It does not execute
// anything; execution happens on Device.Submit.
func (e *CommandEncoder) BeginComputePass(pipeline ComputePipeline, bg BindGroup, wgX, wgY, wgZ uint32) {
	e.passes = append(e.passes, computePass{pipeline, bg, wgX, wgY, wgZ})
}

// Device is the capability contract every backend implements.
type Device interface {
	// Name identifies the backend for diagnostics (spec.md §6.4).
	Name() string

	CreateTexture(desc TextureDescriptor) (*Texture, error)
	CreateBuffer(desc BufferDescriptor) (*Buffer, error)
	CompileShader(label, source string) (*ShaderModule, error)
	CreateComputePipeline(shader *ShaderModule, entryPoint string) (*ComputePipeline, error)
	CreateBindGroup(entries []BindGroupEntry) (*BindGroup, error)

	// RegisterComputeKernel binds the CPU implementation a compute pass
	// dispatches when its shader's label matches. Plugins call this
	// once during Init to wire their real algorithm through the Device
	// contract instead of running it as a bare function call.
	RegisterComputeKernel(label string, kernel ComputeKernel) error

	CreateCommandEncoder() *CommandEncoder
	Submit(ctx context.Context, enc *CommandEncoder) error

	// ImportExternalTexture zero-copy-imports a camera frame. The
	// returned texture is only valid until the matching Release call.
	ImportExternalTexture(width, height int, data []byte) (*Texture, error)
	ReleaseExternalTexture(tex *Texture) error

	// ReadBuffer maps a buffer for CPU readback (BufferUsageMapRead
	// must have been set at creation).
	ReadBuffer(ctx context.Context, buf *Buffer) ([]byte, error)

	// WriteBuffer uploads CPU data into a buffer.
	WriteBuffer(buf *Buffer, data []byte) error

	Destroy() error
}

// ErrDeviceLost is returned by any Device method once Destroy has run.
var ErrDeviceLost = arerr.New(arerr.CodeGpuDeviceLost, "gpu: device destroyed")

// NewShaderCompileError builds the structured ShaderCompile error
// shape from spec.md §7.
func NewShaderCompileError(label, log string) error {
	return arerr.New(arerr.CodeShaderCompile, "gpu: shader compilation failed").
		WithContext("label", label).
		WithContext("log", log)
}

// NewBindLayoutError builds the structured BindLayout mismatch error.
func NewBindLayoutError(expected, got int) error {
	return arerr.New(arerr.CodeBindLayout, "gpu: bind group layout mismatch").
		WithContext("expected", expected).
		WithContext("got", got)
}

// ErrGPUUnavailable signals no backend could be initialized, with a
// suggestion to fall back to the emulation backend.
var ErrGPUUnavailable = arerr.New(arerr.CodeGpuUnavailable, "gpu: no compute backend available").
	WithRecoverable(arerr.Suggestion{
		Message: "fall back to the compute-emulation backend",
		Action:  "retry with Options.ForceEmulation set",
	})
