package preprocess

import (
	"context"

	"github.com/arkit-go/engine/internal/gpu"
)

// These are placeholder shader source strings: CompileShader only
// checks that source is non-empty (spec.md §4.1 — this module has no
// real shader compiler behind it), and the CPU kernel registered under
// the same label via RegisterComputeKernel supplies the actual
// per-dispatch behavior.
const (
	gaussianBlurShaderSource       = "// compute shader: separable gaussian blur over an R8 luminance buffer\n"
	adaptiveThresholdShaderSource  = "// compute shader: integral-image adaptive mean threshold over an R8 luminance buffer\n"
)

// GPUStage is one persistent compute pipeline — shader, pipeline,
// input buffer, bind group — built once against a fixed frame size
// and dispatched every frame via WriteBuffer/Submit/ReadBuffer, so
// neither the resource tracker nor per-frame allocation grows with
// frame count. MarkerPlugin and Orchestrator each hold one, satisfying
// spec.md §4.1's requirement that preprocessing run through the Device
// contract rather than as a bare function call.
type GPUStage struct {
	device        gpu.Device
	pipeline      gpu.ComputePipeline
	input         *gpu.Buffer
	bindGroup     gpu.BindGroup
	width, height int
}

func newGPUStage(device gpu.Device, label, shaderSource string, width, height int, kernel gpu.ComputeKernel) (*GPUStage, error) {
	shader, err := device.CompileShader(label, shaderSource)
	if err != nil {
		return nil, err
	}
	if err := device.RegisterComputeKernel(label, kernel); err != nil {
		return nil, err
	}
	pipeline, err := device.CreateComputePipeline(shader, "main")
	if err != nil {
		return nil, err
	}
	buf, err := device.CreateBuffer(gpu.BufferDescriptor{
		Label: label,
		Size:  width * height,
		Usage: gpu.BufferUsageStorage | gpu.BufferUsageCopyDst | gpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, err
	}
	bindGroup, err := device.CreateBindGroup([]gpu.BindGroupEntry{{Binding: 0, Buffer: buf}})
	if err != nil {
		return nil, err
	}
	return &GPUStage{device: device, pipeline: *pipeline, input: buf, bindGroup: *bindGroup, width: width, height: height}, nil
}

// Run writes src into the stage's persistent buffer, dispatches one
// compute pass sized to the image dimensions, and reads the result
// back as a new Luminance.
func (s *GPUStage) Run(ctx context.Context, src *Luminance) (*Luminance, error) {
	if err := s.device.WriteBuffer(s.input, src.Pix); err != nil {
		return nil, err
	}
	enc := s.device.CreateCommandEncoder()
	enc.BeginComputePass(s.pipeline, s.bindGroup, uint32(s.width), uint32(s.height), 1)
	if err := s.device.Submit(ctx, enc); err != nil {
		return nil, err
	}
	out, err := s.device.ReadBuffer(ctx, s.input)
	if err != nil {
		return nil, err
	}
	return &Luminance{Pix: out, Width: s.width, Height: s.height}, nil
}

// NewGaussianBlurStage builds a persistent GPU-dispatched blur stage
// that runs the same separable kernel as GaussianBlur, through the
// Device contract.
func NewGaussianBlurStage(device gpu.Device, width, height, kernelSize int) (*GPUStage, error) {
	kernel := func(_, _, _ uint32, inputs [][]byte) [][]byte {
		if len(inputs) == 0 {
			return inputs
		}
		blurred := GaussianBlur(&Luminance{Pix: inputs[0], Width: width, Height: height}, kernelSize)
		return [][]byte{blurred.Pix}
	}
	return newGPUStage(device, "preprocess.gaussian_blur", gaussianBlurShaderSource, width, height, kernel)
}

// NewAdaptiveThresholdStage builds a persistent GPU-dispatched
// adaptive-threshold stage running the same integral-image algorithm
// as AdaptiveThreshold, through the Device contract.
func NewAdaptiveThresholdStage(device gpu.Device, width, height, blockSize int, constant float64) (*GPUStage, error) {
	kernel := func(_, _, _ uint32, inputs [][]byte) [][]byte {
		if len(inputs) == 0 {
			return inputs
		}
		out := AdaptiveThreshold(&Luminance{Pix: inputs[0], Width: width, Height: height}, blockSize, constant)
		return [][]byte{out.Pix}
	}
	return newGPUStage(device, "preprocess.adaptive_threshold", adaptiveThresholdShaderSource, width, height, kernel)
}
