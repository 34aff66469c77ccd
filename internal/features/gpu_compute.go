package features

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/arkit-go/engine/internal/gpu"
)

// responseShaderSource is a placeholder: CompileShader only checks
// that source is non-empty, and the CPU kernel registered under the
// same label supplies the real per-dispatch behavior (spec.md §4.1).
const responseShaderSource = "// compute shader: FAST-12 corner response over an R8 luminance buffer\n"

// byteGray adapts a flat pixel buffer to grayscaleSource so a kernel
// closure can reuse Response without depending on preprocess.Luminance.
type byteGray struct {
	pix           []byte
	width, height int
}

func (g byteGray) At(x, y int) uint8 { return g.pix[y*g.width+x] }
func (g byteGray) Dims() (int, int)  { return g.width, g.height }

// GPUResponseStage evaluates the FAST corner response at every pixel
// of a fixed-size image through the Device contract — the
// embarrassingly-parallel half of FAST detection, since each pixel's
// response depends only on its own 3px neighborhood. Non-max
// suppression and top-K selection (DetectKeypointsFromResponses) stay
// on the CPU: that reduction is inherently serial and gains nothing
// from a compute pass.
type GPUResponseStage struct {
	device        gpu.Device
	pipeline      gpu.ComputePipeline
	input         *gpu.Buffer
	output        *gpu.Buffer
	bindGroup     gpu.BindGroup
	width, height int
}

// NewGPUResponseStage builds a persistent response-map stage for a
// fixed frame size and FAST threshold.
func NewGPUResponseStage(device gpu.Device, width, height, threshold int) (*GPUResponseStage, error) {
	const label = "features.fast_response"
	shader, err := device.CompileShader(label, responseShaderSource)
	if err != nil {
		return nil, err
	}

	kernel := func(_, _, _ uint32, inputs [][]byte) [][]byte {
		if len(inputs) == 0 {
			return inputs
		}
		src := byteGray{pix: inputs[0], width: width, height: height}
		out := make([]byte, width*height*8)
		for y := 3; y < height-3; y++ {
			for x := 3; x < width-3; x++ {
				r := Response(src, x, y, threshold)
				binary.LittleEndian.PutUint64(out[(y*width+x)*8:], math.Float64bits(r))
			}
		}
		return [][]byte{inputs[0], out}
	}
	if err := device.RegisterComputeKernel(label, kernel); err != nil {
		return nil, err
	}

	pipeline, err := device.CreateComputePipeline(shader, "main")
	if err != nil {
		return nil, err
	}
	input, err := device.CreateBuffer(gpu.BufferDescriptor{
		Label: label + ".input", Size: width * height,
		Usage: gpu.BufferUsageStorage | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	output, err := device.CreateBuffer(gpu.BufferDescriptor{
		Label: label + ".output", Size: width * height * 8,
		Usage: gpu.BufferUsageStorage | gpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, err
	}
	bindGroup, err := device.CreateBindGroup([]gpu.BindGroupEntry{
		{Binding: 0, Buffer: input},
		{Binding: 1, Buffer: output},
	})
	if err != nil {
		return nil, err
	}

	return &GPUResponseStage{
		device: device, pipeline: *pipeline, input: input, output: output,
		bindGroup: *bindGroup, width: width, height: height,
	}, nil
}

// Run uploads pix (a width*height grayscale buffer), dispatches one
// compute pass, and returns the per-pixel response map read back from
// the output buffer.
func (s *GPUResponseStage) Run(ctx context.Context, pix []byte) ([]float64, error) {
	if err := s.device.WriteBuffer(s.input, pix); err != nil {
		return nil, err
	}
	enc := s.device.CreateCommandEncoder()
	enc.BeginComputePass(s.pipeline, s.bindGroup, uint32(s.width), uint32(s.height), 1)
	if err := s.device.Submit(ctx, enc); err != nil {
		return nil, err
	}
	raw, err := s.device.ReadBuffer(ctx, s.output)
	if err != nil {
		return nil, err
	}
	responses := make([]float64, s.width*s.height)
	for i := range responses {
		responses[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return responses, nil
}
