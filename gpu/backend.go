//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	fracstream "github.com/fracstream/fracstream"
)

// fenceTimeout is the maximum time to wait for a dispatch to complete.
const fenceTimeout = 5 * time.Second

// Backend renders whole frames on the GPU. It satisfies the engine's
// Accelerator interface. A Backend owns its device and must be closed;
// Render is safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	module   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.ComputePipeline

	// Size-dependent buffers, recreated when the frame dimensions change.
	uniform hal.Buffer
	output  hal.Buffer
	staging hal.Buffer
	bufW    uint32
	bufH    uint32

	ready bool
}

// New opens a standalone Vulkan device and compiles the orbit pipeline. The
// returned backend is ready to render; callers that get an error should run
// without acceleration.
func New() (*Backend, error) {
	b := &Backend{}
	if err := b.initGPU(); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.initPipeline(); err != nil {
		b.Close()
		return nil, err
	}
	b.ready = true
	return b, nil
}

func (b *Backend) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("gpu: no adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("gpu: open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue

	slogger().Info("gpu: device initialized", "adapter", selected.Info.Name)
	return nil
}

func (b *Backend) initPipeline() error {
	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "orbit",
		Source: hal.ShaderSource{WGSL: orbitShaderWGSL},
	})
	if err != nil {
		return fmt.Errorf("gpu: create shader module: %w", err)
	}
	b.module = module

	bgLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "orbit_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageCompute,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group layout: %w", err)
	}
	b.bgLayout = bgLayout

	layout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "orbit_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}
	b.layout = layout

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "orbit",
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create compute pipeline: %w", err)
	}
	b.pipeline = pipeline

	slogger().Debug("gpu: orbit pipeline created", "shader_bytes", len(orbitShaderWGSL))
	return nil
}

// ensureBuffers (re)creates the frame buffers when dimensions change. Called
// with b.mu held.
func (b *Backend) ensureBuffers(w, h uint32) error {
	if b.uniform == nil {
		buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "orbit_params",
			Size:  paramsSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("gpu: create uniform buffer: %w", err)
		}
		b.uniform = buf
	}

	if b.output != nil && b.bufW == w && b.bufH == h {
		return nil
	}
	b.destroyFrameBuffers()

	size := uint64(w) * uint64(h) * 4
	output, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "orbit_output",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("gpu: create output buffer: %w", err)
	}
	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "orbit_staging",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		b.device.DestroyBuffer(output)
		return fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	b.output = output
	b.staging = staging
	b.bufW = w
	b.bufH = h
	return nil
}

func (b *Backend) destroyFrameBuffers() {
	if b.output != nil {
		b.device.DestroyBuffer(b.output)
		b.output = nil
	}
	if b.staging != nil {
		b.device.DestroyBuffer(b.staging)
		b.staging = nil
	}
	b.bufW, b.bufH = 0, 0
}

// Render dispatches one frame and blocks until the pixels are read back.
// The result is RGBA8, width*height*4 bytes, top row first.
func (b *Backend) Render(p fracstream.RenderPayload, kind fracstream.FormulaKind) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return nil, fmt.Errorf("gpu: backend closed")
	}
	w, h := uint32(p.Width), uint32(p.Height)
	if err := b.ensureBuffers(w, h); err != nil {
		return nil, err
	}

	b.queue.WriteBuffer(b.uniform, 0, paramsFor(p, kind).toBytes())

	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "orbit_bg",
		Layout: b.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: b.uniform.NativeHandle()}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: b.output.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bg)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "orbit"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("orbit"); err != nil {
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "orbit"})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(workgroupCount(w), workgroupCount(h), 1)
	pass.End()

	size := uint64(w) * uint64(h) * 4
	encoder.CopyBufferToBuffer(b.output, b.staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("gpu: create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return nil, fmt.Errorf("gpu: submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return nil, fmt.Errorf("gpu: wait: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("gpu: timeout after %v", fenceTimeout)
	}

	// The shader packs each pixel as r|g<<8|b<<16|a<<24, so the readback
	// bytes are already RGBA order.
	pixels := make([]byte, size)
	if err := b.queue.ReadBuffer(b.staging, 0, pixels); err != nil {
		return nil, fmt.Errorf("gpu: readback: %w", err)
	}

	slogger().Debug("gpu: frame rendered",
		"size", fmt.Sprintf("%dx%d", w, h),
		"max_iter", p.MaxIterations)
	return pixels, nil
}

// Close releases all GPU resources. The backend must not be used afterwards.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ready = false
	if b.device != nil {
		b.destroyFrameBuffers()
		if b.uniform != nil {
			b.device.DestroyBuffer(b.uniform)
			b.uniform = nil
		}
		if b.pipeline != nil {
			b.device.DestroyComputePipeline(b.pipeline)
			b.pipeline = nil
		}
		if b.layout != nil {
			b.device.DestroyPipelineLayout(b.layout)
			b.layout = nil
		}
		if b.bgLayout != nil {
			b.device.DestroyBindGroupLayout(b.bgLayout)
			b.bgLayout = nil
		}
		if b.module != nil {
			b.device.DestroyShaderModule(b.module)
			b.module = nil
		}
		b.device.Destroy()
		b.device = nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
	b.queue = nil
}
