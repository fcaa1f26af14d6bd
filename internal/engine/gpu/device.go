//go:build !nogpu

package gpu

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/nqpz/squarezoom/internal/engine"
)

// readbackTimeout bounds the wait for a frame to map back to the host.
const readbackTimeout = 5 * time.Second

var errForeignArray = errors.New("gpu: array not owned by this device")

// Device owns a wgpu device and the zoom compute pipeline.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	info     gpucontext.AdapterInfo

	shader         *wgpu.ShaderModule
	bgLayout       *wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	pipeline       *wgpu.ComputePipeline
	uniform        *wgpu.Buffer

	frame *frameBuffers
}

// frameBuffers are the per-size output buffers and the bind group that
// ties them to one source array.
type frameBuffers struct {
	src       *array
	size      uint64
	output    *wgpu.Buffer
	staging   *wgpu.Buffer
	bindGroup *wgpu.BindGroup
}

func (f *frameBuffers) release() {
	f.bindGroup.Release()
	f.staging.Release()
	f.output.Release()
}

// Open creates an instance, picks an adapter with opts and builds the
// compute pipeline. On failure everything created so far is released.
func Open(opts *wgpu.RequestAdapterOptions) (*Device, error) {
	if err := validateShader(); err != nil {
		return nil, err
	}

	d := &Device{}
	ok := false
	defer func() {
		if !ok {
			d.Release()
		}
	}()

	var err error
	d.instance, err = wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	d.adapter, err = d.instance.RequestAdapter(opts)
	if err != nil {
		return nil, fmt.Errorf("gpu: request adapter: %w", err)
	}
	info := d.adapter.Info()
	d.info = gpucontext.AdapterInfo{Name: info.Name, Type: adapterType(info.DeviceType)}
	engine.Logger().Debug("gpu: adapter", "name", info.Name, "type", info.DeviceType.String(), "backend", fmt.Sprint(info.Backend))

	d.device, err = d.adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("gpu: request device: %w", err)
	}
	if err := d.buildPipeline(); err != nil {
		return nil, err
	}

	ok = true
	return d, nil
}

func (d *Device) buildPipeline() error {
	var err error
	d.shader, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "zoom-shader", WGSL: zoomShaderWGSL,
	})
	if err != nil {
		return fmt.Errorf("gpu: create shader: %w", err)
	}
	d.bgLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "zoom-bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 2, Visibility: wgpu.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group layout: %w", err)
	}
	d.pipelineLayout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label: "zoom-pl", BindGroupLayouts: []*wgpu.BindGroupLayout{d.bgLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}
	d.pipeline, err = d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "zoom-pipeline", Layout: d.pipelineLayout, Module: d.shader, EntryPoint: "main",
	})
	if err != nil {
		return fmt.Errorf("gpu: create compute pipeline: %w", err)
	}
	d.uniform, err = d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "zoom-params", Size: paramsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("gpu: create uniform buffer: %w", err)
	}
	return nil
}

func (d *Device) Info() gpucontext.AdapterInfo { return d.info }

// array is a source image in a read-only storage buffer.
type array struct {
	buf  *wgpu.Buffer
	w, h int
}

func (a *array) Width() int  { return a.w }
func (a *array) Height() int { return a.h }
func (a *array) Release()    { a.buf.Release() }

func (d *Device) NewArray(data []uint32, width, height int) (engine.Array, error) {
	if width <= 0 || height <= 0 || len(data) != width*height {
		return nil, engine.ErrDimensions
	}
	size := uint64(len(data) * 4)
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "zoom-src", Size: size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create source buffer: %w", err)
	}
	if err := d.device.Queue().WriteBuffer(buf, 0, encodePixels(data)); err != nil {
		buf.Release()
		return nil, fmt.Errorf("gpu: write source buffer: %w", err)
	}
	return &array{buf: buf, w: width, h: height}, nil
}

// Render dispatches one 8x8 workgroup per tile of the frame and reads the
// result back into dst.
func (d *Device) Render(src engine.Array, p engine.Params, dst []uint32) error {
	a, ok := src.(*array)
	if !ok {
		return errForeignArray
	}
	if len(dst) != p.Width*p.Height {
		return engine.ErrDimensions
	}
	size := uint64(len(dst) * 4)
	fb, err := d.frameFor(a, size)
	if err != nil {
		return err
	}
	if err := d.device.Queue().WriteBuffer(d.uniform, 0, encodeParams(p, a)); err != nil {
		return fmt.Errorf("gpu: write params: %w", err)
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("gpu: create encoder: %w", err)
	}
	pass, err := encoder.BeginComputePass(nil)
	if err != nil {
		return fmt.Errorf("gpu: begin compute pass: %w", err)
	}
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, fb.bindGroup, nil)
	pass.Dispatch(groups(p.Width), groups(p.Height), 1)
	if err := pass.End(); err != nil {
		return fmt.Errorf("gpu: end compute pass: %w", err)
	}
	encoder.CopyBufferToBuffer(fb.output, 0, fb.staging, 0, size)
	cmdBuf, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("gpu: finish encoder: %w", err)
	}
	if _, err := d.device.Queue().Submit(cmdBuf); err != nil {
		return fmt.Errorf("gpu: submit: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), readbackTimeout)
	defer cancel()
	if err := fb.staging.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("gpu: map frame: %w", err)
	}
	rng, err := fb.staging.MappedRange(0, size)
	if err != nil {
		_ = fb.staging.Unmap()
		return fmt.Errorf("gpu: frame mapped range: %w", err)
	}
	decodePixels(dst, rng.Bytes())
	if err := fb.staging.Unmap(); err != nil {
		return fmt.Errorf("gpu: unmap frame: %w", err)
	}
	return nil
}

// frameFor returns output buffers of the given size bound to src, creating
// them when the frame size or source changed.
func (d *Device) frameFor(src *array, size uint64) (*frameBuffers, error) {
	if d.frame != nil && d.frame.src == src && d.frame.size == size {
		return d.frame, nil
	}
	if d.frame != nil {
		d.frame.release()
		d.frame = nil
	}

	output, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "zoom-dst", Size: size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create output buffer: %w", err)
	}
	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "zoom-staging", Size: size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		output.Release()
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	bindGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label: "zoom-bg", Layout: d.bgLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: src.buf, Size: uint64(src.w * src.h * 4)},
			{Binding: 1, Buffer: output, Size: size},
			{Binding: 2, Buffer: d.uniform, Size: paramsSize},
		},
	})
	if err != nil {
		staging.Release()
		output.Release()
		return nil, fmt.Errorf("gpu: create bind group: %w", err)
	}

	d.frame = &frameBuffers{src: src, size: size, output: output, staging: staging, bindGroup: bindGroup}
	return d.frame, nil
}

// Release frees every GPU object in reverse creation order. It tolerates
// a partially opened device.
func (d *Device) Release() {
	if d.frame != nil {
		d.frame.release()
		d.frame = nil
	}
	if d.uniform != nil {
		d.uniform.Release()
		d.uniform = nil
	}
	if d.pipeline != nil {
		d.pipeline.Release()
		d.pipeline = nil
	}
	if d.pipelineLayout != nil {
		d.pipelineLayout.Release()
		d.pipelineLayout = nil
	}
	if d.bgLayout != nil {
		d.bgLayout.Release()
		d.bgLayout = nil
	}
	if d.shader != nil {
		d.shader.Release()
		d.shader = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func groups(n int) uint32 {
	return uint32((n + workgroupSize - 1) / workgroupSize)
}

func encodeParams(p engine.Params, src *array) []byte {
	buf := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(p.Width))
	binary.LittleEndian.PutUint32(buf[4:], uint32(p.Height))
	binary.LittleEndian.PutUint32(buf[8:], uint32(src.w))
	binary.LittleEndian.PutUint32(buf[12:], uint32(src.h))
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(p.Scale))
	binary.LittleEndian.PutUint32(buf[20:], uint32(p.Mode))
	return buf
}

func encodePixels(pix []uint32) []byte {
	buf := make([]byte, len(pix)*4)
	for i, p := range pix {
		binary.LittleEndian.PutUint32(buf[i*4:], p)
	}
	return buf
}

func decodePixels(dst []uint32, b []byte) {
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
}
