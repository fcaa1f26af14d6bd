//go:build !nogpu

// Package gpu is the engine backend that shades frames with a WebGPU
// compute pipeline through gogpu/wgpu.
//
// Build with the nogpu tag to leave it out.
package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	// Register the native HAL backends (Vulkan, Metal, DX12, GLES).
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/nqpz/squarezoom/internal/engine"
)

// Variants accepted after "gpu:".
const (
	VariantLowPower = "low-power"
	VariantFallback = "fallback"
)

func init() {
	engine.Register(engine.BackendGPU, func() engine.Backend { return backend{} })
}

type backend struct{}

func (backend) Name() string       { return engine.BackendGPU }
func (backend) Variants() []string { return []string{VariantLowPower, VariantFallback} }

func (backend) Open(variant string) (engine.Device, error) {
	opts := &wgpu.RequestAdapterOptions{PowerPreference: gputypes.PowerPreferenceHighPerformance}
	switch variant {
	case "":
	case VariantLowPower:
		opts.PowerPreference = gputypes.PowerPreferenceLowPower
	case VariantFallback:
		opts.ForceFallbackAdapter = true
	default:
		return nil, fmt.Errorf("%w: gpu:%s", engine.ErrUnknownDevice, variant)
	}
	dev, err := Open(opts)
	if err != nil {
		return nil, err
	}
	return dev, nil
}

// adapterType maps a wgpu device type onto the gpucontext classification.
func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}
