// Package cpu is the software engine backend. It shades frames on the host
// with a worker pool, one row band per worker.
package cpu

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/gogpu/gpucontext"

	"github.com/nqpz/squarezoom/internal/engine"
	"github.com/nqpz/squarezoom/internal/parallel"
)

// Variants accepted after "cpu:". "single" shades on the calling goroutine.
const VariantSingle = "single"

func init() {
	engine.Register(engine.BackendCPU, func() engine.Backend { return backend{} })
}

type backend struct{}

func (backend) Name() string       { return engine.BackendCPU }
func (backend) Variants() []string { return []string{VariantSingle} }

func (backend) Open(variant string) (engine.Device, error) {
	workers := runtime.GOMAXPROCS(0)
	switch variant {
	case "":
	case VariantSingle:
		workers = 1
	default:
		return nil, fmt.Errorf("%w: cpu:%s", engine.ErrUnknownDevice, variant)
	}
	return New(workers), nil
}

var errForeignArray = errors.New("cpu: array not owned by this device")

// Device shades frames with a parallel.Pool.
type Device struct {
	pool *parallel.Pool
}

// New starts a device with the given number of workers.
func New(workers int) *Device {
	return &Device{pool: parallel.NewPool(workers)}
}

func (d *Device) Info() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{
		Name: fmt.Sprintf("CPU (%d workers)", d.pool.Workers()),
		Type: gpucontext.AdapterTypeSoftware,
	}
}

func (d *Device) NewArray(data []uint32, width, height int) (engine.Array, error) {
	arr, err := engine.NewHostArray(data, width, height)
	if err != nil {
		return nil, err
	}
	return arr, nil
}

func (d *Device) Render(src engine.Array, p engine.Params, dst []uint32) error {
	host, ok := src.(*engine.HostArray)
	if !ok || host.Pix == nil {
		return errForeignArray
	}
	if len(dst) != p.Width*p.Height {
		return engine.ErrDimensions
	}
	d.pool.ForRows(p.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := dst[y*p.Width : (y+1)*p.Width]
			for x := range row {
				row[x] = engine.Shade(host.Pix, host.W, host.H, p, x, y)
			}
		}
	})
	return nil
}

// Release stops the worker pool.
func (d *Device) Release() {
	d.pool.Close()
}
