package engine

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
)

// Context owns an open Device. All entry points of a session go through it.
type Context struct {
	dev   Device
	sel   Selector
	info  gpucontext.AdapterInfo
	freed bool
}

// NewContext opens the device named by cfg. When cfg carries no explicit
// selector, backends are tried in priority order and the first one that
// opens is used.
func NewContext(cfg *Config) (*Context, error) {
	if cfg == nil || cfg.freed {
		return nil, ErrFreed
	}

	candidates := []Selector{cfg.sel}
	if !cfg.explicit {
		candidates = candidates[:0]
		for _, name := range Available() {
			candidates = append(candidates, Selector{Backend: name})
		}
	}

	var errs []error
	for _, sel := range candidates {
		b, ok := lookup(sel)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnknownDevice, sel))
			continue
		}
		dev, err := b.Open(sel.Variant)
		if err != nil {
			Logger().Warn("engine: backend unavailable", "device", sel.String(), "err", err)
			errs = append(errs, fmt.Errorf("open %s: %w", sel, err))
			continue
		}
		ctx := &Context{dev: dev, sel: sel, info: dev.Info()}
		Logger().Info("engine: device opened", "device", sel.String(), "adapter", ctx.info.Name, "type", ctx.info.Type.String())
		return ctx, nil
	}
	if len(errs) == 0 {
		return nil, ErrNoDevice
	}
	return nil, fmt.Errorf("%w: %w", ErrNoDevice, errors.Join(errs...))
}

// DeviceName returns the adapter name of the open device.
func (c *Context) DeviceName() string { return c.info.Name }

// AdapterInfo describes the open device.
func (c *Context) AdapterInfo() gpucontext.AdapterInfo { return c.info }

// Selector returns the backend and variant the context was opened with.
func (c *Context) Selector() Selector { return c.sel }

// Free releases the device. Calling Free again is a no-op.
func (c *Context) Free() {
	if c == nil || c.freed {
		return
	}
	c.freed = true
	c.dev.Release()
	Logger().Debug("engine: context freed", "device", c.sel.String())
}

// U32Array2D is a device-resident image of packed 0xAARRGGBB pixels.
type U32Array2D struct {
	arr   Array
	luma  float64
	freed bool
}

// NewU32Array2D copies height*width pixels, row-major, into a device array.
func (c *Context) NewU32Array2D(data []uint32, height, width int) (*U32Array2D, error) {
	if c.freed {
		return nil, ErrFreed
	}
	if height <= 0 || width <= 0 || len(data) != height*width {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d", ErrDimensions, len(data), width, height)
	}
	arr, err := c.dev.NewArray(data, width, height)
	if err != nil {
		return nil, fmt.Errorf("engine: upload image: %w", err)
	}
	return &U32Array2D{arr: arr, luma: meanLuma(data)}, nil
}

// Width returns the array width.
func (a *U32Array2D) Width() int { return a.arr.Width() }

// Height returns the array height.
func (a *U32Array2D) Height() int { return a.arr.Height() }

// Free releases the device memory. Calling Free again is a no-op.
func (a *U32Array2D) Free() {
	if a == nil || a.freed {
		return
	}
	a.freed = true
	a.arr.Release()
}

// meanLuma returns the average Rec. 601 luma of data in [0, 1].
func meanLuma(data []uint32) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, p := range data {
		r := float64(p >> 16 & 0xff)
		g := float64(p >> 8 & 0xff)
		b := float64(p & 0xff)
		sum += 0.299*r + 0.587*g + 0.114*b
	}
	return sum / float64(len(data)) / 255
}
