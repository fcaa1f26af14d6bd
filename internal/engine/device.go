package engine

import (
	"errors"

	"github.com/gogpu/gpucontext"
)

var (
	// ErrNoDevice is returned when device selection produces nothing usable.
	ErrNoDevice = errors.New("engine: no usable device")

	// ErrUnknownDevice is returned for a device selector naming no
	// registered backend or variant.
	ErrUnknownDevice = errors.New("engine: unknown device")

	// ErrFreed is returned when an object is used after Free.
	ErrFreed = errors.New("engine: use after free")

	// ErrDimensions is returned when a buffer does not match the
	// dimensions it is used with.
	ErrDimensions = errors.New("engine: dimension mismatch")
)

// Backend opens devices of one kind. Variants lists the selectors accepted
// after the colon in "name:variant"; the empty variant is always accepted.
type Backend interface {
	Name() string
	Variants() []string
	Open(variant string) (Device, error)
}

// Device runs the per-pixel work of a frame.
type Device interface {
	// Info describes the adapter behind the device.
	Info() gpucontext.AdapterInfo

	// NewArray copies width*height packed pixels into device memory.
	NewArray(data []uint32, width, height int) (Array, error)

	// Render shades every pixel of dst, which holds p.Width*p.Height
	// pixels, by sampling src.
	Render(src Array, p Params, dst []uint32) error

	Release()
}

// Array is a 2D pixel array owned by a Device.
type Array interface {
	Width() int
	Height() int
	Release()
}

// HostArray is an Array kept in host memory. Devices without their own
// memory use it directly.
type HostArray struct {
	Pix  []uint32
	W, H int
}

// NewHostArray copies data into a new HostArray.
func NewHostArray(data []uint32, width, height int) (*HostArray, error) {
	if width <= 0 || height <= 0 || len(data) != width*height {
		return nil, ErrDimensions
	}
	return &HostArray{Pix: append([]uint32(nil), data...), W: width, H: height}, nil
}

func (a *HostArray) Width() int  { return a.W }
func (a *HostArray) Height() int { return a.H }
func (a *HostArray) Release()    { a.Pix = nil }
