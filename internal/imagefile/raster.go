package imagefile

import (
	"errors"
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// ErrInvalidDimensions is returned when a raster would have a non-positive
// width or height.
var ErrInvalidDimensions = errors.New("imagefile: invalid dimensions")

// Opaque is the alpha value, in packed position, of a fully opaque pixel.
const Opaque uint32 = 0xff000000

// Raster is a rectangular buffer of packed 32-bit pixels.
//
// Each pixel stores alpha in the high byte followed by red, green and blue,
// i.e. 0xAARRGGBB. Rows are stored top to bottom without padding, so
// len(Pix) == Width*Height.
type Raster struct {
	Pix    []uint32
	Width  int
	Height int
}

// NewRaster allocates a zeroed raster.
func NewRaster(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	return &Raster{
		Pix:    make([]uint32, width*height),
		Width:  width,
		Height: height,
	}, nil
}

// Pack builds a packed pixel from 8-bit channels.
func Pack(r, g, b, a uint8) uint32 {
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Unpack splits a packed pixel into 8-bit channels.
func Unpack(p uint32) (r, g, b, a uint8) {
	return uint8(p >> 16), uint8(p >> 8), uint8(p), uint8(p >> 24)
}

// At returns the pixel at (x, y). Out of range coordinates return 0.
func (r *Raster) At(x, y int) uint32 {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return 0
	}
	return r.Pix[y*r.Width+x]
}

// Set stores the pixel at (x, y). Out of range coordinates are ignored.
func (r *Raster) Set(x, y int, p uint32) {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return
	}
	r.Pix[y*r.Width+x] = p
}

// Empty reports whether the raster holds no pixels.
func (r *Raster) Empty() bool {
	return r == nil || len(r.Pix) == 0 || r.Width <= 0 || r.Height <= 0
}

// Release drops the pixel buffer. The raster is empty afterwards and
// calling Release again is a no-op.
func (r *Raster) Release() {
	if r == nil {
		return
	}
	r.Pix = nil
	r.Width = 0
	r.Height = 0
}

// ToNRGBA converts the raster to a non-premultiplied standard image.
func (r *Raster) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := range r.Height {
		row := r.Pix[y*r.Width : (y+1)*r.Width]
		off := y * img.Stride
		for x, p := range row {
			img.Pix[off+x*4+0] = uint8(p >> 16)
			img.Pix[off+x*4+1] = uint8(p >> 8)
			img.Pix[off+x*4+2] = uint8(p)
			img.Pix[off+x*4+3] = uint8(p >> 24)
		}
	}
	return img
}

// FromImage converts any standard image to a raster. The result always has
// its origin at (0, 0).
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}

	r := &Raster{
		Pix:    make([]uint32, b.Dx()*b.Dy()),
		Width:  b.Dx(),
		Height: b.Dy(),
	}
	for y := range r.Height {
		off := y * nrgba.Stride
		row := r.Pix[y*r.Width : (y+1)*r.Width]
		for x := range row {
			px := nrgba.Pix[off+x*4 : off+x*4+4 : off+x*4+4]
			row[x] = Pack(px[0], px[1], px[2], px[3])
		}
	}
	return r
}

// Resize returns a copy of the raster scaled to width x height with
// bilinear filtering. A raster that already has the requested size is
// copied without filtering.
func (r *Raster) Resize(width, height int) (*Raster, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if r.Empty() {
		return nil, ErrInvalidDimensions
	}
	if width == r.Width && height == r.Height {
		out := &Raster{Pix: make([]uint32, len(r.Pix)), Width: width, Height: height}
		copy(out.Pix, r.Pix)
		return out, nil
	}
	scaled := resize.Resize(uint(width), uint(height), r.ToNRGBA(), resize.Bilinear)
	return FromImage(scaled), nil
}

// ColorAt returns the pixel at (x, y) as a color.NRGBA.
func (r *Raster) ColorAt(x, y int) color.NRGBA {
	cr, cg, cb, ca := Unpack(r.At(x, y))
	return color.NRGBA{R: cr, G: cg, B: cb, A: ca}
}
