package imagefile

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestPackUnpack(t *testing.T) {
	p := Pack(0x12, 0x34, 0x56, 0x78)
	if p != 0x78123456 {
		t.Fatalf("Pack() = %#08x, want %#08x", p, 0x78123456)
	}
	r, g, b, a := Unpack(p)
	if r != 0x12 || g != 0x34 || b != 0x56 || a != 0x78 {
		t.Errorf("Unpack() = (%#x, %#x, %#x, %#x), want (0x12, 0x34, 0x56, 0x78)", r, g, b, a)
	}
}

func TestNewRaster_InvalidDimensions(t *testing.T) {
	for _, d := range [][2]int{{0, 1}, {1, 0}, {-3, 4}} {
		if _, err := NewRaster(d[0], d[1]); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("NewRaster(%d, %d) error = %v, want ErrInvalidDimensions", d[0], d[1], err)
		}
	}
}

func TestRaster_AtSet(t *testing.T) {
	img, _ := NewRaster(3, 2)
	img.Set(2, 1, 0xff010203)
	img.Set(5, 5, 0xffffffff) // ignored

	if got := img.At(2, 1); got != 0xff010203 {
		t.Errorf("At(2, 1) = %#08x, want %#08x", got, 0xff010203)
	}
	if got := img.Pix[5]; got != 0xff010203 {
		t.Errorf("Pix[5] = %#08x, want row-major storage", got)
	}
	if got := img.At(-1, 0); got != 0 {
		t.Errorf("At(-1, 0) = %#08x, want 0", got)
	}
}

func TestRaster_Release(t *testing.T) {
	img, _ := NewRaster(4, 4)
	img.Release()
	if !img.Empty() {
		t.Error("raster not empty after Release")
	}
	img.Release()

	var nilRaster *Raster
	nilRaster.Release()
	if !nilRaster.Empty() {
		t.Error("nil raster should be empty")
	}
}

func TestFromImage_NRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.SetNRGBA(1, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	img := FromImage(src)
	if img.Width != 4 || img.Height != 3 {
		t.Fatalf("dimensions = %dx%d, want 4x3", img.Width, img.Height)
	}
	if got, want := img.At(1, 2), Pack(200, 100, 50, 128); got != want {
		t.Errorf("At(1, 2) = %#08x, want %#08x", got, want)
	}
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := image.NewGray(image.Rect(10, 20, 12, 22))
	src.SetGray(11, 21, color.Gray{Y: 77})

	img := FromImage(src)
	if img.Width != 2 || img.Height != 2 {
		t.Fatalf("dimensions = %dx%d, want 2x2", img.Width, img.Height)
	}
	if got, want := img.At(1, 1), Pack(77, 77, 77, 255); got != want {
		t.Errorf("At(1, 1) = %#08x, want %#08x", got, want)
	}
}

func TestToNRGBA_RoundTrip(t *testing.T) {
	img, _ := NewRaster(5, 4)
	for i := range img.Pix {
		img.Pix[i] = uint32(i)*0x01030507 | 0x80000000
	}
	back := FromImage(img.ToNRGBA())
	for i := range img.Pix {
		if back.Pix[i] != img.Pix[i] {
			t.Fatalf("Pix[%d] = %#08x, want %#08x", i, back.Pix[i], img.Pix[i])
		}
	}
}

func TestRaster_Resize(t *testing.T) {
	img, _ := NewRaster(8, 8)
	for i := range img.Pix {
		img.Pix[i] = 0xff336699
	}

	same, err := img.Resize(8, 8)
	if err != nil {
		t.Fatalf("Resize(8, 8) error = %v", err)
	}
	if &same.Pix[0] == &img.Pix[0] {
		t.Error("Resize to the same size must copy the buffer")
	}

	big, err := img.Resize(16, 4)
	if err != nil {
		t.Fatalf("Resize(16, 4) error = %v", err)
	}
	if big.Width != 16 || big.Height != 4 || len(big.Pix) != 64 {
		t.Fatalf("Resize(16, 4) = %dx%d with %d pixels", big.Width, big.Height, len(big.Pix))
	}
	if got := big.At(7, 2); got != 0xff336699 {
		t.Errorf("At(7, 2) = %#08x, want uniform colour %#08x", got, 0xff336699)
	}

	if _, err := img.Resize(0, 4); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Resize(0, 4) error = %v, want ErrInvalidDimensions", err)
	}
}
