package overlay

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/width"

	"github.com/nqpz/squarezoom/internal/imagefile"
)

// backdropPad is the margin in pixels between the text and its backdrop.
const backdropPad = 4

// canvas lets the standard drawing packages write into a Raster.
type canvas struct {
	r *imagefile.Raster
}

func (c canvas) ColorModel() color.Model { return color.NRGBAModel }

func (c canvas) Bounds() image.Rectangle { return image.Rect(0, 0, c.r.Width, c.r.Height) }

func (c canvas) At(x, y int) color.Color { return c.r.ColorAt(x, y) }

func (c canvas) Set(x, y int, col color.Color) {
	n := color.NRGBAModel.Convert(col).(color.NRGBA)
	c.r.Set(x, y, imagefile.Pack(n.R, n.G, n.B, n.A))
}

// Draw writes text onto dst with its top-left corner at (x, y), one line
// per '\n', over a translucent backdrop that contrasts with colour.
// Fullwidth characters are narrowed first since the face is monospaced
// Latin. Drawing with a closed font returns ErrClosed.
func (f *Font) Draw(dst *imagefile.Raster, text string, colour uint32, x, y int) error {
	if f.closed {
		return ErrClosed
	}
	if dst.Empty() || text == "" {
		return nil
	}
	text = width.Narrow.String(text)
	lines := strings.Split(text, "\n")
	c := canvas{r: dst}

	r, g, b, a := imagefile.Unpack(colour)
	box := image.Rect(x, y, x+f.Measure(text), y+len(lines)*f.LineHeight()).Inset(-backdropPad)
	draw.Draw(c, box, image.NewUniform(backdrop(r, g, b)), image.Point{}, draw.Over)

	d := font.Drawer{
		Dst:  c,
		Src:  image.NewUniform(color.NRGBA{R: r, G: g, B: b, A: a}),
		Face: f.face,
	}
	for i, line := range lines {
		d.Dot = fixed.P(x, y+f.ascent()+i*f.LineHeight())
		d.DrawString(line)
	}
	return nil
}

// backdrop picks a half-transparent black or white opposite to the text.
func backdrop(r, g, b uint8) color.NRGBA {
	luma := (299*int(r) + 587*int(g) + 114*int(b)) / 1000
	if luma > 127 {
		return color.NRGBA{A: 0x80}
	}
	return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0x80}
}
