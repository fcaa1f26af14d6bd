// Package overlay draws the heads-up text shown on top of rendered frames.
//
// The font is the embedded Go Mono face. Its size follows the window: use
// FontSize to derive it and rebuild the Font whenever the window size
// changes.
package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"

	gotext "github.com/go-text/typesetting/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Font size bounds in pixels.
const (
	MinFontSize = 14
	MaxFontSize = 32

	// fontSizeDivisor is how many text lines of the smaller window side
	// one line of overlay text occupies.
	fontSizeDivisor = 45
)

// ErrClosed is returned when a closed Font is used.
var ErrClosed = errors.New("overlay: font closed")

// FontSize derives the overlay font size from window dimensions:
// min(width, height)/45 clamped to [MinFontSize, MaxFontSize].
func FontSize(width, height int) int {
	return max(MinFontSize, min(min(width, height)/fontSizeDivisor, MaxFontSize))
}

// parsed holds the font data parsed once per process. Both parsed forms
// are read-only and shared by every Font.
type parsed struct {
	otf   *opentype.Font
	shape *gotext.Font
}

var parseFont = sync.OnceValues(func() (*parsed, error) {
	otf, err := opentype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font: %w", err)
	}
	face, err := gotext.ParseTTF(bytes.NewReader(gomono.TTF))
	if err != nil {
		return nil, fmt.Errorf("overlay: parse font for shaping: %w", err)
	}
	return &parsed{otf: otf, shape: face.Font}, nil
})

// Font is a face at one pixel size.
type Font struct {
	size   int
	src    *parsed
	face   font.Face
	closed bool
}

// OpenFont builds the overlay face at size pixels.
func OpenFont(size int) (*Font, error) {
	if size <= 0 {
		return nil, fmt.Errorf("overlay: invalid font size %d", size)
	}
	src, err := parseFont()
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(src.otf, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("overlay: font face at %dpx: %w", size, err)
	}
	return &Font{size: size, src: src, face: face}, nil
}

// Size returns the pixel size the font was opened at.
func (f *Font) Size() int { return f.size }

// Family returns the font family name.
func (f *Font) Family() string {
	name, err := f.src.otf.Name(nil, sfnt.NameIDFamily)
	if err != nil {
		return ""
	}
	return name
}

// LineHeight returns the distance between baselines in pixels.
func (f *Font) LineHeight() int {
	return f.face.Metrics().Height.Ceil()
}

func (f *Font) ascent() int {
	return f.face.Metrics().Ascent.Ceil()
}

// Closed reports whether Close has been called.
func (f *Font) Closed() bool { return f.closed }

// Close releases the face. Calling Close again is a no-op.
func (f *Font) Close() error {
	if f == nil || f.closed {
		return nil
	}
	f.closed = true
	return f.face.Close()
}

// Measure returns the width in pixels of the widest line of text.
func (f *Font) Measure(text string) int {
	widest := fixed.Int26_6(0)
	for _, line := range strings.Split(text, "\n") {
		widest = max(widest, f.advance(line))
	}
	return widest.Ceil()
}
