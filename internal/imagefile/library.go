//go:build !pamonly

package imagefile

import (
	"bufio"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

const jpegQuality = 95

// format is one entry of the library codec's dispatch table.
type format struct {
	name   string
	magic  []string // '?' matches any byte
	exts   []string
	decode func(io.Reader) (image.Image, error)
	encode func(io.Writer, image.Image) error // nil for decode-only formats
}

// initGuard builds the format table the first time it is needed. It is
// owned by the codec value New returns, so repeated Load and Save calls
// share one table and never re-initialize.
type initGuard struct {
	once    sync.Once
	formats []format
	inits   int
}

func (g *initGuard) table() []format {
	g.once.Do(func() {
		g.inits++
		g.formats = []format{
			{
				name:   "png",
				magic:  []string{"\x89PNG\r\n\x1a\n"},
				exts:   []string{".png"},
				decode: png.Decode,
				encode: png.Encode,
			},
			{
				name:   "jpeg",
				magic:  []string{"\xff\xd8"},
				exts:   []string{".jpg", ".jpeg"},
				decode: jpeg.Decode,
				encode: func(w io.Writer, m image.Image) error {
					return jpeg.Encode(w, m, &jpeg.Options{Quality: jpegQuality})
				},
			},
			{
				name:   "gif",
				magic:  []string{"GIF87a", "GIF89a"},
				exts:   []string{".gif"},
				decode: gif.Decode,
				encode: func(w io.Writer, m image.Image) error { return gif.Encode(w, m, nil) },
			},
			{
				name:   "bmp",
				magic:  []string{"BM????\x00\x00\x00\x00"},
				exts:   []string{".bmp"},
				decode: bmp.Decode,
				encode: bmp.Encode,
			},
			{
				name:   "tiff",
				magic:  []string{"II*\x00", "MM\x00*"},
				exts:   []string{".tif", ".tiff"},
				decode: tiff.Decode,
				encode: func(w io.Writer, m image.Image) error { return tiff.Encode(w, m, nil) },
			},
			{
				name:   "webp",
				magic:  []string{"RIFF????WEBPVP8"},
				exts:   []string{".webp"},
				decode: webp.Decode,
			},
		}
		slogger().Debug("imagefile: format table ready", "formats", len(g.formats))
	})
	return g.formats
}

// libraryCodec is the default backend. It sniffs the stream for a known
// signature and falls back to the path hint's extension.
type libraryCodec struct {
	guard *initGuard
}

// New returns the compiled-in codec.
func New() Codec { return &libraryCodec{guard: &initGuard{}} }

// Backend names the compiled-in codec.
func Backend() string { return "library" }

func (c *libraryCodec) Load(pathHint string, r io.Reader) (*Raster, error) {
	formats := c.guard.table()
	br := bufio.NewReader(r)

	// Peek reports io.EOF for streams shorter than the longest signature;
	// the shorter prefix is still usable.
	head, err := br.Peek(16)
	if len(head) == 0 && err != nil {
		return nil, truncatedStream(err)
	}

	f, ok := sniff(formats, head)
	if !ok {
		f, ok = byExtension(formats, pathHint)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, describeHint(pathHint))
	}

	img, err := f.decode(br)
	if err != nil {
		return nil, &FormatError{Format: f.name, Err: err}
	}
	out := FromImage(img)
	if out.Empty() {
		return nil, &FormatError{Format: f.name, Field: "dimensions", Got: "0x0"}
	}
	slogger().Debug("imagefile: decoded", "format", f.name, "width", out.Width, "height", out.Height)
	return out, nil
}

func (c *libraryCodec) Save(pathHint string, w io.Writer, img *Raster) error {
	if img.Empty() {
		return ErrEmptyImage
	}
	if len(img.Pix) != img.Width*img.Height {
		return ErrInvalidDimensions
	}
	formats := c.guard.table()

	f := formats[0] // png
	if filepath.Ext(pathHint) != "" {
		var ok bool
		f, ok = byExtension(formats, pathHint)
		if !ok || f.encode == nil {
			return fmt.Errorf("%w: %s", ErrUnsupportedFormat, describeHint(pathHint))
		}
	}
	if err := f.encode(w, img.ToNRGBA()); err != nil {
		return fmt.Errorf("imagefile: encode %s: %w", f.name, err)
	}
	return nil
}

func sniff(formats []format, head []byte) (format, bool) {
	for _, f := range formats {
		for _, m := range f.magic {
			if matchMagic(m, head) {
				return f, true
			}
		}
	}
	return format{}, false
}

func matchMagic(magic string, head []byte) bool {
	if len(head) < len(magic) {
		return false
	}
	for i := range len(magic) {
		if magic[i] != '?' && magic[i] != head[i] {
			return false
		}
	}
	return true
}

func byExtension(formats []format, pathHint string) (format, bool) {
	ext := strings.ToLower(filepath.Ext(pathHint))
	if ext == "" {
		return format{}, false
	}
	for _, f := range formats {
		for _, e := range f.exts {
			if e == ext {
				return f, true
			}
		}
	}
	return format{}, false
}

func describeHint(pathHint string) string {
	if pathHint == "" || pathHint == "-" {
		return "unrecognized stream"
	}
	return filepath.Base(pathHint)
}

func truncatedStream(err error) error {
	if err == io.EOF {
		return &FormatError{Format: "image", Err: io.ErrUnexpectedEOF}
	}
	return fmt.Errorf("imagefile: read: %w", err)
}
