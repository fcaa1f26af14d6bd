package imagefile

import (
	"errors"
	"fmt"
	"io"
)

// Codec errors.
var (
	// ErrFormat is the error all *FormatError values match with errors.Is.
	ErrFormat = errors.New("imagefile: malformed image")

	// ErrUnsupportedFormat is returned when no decoder or encoder matches.
	ErrUnsupportedFormat = errors.New("imagefile: unsupported format")

	// ErrEmptyImage is returned by Save for a nil or empty raster.
	ErrEmptyImage = errors.New("imagefile: empty image")
)

// Codec loads and saves rasters from and to streams.
//
// pathHint names the file the stream belongs to. Backends may use its
// extension to choose a format; they never open it.
type Codec interface {
	// Load reads one complete image. The returned raster is owned by the
	// caller; the codec keeps no reference to it.
	Load(pathHint string, r io.Reader) (*Raster, error)

	// Save writes img. The codec only borrows img for the duration of the
	// call.
	Save(pathHint string, w io.Writer, img *Raster) error
}

// FormatError describes input that does not conform to the expected
// format.
type FormatError struct {
	Format string // "pam", "png", ...
	Field  string // header field or section, may be empty
	Got    string // offending input, may be empty
	Err    error  // underlying cause, may be nil
}

func (e *FormatError) Error() string {
	msg := "imagefile: " + e.Format
	if e.Field != "" {
		msg += ": bad " + e.Field
	}
	if e.Got != "" {
		msg += fmt.Sprintf(" %q", e.Got)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes every FormatError match ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }
