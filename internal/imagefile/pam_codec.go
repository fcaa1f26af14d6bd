//go:build pamonly

package imagefile

import "io"

// pamCodec is the backend compiled in with the pamonly tag. It ignores the
// path hint: every stream is read as PAM.
type pamCodec struct{}

// New returns the compiled-in codec.
func New() Codec { return pamCodec{} }

// Backend names the compiled-in codec.
func Backend() string { return "pam" }

func (pamCodec) Load(_ string, r io.Reader) (*Raster, error) { return DecodePAM(r) }

func (pamCodec) Save(_ string, w io.Writer, img *Raster) error { return EncodePAM(w, img) }
