package engine

import "math"

// Opaque is the alpha bits of a fully opaque packed pixel.
const Opaque uint32 = 0xff000000

// Shade computes the pixel at (x, y) of the frame described by p, sampling
// src of size sw x sh. Software devices call it per pixel; the GPU shader
// implements the same function.
func Shade(src []uint32, sw, sh int, p Params, x, y int) uint32 {
	tileW := float32(p.Width) / 2 * p.Scale
	tileH := float32(p.Height) / 2 * p.Scale

	qx := (float32(x) + 0.5 - float32(p.Width)/2) / tileW
	qy := (float32(y) + 0.5 - float32(p.Height)/2) / tileH
	tx := float32(math.Floor(float64(qx)))
	ty := float32(math.Floor(float64(qy)))
	fx, fy := qx-tx, qy-ty
	ix, iy := int32(tx), int32(ty)

	if p.Mode == TilingMirror {
		if ix&1 != 0 {
			fx = 1 - fx
		}
		if iy&1 != 0 {
			fy = 1 - fy
		}
	}

	sx := min(int(fx*float32(sw)), sw-1)
	sy := min(int(fy*float32(sh)), sh-1)
	pix := src[sy*sw+sx]

	if p.Mode == TilingChecker && (ix+iy)&1 != 0 {
		pix ^= 0x00ffffff
	}
	return pix | Opaque
}
