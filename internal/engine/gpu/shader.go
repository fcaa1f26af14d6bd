//go:build !nogpu

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

// zoomShaderWGSL shades one frame of the tiled zoom. It must agree with
// engine.Shade.
const zoomShaderWGSL = `
struct Params {
    width: u32,
    height: u32,
    src_w: u32,
    src_h: u32,
    scale: f32,
    mode: u32,
    _pad0: u32,
    _pad1: u32,
}

@group(0) @binding(0) var<storage, read> src: array<u32>;
@group(0) @binding(1) var<storage, read_write> dst: array<u32>;
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(8, 8)
fn main(@builtin(global_invocation_id) id: vec3<u32>) {
    let x = id.x;
    let y = id.y;
    if (x >= params.width || y >= params.height) {
        return;
    }

    let fw = f32(params.width);
    let fh = f32(params.height);
    let tile_w = fw / 2.0 * params.scale;
    let tile_h = fh / 2.0 * params.scale;

    let qx = (f32(x) + 0.5 - fw / 2.0) / tile_w;
    let qy = (f32(y) + 0.5 - fh / 2.0) / tile_h;
    let tx = floor(qx);
    let ty = floor(qy);
    var fx = qx - tx;
    var fy = qy - ty;
    let ix = i32(tx);
    let iy = i32(ty);

    if (params.mode == 1u) {
        if ((ix & 1) != 0) {
            fx = 1.0 - fx;
        }
        if ((iy & 1) != 0) {
            fy = 1.0 - fy;
        }
    }

    let sx = min(u32(fx * f32(params.src_w)), params.src_w - 1u);
    let sy = min(u32(fy * f32(params.src_h)), params.src_h - 1u);
    var pix = src[sy * params.src_w + sx];

    if (params.mode == 2u && ((ix + iy) & 1) != 0) {
        pix = pix ^ 0x00ffffffu;
    }
    dst[y * params.width + x] = pix | 0xff000000u;
}
`

const workgroupSize = 8

// paramsSize is the byte size of the Params uniform.
const paramsSize = 32

// validateShader compiles the shader once with naga so a broken shader is
// reported with its compiler diagnostics before any device work.
var validateShader = sync.OnceValue(func() error {
	if _, err := naga.Compile(zoomShaderWGSL); err != nil {
		return fmt.Errorf("gpu: zoom shader: %w", err)
	}
	return nil
})
