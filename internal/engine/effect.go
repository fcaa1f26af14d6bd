package engine

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Tiling selects how the zoomed image is repeated across the frame.
type Tiling uint32

const (
	TilingRepeat Tiling = iota
	TilingMirror
	TilingChecker

	tilingCount
)

var tilingNames = []string{"repeat", "mirror", "checker"}

func (t Tiling) String() string {
	if int(t) < len(tilingNames) {
		return tilingNames[t]
	}
	return fmt.Sprintf("Tiling(%d)", uint32(t))
}

// zoomRate is the number of zoom cycles per second. One cycle doubles the
// tile size.
const zoomRate = 0.25

// Params is everything a Device needs to shade one frame.
type Params struct {
	Width, Height int
	// Scale is the tile size relative to half the frame, in [1, 2).
	Scale float32
	Mode  Tiling
}

// State is the per-session state created by Init.
type State struct {
	width, height int
	src           *U32Array2D
	seed          int32
	rng           *rand.Rand
	phase         float64
	depth         int
	mode          Tiling
	freed         bool
}

// Init creates the session state for a frame of width x height pixels that
// samples img. The seed picks the tiling sequence.
func (c *Context) Init(seed int32, height, width int, img *U32Array2D) (*State, error) {
	if c.freed || img == nil || img.freed {
		return nil, ErrFreed
	}
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: frame %dx%d", ErrDimensions, width, height)
	}
	rng := rand.New(rand.NewPCG(uint64(uint32(seed)), 0x5eed))
	s := &State{
		width:  width,
		height: height,
		src:    img,
		seed:   seed,
		rng:    rng,
		mode:   Tiling(rng.IntN(int(tilingCount))),
	}
	Logger().Debug("engine: state initialized", "seed", seed, "width", width, "height", height, "tiling", s.mode.String())
	return s, nil
}

// Free drops the state. The image it samples is owned by the caller and
// is not freed. Calling Free again is a no-op.
func (s *State) Free() {
	if s == nil {
		return
	}
	s.freed = true
	s.src = nil
}

// Width returns the frame width of the state.
func (s *State) Width() int { return s.width }

// Height returns the frame height of the state.
func (s *State) Height() int { return s.height }

// Step advances the zoom by dt seconds. Each completed cycle picks a new
// tiling mode.
func (c *Context) Step(s *State, dt float64) error {
	if c.freed || s == nil || s.freed {
		return ErrFreed
	}
	if dt <= 0 || math.IsNaN(dt) {
		return nil
	}
	s.phase += dt * zoomRate
	for s.phase >= 1 {
		s.phase--
		s.depth++
		s.mode = Tiling(s.rng.IntN(int(tilingCount)))
	}
	return nil
}

// Render shades the current frame into dst, which must hold
// Width()*Height() pixels.
func (c *Context) Render(s *State, dst []uint32) error {
	if c.freed || s == nil || s.freed || s.src.freed {
		return ErrFreed
	}
	if len(dst) != s.width*s.height {
		return fmt.Errorf("%w: %d pixels for %dx%d frame", ErrDimensions, len(dst), s.width, s.height)
	}
	return c.dev.Render(s.src.arr, s.params(), dst)
}

func (s *State) params() Params {
	return Params{
		Width:  s.width,
		Height: s.height,
		Scale:  float32(math.Exp2(s.phase)),
		Mode:   s.mode,
	}
}

// TextColour returns the overlay colour as 0xAARRGGBB: black over bright
// images and white over dark ones.
func (c *Context) TextColour(s *State) (uint32, error) {
	if c.freed || s == nil || s.freed {
		return 0, ErrFreed
	}
	if s.src.luma > 0.5 {
		return 0xff000000, nil
	}
	return 0xffffffff, nil
}

// GrabMouse reports whether the effect wants the pointer captured.
func (c *Context) GrabMouse() (bool, error) {
	if c.freed {
		return false, ErrFreed
	}
	return false, nil
}

// TextFormat returns the overlay format. Every verb consumes one value of
// TextContent; verbs whose Summaries entry is non-nil take the name at
// that index instead.
func (c *Context) TextFormat() string {
	return "FPS: %.0f\nZoom: %.2fx\nDepth: %.0f\nTiling: %s"
}

// Summaries returns, per TextFormat value, the names of an enumerated value
// or nil for plain numbers.
func (c *Context) Summaries() [][]string {
	return [][]string{nil, nil, nil, append([]string(nil), tilingNames...)}
}

// TextContent returns the values for TextFormat.
func (c *Context) TextContent(s *State, fps float64) ([]float64, error) {
	if c.freed || s == nil || s.freed {
		return nil, ErrFreed
	}
	return []float64{fps, math.Exp2(s.phase), float64(s.depth), float64(s.mode)}, nil
}
