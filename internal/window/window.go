// Package window runs the event loop that drives a session and presents
// its frames.
//
// A backend calls the Handler with LoopStart once, then for every frame
// asks the Renderer for a frame and delivers LoopIteration, interleaved with
// WindowSizeUpdated and Toggle as the user acts, and finally LoopEnd.
// LoopEnd is delivered whenever LoopStart was, whatever ends the loop.
package window

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/nqpz/squarezoom/internal/imagefile"
)

// Event is a run-loop event delivered to a Handler.
type Event int

const (
	LoopStart Event = iota
	LoopIteration
	LoopEnd
	WindowSizeUpdated
	Toggle
)

func (e Event) String() string {
	switch e {
	case LoopStart:
		return "LoopStart"
	case LoopIteration:
		return "LoopIteration"
	case LoopEnd:
		return "LoopEnd"
	case WindowSizeUpdated:
		return "WindowSizeUpdated"
	case Toggle:
		return "Toggle"
	default:
		return fmt.Sprintf("Event(%d)", int(e))
	}
}

// Handler receives run-loop events. A non-nil error stops the loop; the
// backend still delivers LoopEnd before Run returns it.
type Handler interface {
	HandleEvent(ctx *Context, ev Event) error
}

// Renderer produces the frame for one iteration. dt is the time since the
// previous frame in seconds. The returned raster stays owned by the
// Renderer and is only read until the next call.
type Renderer interface {
	RenderFrame(ctx *Context, dt float64) (*imagefile.Raster, error)
}

// Window is a run-loop backend.
type Window interface {
	Context() *Context
	Run(h Handler, r Renderer) error
	Close() error
}

// ErrClosed is returned by Run on a closed window.
var ErrClosed = errors.New("window: closed")

// ErrInvalidOptions is returned for non-positive dimensions or frame rate.
var ErrInvalidOptions = errors.New("window: invalid options")

// Options configures a new window.
type Options struct {
	Width, Height int
	MaxFPS        int
	AllowResize   bool

	// Input and Output default to the process terminal.
	Input  io.Reader
	Output io.Writer
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 || o.MaxFPS <= 0 {
		return fmt.Errorf("%w: %dx%d at %d fps", ErrInvalidOptions, o.Width, o.Height, o.MaxFPS)
	}
	return nil
}

// Context is the window state visible to handlers.
type Context struct {
	width, height int
	maxFPS        int
	allowResize   bool
	grabMouse     bool
	fps           float64
	frame         *imagefile.Raster
	pointerX      int
	pointerY      int
	redraw        bool
}

var _ gpucontext.WindowProvider = (*Context)(nil)

func newContext(o Options) *Context {
	return &Context{
		width:       o.Width,
		height:      o.Height,
		maxFPS:      o.MaxFPS,
		allowResize: o.AllowResize,
	}
}

// Size returns the window dimensions in pixels.
func (c *Context) Size() (width, height int) { return c.width, c.height }

// ScaleFactor is always 1; window pixels are logical pixels.
func (c *Context) ScaleFactor() float64 { return 1 }

// RequestRedraw asks the backend to present the next frame even when it
// would otherwise skip it.
func (c *Context) RequestRedraw() { c.redraw = true }

// FPS returns the measured frame rate.
func (c *Context) FPS() float64 { return c.fps }

// MaxFPS returns the frame rate cap.
func (c *Context) MaxFPS() int { return c.maxFPS }

// AllowResize reports whether size changes are passed on to the handler.
func (c *Context) AllowResize() bool { return c.allowResize }

// Frame returns the frame of the current iteration, or nil before the
// first one.
func (c *Context) Frame() *imagefile.Raster { return c.frame }

// SetGrabMouse asks the backend to capture the pointer. It takes effect
// when Run starts.
func (c *Context) SetGrabMouse(grab bool) { c.grabMouse = grab }

// GrabMouse reports whether the pointer is captured.
func (c *Context) GrabMouse() bool { return c.grabMouse }

// Pointer returns the last pointer position in window pixels.
func (c *Context) Pointer() (x, y int) { return c.pointerX, c.pointerY }

// fpsSmoothing weights the newest frame in the FPS moving average.
const fpsSmoothing = 0.1

func (c *Context) updateFPS(dt float64) {
	if dt <= 0 {
		return
	}
	inst := 1 / dt
	if c.fps == 0 {
		c.fps = inst
		return
	}
	c.fps += fpsSmoothing * (inst - c.fps)
}

// WallTime returns the wall clock in milliseconds. It seeds sessions.
func WallTime() int64 {
	return time.Now().UnixMilli()
}
