// Package session owns the resources of one viewer run and drives them
// from the window's event loop.
//
// A Session acquires the window, the engine configuration and context, the
// overlay font, the uploaded image and the engine state, in that order. It
// then hands control to the window and, whatever way the loop ends,
// releases everything it acquired in reverse order, exactly once.
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nqpz/squarezoom/internal/cli"
	"github.com/nqpz/squarezoom/internal/engine"
	"github.com/nqpz/squarezoom/internal/imagefile"
	"github.com/nqpz/squarezoom/internal/overlay"
	"github.com/nqpz/squarezoom/internal/window"
)

// State is the lifecycle stage of a Session.
type State int

const (
	Configuring State = iota
	Acquiring
	Running
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Configuring:
		return "configuring"
	case Acquiring:
		return "acquiring"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Acquisition stages named by ResourceError.
const (
	StageWindow = "window"
	StageDevice = "device"
	StageFont   = "font"
	StageInput  = "input"
	StageImage  = "image"
	StageState  = "state"
)

// ResourceError reports a resource that could not be acquired or rebuilt.
type ResourceError struct {
	Stage string
	Err   error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Stage, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// Deps are the collaborators a Session acquires its resources from. Zero
// fields get the process defaults.
type Deps struct {
	// OpenWindow creates the window. Defaults to a terminal window.
	OpenWindow func(window.Options) (window.Window, error)

	// Codec decodes the input image. Defaults to imagefile.New().
	Codec imagefile.Codec

	// OpenInput opens a named input file. Defaults to os.Open.
	OpenInput func(path string) (io.ReadCloser, error)

	// Stdin is read for the "-" input and the interactive device prompt.
	Stdin io.Reader

	// Stdout receives the device announcement and the prompt.
	Stdout io.Writer
}

func (d Deps) withDefaults() Deps {
	if d.OpenWindow == nil {
		d.OpenWindow = func(o window.Options) (window.Window, error) { return window.NewTerminal(o) }
	}
	if d.Codec == nil {
		d.Codec = imagefile.New()
	}
	if d.OpenInput == nil {
		d.OpenInput = func(path string) (io.ReadCloser, error) { return os.Open(path) }
	}
	if d.Stdin == nil {
		d.Stdin = os.Stdin
	}
	// The device prompt and the "-" input share one buffer.
	if _, ok := d.Stdin.(*bufio.Reader); !ok {
		d.Stdin = bufio.NewReader(d.Stdin)
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	return d
}

// Session is one run of the viewer.
type Session struct {
	cfg  cli.Config
	deps Deps

	state State

	win    window.Window
	engCfg *engine.Config
	eng    *engine.Context
	font   *overlay.Font
	img    *engine.U32Array2D
	st     *engine.State

	frame   *imagefile.Raster
	overlay overlayState

	releases []release
}

type release struct {
	name string
	fn   func() error
}

// New returns a session for cfg. Nothing is acquired until Run.
func New(cfg cli.Config, deps Deps) *Session {
	return &Session{cfg: cfg, deps: deps.withDefaults(), state: Configuring}
}

// State returns the current lifecycle stage.
func (s *Session) State() State { return s.state }

// Run acquires every resource, runs the window loop and tears down. The
// teardown happens on every path; its errors are joined to the run error.
func (s *Session) Run() error {
	if s.state != Configuring {
		return fmt.Errorf("session: run in state %s", s.state)
	}
	s.state = Acquiring
	err := s.acquire()
	if err == nil {
		s.state = Running
		Logger().Debug("session: running")
		err = s.win.Run(s, s)
	}
	s.state = Draining
	return errors.Join(err, s.Close())
}

// Close releases every acquired resource in reverse acquisition order.
// Calling Close again is a no-op.
func (s *Session) Close() error {
	var errs []error
	for len(s.releases) > 0 {
		r := s.releases[len(s.releases)-1]
		s.releases = s.releases[:len(s.releases)-1]
		if err := r.fn(); err != nil {
			Logger().Warn("session: release failed", "resource", r.name, "err", err)
			errs = append(errs, fmt.Errorf("release %s: %w", r.name, err))
			continue
		}
		Logger().Debug("session: released", "resource", r.name)
	}
	s.state = Terminated
	return errors.Join(errs...)
}

func (s *Session) push(name string, fn func() error) {
	s.releases = append(s.releases, release{name: name, fn: fn})
}

func (s *Session) acquire() error {
	win, err := s.deps.OpenWindow(window.Options{
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
		MaxFPS:      s.cfg.MaxFPS,
		AllowResize: s.cfg.AllowResize,
		Output:      s.deps.Stdout,
	})
	if err != nil {
		return &ResourceError{Stage: StageWindow, Err: err}
	}
	s.win = win
	s.push("window", win.Close)

	engCfg, err := engine.NewConfig(engine.Options{
		Device:      s.cfg.Device,
		Interactive: s.cfg.Interactive,
		PromptIn:    s.deps.Stdin,
		PromptOut:   s.deps.Stdout,
	})
	if err != nil {
		return &ResourceError{Stage: StageDevice, Err: err}
	}
	s.engCfg = engCfg
	s.push("engine config", func() error { engCfg.Free(); return nil })

	eng, err := engine.NewContext(engCfg)
	if err != nil {
		return &ResourceError{Stage: StageDevice, Err: err}
	}
	s.eng = eng
	s.push("engine context", func() error { eng.Free(); return nil })
	fmt.Fprintf(s.deps.Stdout, "Using device: %s\n", eng.DeviceName())
	fmt.Fprintln(s.deps.Stdout, "Use -d or -i to change this.")

	grab, err := eng.GrabMouse()
	if err != nil {
		return &ResourceError{Stage: StageDevice, Err: err}
	}
	win.Context().SetGrabMouse(grab)

	w, h := win.Context().Size()
	font, err := overlay.OpenFont(overlay.FontSize(w, h))
	if err != nil {
		return &ResourceError{Stage: StageFont, Err: err}
	}
	s.font = font
	// The font is replaced on resize; release whichever one is current.
	s.push("font", func() error {
		if s.font == nil {
			return nil
		}
		return s.font.Close()
	})

	raster, err := s.load()
	if err != nil {
		return err
	}
	Logger().Info("session: image loaded", "width", raster.Width, "height", raster.Height, "codec", imagefile.Backend())

	// The engine samples an image of the configured window size.
	scaled, err := raster.Resize(s.cfg.Width, s.cfg.Height)
	raster.Release()
	if err != nil {
		return &ResourceError{Stage: StageImage, Err: err}
	}
	img, err := eng.NewU32Array2D(scaled.Pix, s.cfg.Height, s.cfg.Width)
	scaled.Release()
	if err != nil {
		return &ResourceError{Stage: StageImage, Err: err}
	}
	s.img = img
	s.push("image array", func() error { img.Free(); return nil })

	seed := int32(window.WallTime())
	st, err := eng.Init(seed, s.cfg.Height, s.cfg.Width, img)
	if err != nil {
		return &ResourceError{Stage: StageState, Err: err}
	}
	s.st = st
	s.push("engine state", func() error {
		st.Free()
		s.frame.Release()
		return nil
	})
	return nil
}

func (s *Session) load() (raster *imagefile.Raster, err error) {
	var r io.Reader
	if s.cfg.ReadsStdin() {
		r = s.deps.Stdin
	} else {
		f, oerr := s.deps.OpenInput(s.cfg.Input)
		if oerr != nil {
			return nil, &ResourceError{Stage: StageInput, Err: oerr}
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				raster.Release()
				raster, err = nil, &ResourceError{Stage: StageInput, Err: fmt.Errorf("close %s: %w", s.cfg.Input, cerr)}
			}
		}()
		r = f
	}

	raster, err = s.deps.Codec.Load(s.cfg.Input, r)
	if err != nil {
		return nil, &ResourceError{Stage: StageInput, Err: fmt.Errorf("load %s: %w", s.cfg.Input, err)}
	}
	if raster.Empty() {
		return nil, &ResourceError{Stage: StageInput, Err: imagefile.ErrEmptyImage}
	}
	return raster, nil
}
