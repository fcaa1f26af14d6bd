package window

import (
	"errors"
	"time"
)

// Headless runs a fixed number of frames without presenting them, on a
// synthetic clock advancing 1/MaxFPS per frame. Resizes and toggles can be
// scheduled before given frames.
type Headless struct {
	ctx      *Context
	frames   int
	script   map[int][]func(*loop) error
	closed   bool
	Rendered int
}

// NewHeadless creates a headless window that runs frames iterations.
func NewHeadless(o Options, frames int) (*Headless, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Headless{ctx: newContext(o), frames: frames, script: map[int][]func(*loop) error{}}, nil
}

// ResizeAt schedules a resize before frame i.
func (w *Headless) ResizeAt(i, width, height int) {
	w.script[i] = append(w.script[i], func(l *loop) error { return l.resize(width, height) })
}

// ToggleAt schedules a toggle before frame i.
func (w *Headless) ToggleAt(i int) {
	w.script[i] = append(w.script[i], (*loop).toggle)
}

func (w *Headless) Context() *Context { return w.ctx }

func (w *Headless) Run(h Handler, r Renderer) error {
	if w.closed {
		return ErrClosed
	}
	clock := time.Unix(0, 0)
	step := time.Second / time.Duration(w.ctx.maxFPS)
	l := newLoop(w.ctx, h, r, func() time.Time { return clock })

	err := l.start()
	for i := 0; err == nil && i < w.frames; i++ {
		for _, act := range w.script[i] {
			if err = act(l); err != nil {
				break
			}
		}
		if err != nil {
			break
		}
		clock = clock.Add(step)
		if err = l.iterate(); err == nil {
			w.Rendered++
		}
	}
	return errors.Join(err, l.end())
}

// Close marks the window closed. Calling Close again is a no-op.
func (w *Headless) Close() error {
	w.closed = true
	return nil
}
