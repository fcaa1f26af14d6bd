package window

import "time"

// loop sequences handler and renderer calls for a backend.
type loop struct {
	ctx     *Context
	h       Handler
	r       Renderer
	now     func() time.Time
	last    time.Time
	started bool
	ended   bool
}

func newLoop(ctx *Context, h Handler, r Renderer, now func() time.Time) *loop {
	if now == nil {
		now = time.Now
	}
	return &loop{ctx: ctx, h: h, r: r, now: now}
}

func (l *loop) start() error {
	l.started = true
	l.last = l.now()
	return l.h.HandleEvent(l.ctx, LoopStart)
}

// iterate renders one frame and hands it to the handler.
func (l *loop) iterate() error {
	now := l.now()
	dt := now.Sub(l.last).Seconds()
	l.last = now
	l.ctx.updateFPS(dt)

	frame, err := l.r.RenderFrame(l.ctx, dt)
	if err != nil {
		return err
	}
	l.ctx.frame = frame
	return l.h.HandleEvent(l.ctx, LoopIteration)
}

// resize records new window dimensions. Without resize permission, or when
// nothing changed, the handler is not called.
func (l *loop) resize(width, height int) error {
	if !l.ctx.allowResize || width <= 0 || height <= 0 {
		return nil
	}
	if width == l.ctx.width && height == l.ctx.height {
		return nil
	}
	Logger().Debug("window: resized", "width", width, "height", height)
	l.ctx.width, l.ctx.height = width, height
	return l.h.HandleEvent(l.ctx, WindowSizeUpdated)
}

func (l *loop) toggle() error {
	return l.h.HandleEvent(l.ctx, Toggle)
}

// end delivers LoopEnd once, and only after LoopStart.
func (l *loop) end() error {
	if !l.started || l.ended {
		return nil
	}
	l.ended = true
	return l.h.HandleEvent(l.ctx, LoopEnd)
}
