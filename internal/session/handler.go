package session

import (
	"fmt"

	"github.com/nqpz/squarezoom/internal/imagefile"
	"github.com/nqpz/squarezoom/internal/overlay"
	"github.com/nqpz/squarezoom/internal/window"
)

// overlayState is the text overlay prepared at LoopStart and dropped at
// LoopEnd.
type overlayState struct {
	shown    bool
	format   string
	names    [][]string
	text     []byte
	prepared bool
}

const textX, textY = 10, 10

var (
	_ window.Handler  = (*Session)(nil)
	_ window.Renderer = (*Session)(nil)
)

// HandleEvent implements window.Handler.
func (s *Session) HandleEvent(ctx *window.Context, ev window.Event) error {
	switch ev {
	case window.LoopStart:
		s.overlay.shown = true
		s.overlay.format = s.eng.TextFormat()
		s.overlay.names = s.eng.Summaries()
		s.overlay.prepared = true
		return nil

	case window.LoopIteration:
		return s.drawOverlay(ctx)

	case window.WindowSizeUpdated:
		return s.rebuildFont(ctx)

	case window.Toggle:
		s.overlay.shown = !s.overlay.shown
		return nil

	case window.LoopEnd:
		s.releaseOverlay()
		return nil
	}
	return nil
}

// RenderFrame implements window.Renderer.
func (s *Session) RenderFrame(_ *window.Context, dt float64) (*imagefile.Raster, error) {
	if err := s.eng.Step(s.st, dt); err != nil {
		return nil, fmt.Errorf("session: step: %w", err)
	}
	if s.frame == nil {
		frame, err := imagefile.NewRaster(s.st.Width(), s.st.Height())
		if err != nil {
			return nil, err
		}
		s.frame = frame
	}
	if err := s.eng.Render(s.st, s.frame.Pix); err != nil {
		return nil, fmt.Errorf("session: render: %w", err)
	}
	return s.frame, nil
}

func (s *Session) drawOverlay(ctx *window.Context) error {
	if !s.overlay.shown || !s.overlay.prepared {
		return nil
	}
	values, err := s.eng.TextContent(s.st, ctx.FPS())
	if err != nil {
		return fmt.Errorf("session: overlay text: %w", err)
	}
	s.overlay.text = append(s.overlay.text[:0], overlay.Compose(s.overlay.format, values, s.overlay.names)...)
	if len(s.overlay.text) == 0 {
		return nil
	}
	colour, err := s.eng.TextColour(s.st)
	if err != nil {
		return fmt.Errorf("session: overlay colour: %w", err)
	}
	return s.font.Draw(ctx.Frame(), string(s.overlay.text), colour, textX, textY)
}

// rebuildFont replaces the font with one sized for the new window.
func (s *Session) rebuildFont(ctx *window.Context) error {
	w, h := ctx.Size()
	size := overlay.FontSize(w, h)
	if s.font != nil {
		if err := s.font.Close(); err != nil {
			Logger().Warn("session: close font", "err", err)
		}
		s.font = nil
	}
	font, err := overlay.OpenFont(size)
	if err != nil {
		return &ResourceError{Stage: StageFont, Err: err}
	}
	s.font = font
	Logger().Info("session: font rebuilt", "width", w, "height", h, "size", size)
	return nil
}

func (s *Session) releaseOverlay() {
	if !s.overlay.prepared {
		return
	}
	s.overlay.text = nil
	s.overlay.format = ""
	for i, names := range s.overlay.names {
		if names != nil {
			s.overlay.names[i] = nil
		}
	}
	s.overlay.names = nil
	s.overlay.prepared = false
}
