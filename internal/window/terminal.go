package window

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nqpz/squarezoom/internal/imagefile"
)

// CellPixels is how many window pixels one terminal column spans. A row
// spans twice as many since each cell shows two pixels stacked.
const CellPixels = 8

// Terminal presents frames in a terminal with half-block characters. Each
// cell shows two vertically stacked pixels of the frame scaled to the
// terminal size.
type Terminal struct {
	ctx    *Context
	opts   Options
	keys   keyMap
	closed bool
}

// NewTerminal creates a terminal window. Nothing is drawn until Run.
func NewTerminal(o Options) (*Terminal, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	return &Terminal{ctx: newContext(o), opts: o, keys: defaultKeyMap()}, nil
}

func (t *Terminal) Context() *Context { return t.ctx }

// Run starts the terminal program and blocks until the user quits or the
// handler or renderer fails.
func (t *Terminal) Run(h Handler, r Renderer) error {
	if t.closed {
		return ErrClosed
	}
	l := newLoop(t.ctx, h, r, nil)
	if err := l.start(); err != nil {
		return errors.Join(err, l.end())
	}

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithFPS(t.ctx.maxFPS)}
	if t.opts.Input != nil {
		opts = append(opts, tea.WithInput(t.opts.Input))
	} else {
		// Standard input may be carrying the image.
		opts = append(opts, tea.WithInputTTY())
	}
	if t.opts.Output != nil {
		opts = append(opts, tea.WithOutput(t.opts.Output))
	}
	if t.ctx.grabMouse {
		opts = append(opts, tea.WithMouseAllMotion())
	}

	Logger().Info("window: running", "width", t.ctx.width, "height", t.ctx.height, "max_fps", t.ctx.maxFPS)
	final, err := tea.NewProgram(newModel(l, t.keys), opts...).Run()
	var loopErr error
	if m, ok := final.(model); ok {
		loopErr = m.err
	}
	return errors.Join(err, loopErr, l.end())
}

// Close marks the window closed. Calling Close again is a no-op.
func (t *Terminal) Close() error {
	t.closed = true
	return nil
}

type tickMsg time.Time

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

var statusStyle = lipgloss.NewStyle().Faint(true)

// model is the bubbletea model wrapping a loop.
type model struct {
	loop       *loop
	keys       keyMap
	interval   time.Duration
	cols, rows int
	sized      bool
	picture    string
	err        error
}

func newModel(l *loop, keys keyMap) model {
	return model{
		loop:     l,
		keys:     keys,
		interval: time.Second / time.Duration(l.ctx.maxFPS),
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			return m.check(m.loop.toggle(), nil)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		// The first size message reports the terminal at startup; the
		// window keeps its configured size until the terminal changes.
		if !m.sized {
			m.sized = true
			return m, nil
		}
		return m.check(m.loop.resize(m.cols*CellPixels, m.pictureRows()*2*CellPixels), nil)

	case tea.MouseMsg:
		ctx := m.loop.ctx
		ctx.pointerX = msg.X * CellPixels
		ctx.pointerY = msg.Y * 2 * CellPixels
		return m, nil

	case tickMsg:
		err := m.loop.iterate()
		if err == nil && m.sized {
			m.picture = halfBlocks(m.loop.ctx.frame, m.cols, m.pictureRows())
			m.loop.ctx.redraw = false
		}
		return m.check(err, tickCmd(m.interval))
	}
	return m, nil
}

// check stops the program on err and otherwise continues with next.
func (m model) check(err error, next tea.Cmd) (tea.Model, tea.Cmd) {
	if err != nil {
		m.err = err
		return m, tea.Quit
	}
	return m, next
}

// pictureRows leaves the last terminal row for the status line.
func (m model) pictureRows() int {
	return max(m.rows-1, 1)
}

func (m model) View() string {
	ctx := m.loop.ctx
	status := statusStyle.Render(fmt.Sprintf("%dx%d  %.0f fps  %s %s  %s %s",
		ctx.width, ctx.height, ctx.fps,
		m.keys.Toggle.Help().Key, m.keys.Toggle.Help().Desc,
		m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc))
	if m.picture == "" {
		return status
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.picture, status)
}

// halfBlocks scales frame to cols x rows*2 pixels and renders each pair of
// vertically adjacent pixels as one upper-half block.
func halfBlocks(frame *imagefile.Raster, cols, rows int) string {
	if frame.Empty() || cols <= 0 || rows <= 0 {
		return ""
	}
	scaled, err := frame.Resize(cols, rows*2)
	if err != nil {
		return ""
	}

	var b strings.Builder
	for row := range rows {
		if row > 0 {
			b.WriteByte('\n')
		}
		for x := range cols {
			top := scaled.At(x, row*2)
			bottom := scaled.At(x, row*2+1)
			b.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render("▀"))
		}
	}
	return b.String()
}

func hexColor(p uint32) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%06x", p&0x00ffffff))
}
