package engine

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
)

// fakeBackend opens hostDevices, or fails with err when set.
type fakeBackend struct {
	name     string
	err      error
	opened   *int
	released *int
}

func (b fakeBackend) Name() string       { return b.name }
func (b fakeBackend) Variants() []string { return []string{"slow"} }

func (b fakeBackend) Open(variant string) (Device, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.opened != nil {
		*b.opened++
	}
	return &hostDevice{name: b.name + ":" + variant, released: b.released}, nil
}

type hostDevice struct {
	name     string
	released *int
}

func (d *hostDevice) Info() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: d.name, Type: gpucontext.AdapterTypeSoftware}
}

func (d *hostDevice) NewArray(data []uint32, width, height int) (Array, error) {
	return NewHostArray(data, width, height)
}

func (d *hostDevice) Render(src Array, p Params, dst []uint32) error {
	a := src.(*HostArray)
	for y := range p.Height {
		for x := range p.Width {
			dst[y*p.Width+x] = Shade(a.Pix, a.W, a.H, p, x, y)
		}
	}
	return nil
}

func (d *hostDevice) Release() {
	if d.released != nil {
		*d.released++
	}
}

// withBackends registers the given backends for the duration of the test.
func withBackends(t *testing.T, backends ...fakeBackend) {
	t.Helper()
	for _, b := range backends {
		registry.Register(b.name, func() Backend { return b })
	}
	t.Cleanup(func() {
		for _, b := range backends {
			Unregister(b.name)
		}
	})
}

func TestParseSelector(t *testing.T) {
	withBackends(t, fakeBackend{name: BackendCPU})

	tests := []struct {
		in      string
		want    Selector
		wantErr bool
	}{
		{"cpu", Selector{Backend: "cpu"}, false},
		{" CPU ", Selector{Backend: "cpu"}, false},
		{"cpu:slow", Selector{Backend: "cpu", Variant: "slow"}, false},
		{"cpu:fast", Selector{}, true},
		{"gpu", Selector{}, true},
		{"", Selector{}, true},
	}
	for _, tt := range tests {
		got, err := ParseSelector(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSelector(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("ParseSelector(%q) error = %v, want ErrUnknownDevice", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseSelector(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAvailable_Priority(t *testing.T) {
	withBackends(t, fakeBackend{name: BackendCPU}, fakeBackend{name: BackendGPU})

	got := Available()
	if len(got) != 2 || got[0] != BackendGPU || got[1] != BackendCPU {
		t.Errorf("Available() = %v, want [gpu cpu]", got)
	}
	c := Candidates()
	want := []string{"gpu", "gpu:slow", "cpu", "cpu:slow"}
	if len(c) != len(want) {
		t.Fatalf("Candidates() = %v, want %v", c, want)
	}
	for i := range want {
		if c[i].String() != want[i] {
			t.Errorf("Candidates()[%d] = %s, want %s", i, c[i], want[i])
		}
	}
}

func TestNewConfig_Interactive(t *testing.T) {
	withBackends(t, fakeBackend{name: BackendCPU})

	tests := []struct {
		input   string
		want    Selector
		wantErr bool
	}{
		{"1\n", Selector{Backend: "cpu", Variant: "slow"}, false},
		{"0", Selector{Backend: "cpu"}, false},
		{"\n", Selector{}, true},
		{"", Selector{}, true},
		{"7\n", Selector{}, true},
		{"cpu\n", Selector{}, true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		cfg, err := NewConfig(Options{
			Device:      "gpu", // ignored in interactive mode
			Interactive: true,
			PromptIn:    strings.NewReader(tt.input),
			PromptOut:   &out,
		})
		if tt.wantErr {
			if !errors.Is(err, ErrNoDevice) {
				t.Errorf("input %q: error = %v, want ErrNoDevice", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("input %q: error = %v", tt.input, err)
			continue
		}
		if cfg.Selector() != tt.want {
			t.Errorf("input %q: selector = %v, want %v", tt.input, cfg.Selector(), tt.want)
		}
		if !strings.Contains(out.String(), "[1] cpu:slow") {
			t.Errorf("prompt = %q, want candidate list", out.String())
		}
	}
}

func TestNewConfig_InteractiveLeavesRestBuffered(t *testing.T) {
	withBackends(t, fakeBackend{name: BackendCPU})

	in := bufio.NewReader(strings.NewReader("0\nimage bytes"))
	if _, err := NewConfig(Options{Interactive: true, PromptIn: in, PromptOut: &bytes.Buffer{}}); err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	rest, err := in.ReadString(0)
	if rest != "image bytes" {
		t.Errorf("remaining input = %q (err %v), want %q", rest, err, "image bytes")
	}
}

func TestNewConfig_NoBackends(t *testing.T) {
	if len(Available()) != 0 {
		t.Skip("backends registered by another package")
	}
	if _, err := NewConfig(Options{}); !errors.Is(err, ErrNoDevice) {
		t.Errorf("NewConfig() error = %v, want ErrNoDevice", err)
	}
}

func TestNewContext_FallsBackInPriorityOrder(t *testing.T) {
	opened, released := 0, 0
	withBackends(t,
		fakeBackend{name: BackendGPU, err: errors.New("no adapter")},
		fakeBackend{name: BackendCPU, opened: &opened, released: &released},
	)

	cfg, err := NewConfig(Options{})
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	defer cfg.Free()

	ctx, err := NewContext(cfg)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	if ctx.Selector().Backend != BackendCPU || ctx.DeviceName() != "cpu:" {
		t.Errorf("opened %v (%q), want cpu", ctx.Selector(), ctx.DeviceName())
	}
	ctx.Free()
	ctx.Free()
	if opened != 1 || released != 1 {
		t.Errorf("opened %d, released %d; want 1 and 1", opened, released)
	}
}

func TestNewContext_ExplicitDoesNotFallBack(t *testing.T) {
	withBackends(t,
		fakeBackend{name: BackendGPU, err: errors.New("no adapter")},
		fakeBackend{name: BackendCPU},
	)

	cfg, err := NewConfig(Options{Device: "gpu"})
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	defer cfg.Free()

	_, err = NewContext(cfg)
	if !errors.Is(err, ErrNoDevice) || !strings.Contains(err.Error(), "no adapter") {
		t.Errorf("NewContext() error = %v, want ErrNoDevice carrying the cause", err)
	}
}

func TestNewContext_FreedConfig(t *testing.T) {
	withBackends(t, fakeBackend{name: BackendCPU})

	cfg, _ := NewConfig(Options{})
	cfg.Free()
	cfg.Free()
	if _, err := NewContext(cfg); !errors.Is(err, ErrFreed) {
		t.Errorf("NewContext(freed) error = %v, want ErrFreed", err)
	}
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	withBackends(t, fakeBackend{name: BackendCPU})
	cfg, err := NewConfig(Options{Device: "cpu"})
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	ctx, err := NewContext(cfg)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() {
		ctx.Free()
		cfg.Free()
	})
	return ctx
}

func TestNewU32Array2D_Dimensions(t *testing.T) {
	ctx := newTestContext(t)

	if _, err := ctx.NewU32Array2D(make([]uint32, 6), 2, 4); !errors.Is(err, ErrDimensions) {
		t.Errorf("NewU32Array2D(6 pixels, 2x4) error = %v, want ErrDimensions", err)
	}
	if _, err := ctx.NewU32Array2D(nil, 0, 0); !errors.Is(err, ErrDimensions) {
		t.Errorf("NewU32Array2D(empty) error = %v, want ErrDimensions", err)
	}
	arr, err := ctx.NewU32Array2D(make([]uint32, 8), 2, 4)
	if err != nil {
		t.Fatalf("NewU32Array2D() error = %v", err)
	}
	if arr.Width() != 4 || arr.Height() != 2 {
		t.Errorf("array = %dx%d, want 4x2", arr.Width(), arr.Height())
	}
	arr.Free()
	arr.Free()
	if _, err := ctx.Init(1, 2, 4, arr); !errors.Is(err, ErrFreed) {
		t.Errorf("Init(freed array) error = %v, want ErrFreed", err)
	}
}

func TestState_StepIsDeterministic(t *testing.T) {
	ctx := newTestContext(t)
	arr, _ := ctx.NewU32Array2D(make([]uint32, 4), 2, 2)
	defer arr.Free()

	run := func() []Tiling {
		s, err := ctx.Init(42, 2, 2, arr)
		if err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		defer s.Free()
		var modes []Tiling
		for range 10 {
			if err := ctx.Step(s, 1/zoomRate); err != nil {
				t.Fatalf("Step() error = %v", err)
			}
			modes = append(modes, s.mode)
		}
		if s.depth != 10 {
			t.Errorf("depth = %d after 10 cycles, want 10", s.depth)
		}
		return modes
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different tilings: %v vs %v", a, b)
		}
	}
}

func TestState_StepIgnoresBadDelta(t *testing.T) {
	ctx := newTestContext(t)
	arr, _ := ctx.NewU32Array2D(make([]uint32, 4), 2, 2)
	s, _ := ctx.Init(1, 2, 2, arr)

	for _, dt := range []float64{0, -1} {
		if err := ctx.Step(s, dt); err != nil || s.phase != 0 {
			t.Errorf("Step(%v): err = %v, phase = %v; want no change", dt, err, s.phase)
		}
	}
	s.Free()
	if err := ctx.Step(s, 1); !errors.Is(err, ErrFreed) {
		t.Errorf("Step(freed) error = %v, want ErrFreed", err)
	}
}

func TestRender(t *testing.T) {
	ctx := newTestContext(t)
	src := []uint32{0x00112233, 0x00445566, 0x00778899, 0x00aabbcc}
	arr, _ := ctx.NewU32Array2D(src, 2, 2)
	s, err := ctx.Init(7, 4, 4, arr)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s.mode = TilingRepeat

	if err := ctx.Render(s, make([]uint32, 15)); !errors.Is(err, ErrDimensions) {
		t.Errorf("Render(short dst) error = %v, want ErrDimensions", err)
	}
	dst := make([]uint32, 16)
	if err := ctx.Render(s, dst); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := []uint32{0xff112233, 0xff445566, 0xff112233, 0xff445566}
	for i, w := range want {
		if dst[i] != w {
			t.Errorf("dst[%d] = %#08x, want %#08x", i, dst[i], w)
		}
	}
}

func TestShade_Tilings(t *testing.T) {
	src := []uint32{0x00112233, 0x00445566, 0x00778899, 0x00aabbcc}
	s0, s1, s2, s3 := src[0]|Opaque, src[1]|Opaque, src[2]|Opaque, src[3]|Opaque

	// Rows 0 and 1 of a 4x4 frame at scale 1 lie in tile row -1, rows 2
	// and 3 in tile row 0. Columns split the same way.
	tests := []struct {
		mode Tiling
		y    int
		want []uint32
	}{
		{TilingRepeat, 0, []uint32{s0, s1, s0, s1}},
		{TilingRepeat, 2, []uint32{s0, s1, s0, s1}},
		{TilingMirror, 0, []uint32{s3, s2, s2, s3}},
		{TilingMirror, 2, []uint32{s1, s0, s0, s1}},
		{TilingChecker, 0, []uint32{s0, s1, s0 ^ 0x00ffffff, s1 ^ 0x00ffffff}},
		{TilingChecker, 2, []uint32{s0 ^ 0x00ffffff, s1 ^ 0x00ffffff, s0, s1}},
	}
	for _, tt := range tests {
		p := Params{Width: 4, Height: 4, Scale: 1, Mode: tt.mode}
		for x, w := range tt.want {
			if got := Shade(src, 2, 2, p, x, tt.y); got != w {
				t.Errorf("%s: Shade(x=%d, y=%d) = %#08x, want %#08x", tt.mode, x, tt.y, got, w)
			}
		}
	}
}

func TestShade_ScaleStaysInBounds(t *testing.T) {
	src := make([]uint32, 3*5)
	for _, scale := range []float32{1, 1.25, 1.5, 1.999} {
		for _, mode := range []Tiling{TilingRepeat, TilingMirror, TilingChecker} {
			p := Params{Width: 17, Height: 9, Scale: scale, Mode: mode}
			for y := range p.Height {
				for x := range p.Width {
					_ = Shade(src, 3, 5, p, x, y) // must not panic
				}
			}
		}
	}
}

func TestTextColour(t *testing.T) {
	ctx := newTestContext(t)
	tests := []struct {
		pixel uint32
		want  uint32
	}{
		{0xffffffff, 0xff000000},
		{0xff000000, 0xffffffff},
		{0xff202020, 0xffffffff},
	}
	for _, tt := range tests {
		arr, _ := ctx.NewU32Array2D([]uint32{tt.pixel}, 1, 1)
		s, _ := ctx.Init(0, 1, 1, arr)
		got, err := ctx.TextColour(s)
		if err != nil || got != tt.want {
			t.Errorf("TextColour(image %#08x) = %#08x, %v; want %#08x", tt.pixel, got, err, tt.want)
		}
	}
}

func TestOverlayDescription(t *testing.T) {
	ctx := newTestContext(t)
	arr, _ := ctx.NewU32Array2D(make([]uint32, 1), 1, 1)
	s, _ := ctx.Init(0, 1, 1, arr)

	verbs := strings.Count(ctx.TextFormat(), "%")
	values, err := ctx.TextContent(s, 60)
	if err != nil {
		t.Fatalf("TextContent() error = %v", err)
	}
	sums := ctx.Summaries()
	if len(values) != verbs || len(sums) != verbs {
		t.Errorf("verbs = %d, values = %d, summaries = %d; want equal", verbs, len(values), len(sums))
	}
	if values[0] != 60 {
		t.Errorf("values[0] = %v, want fps 60", values[0])
	}
	names := sums[len(sums)-1]
	if int(values[len(values)-1]) >= len(names) {
		t.Errorf("tiling value %v has no name in %v", values[len(values)-1], names)
	}

	grab, err := ctx.GrabMouse()
	if err != nil || grab {
		t.Errorf("GrabMouse() = %v, %v; want false, nil", grab, err)
	}
}
