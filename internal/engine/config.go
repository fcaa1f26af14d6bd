package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options controls how a Config picks its device.
type Options struct {
	// Device is a selector such as "gpu", "gpu:low-power" or "cpu".
	// Empty means the best registered backend.
	Device string

	// Interactive asks on PromptIn which candidate to use. It takes
	// precedence over Device.
	Interactive bool

	// PromptIn and PromptOut default to stdin and stdout. Pass a
	// *bufio.Reader to read past the answer afterwards.
	PromptIn  io.Reader
	PromptOut io.Writer
}

// Config is the resolved device choice. It is created before the Context
// and freed after it.
type Config struct {
	sel      Selector
	explicit bool
	freed    bool
}

// NewConfig resolves opts into a Config. An interactive selection that
// yields nothing usable returns an error wrapping ErrNoDevice.
func NewConfig(opts Options) (*Config, error) {
	switch {
	case opts.Interactive:
		sel, err := prompt(opts)
		if err != nil {
			return nil, err
		}
		return &Config{sel: sel, explicit: true}, nil

	case opts.Device != "":
		sel, err := ParseSelector(opts.Device)
		if err != nil {
			return nil, err
		}
		return &Config{sel: sel, explicit: true}, nil
	}

	if len(Available()) == 0 {
		return nil, ErrNoDevice
	}
	return &Config{}, nil
}

// ParseSelector parses "backend" or "backend:variant" and checks that the
// backend is registered and the variant is one it accepts.
func ParseSelector(s string) (Selector, error) {
	name, variant, _ := strings.Cut(strings.TrimSpace(s), ":")
	sel := Selector{Backend: strings.ToLower(name), Variant: strings.ToLower(variant)}
	if _, ok := lookup(sel); !ok {
		return Selector{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownDevice, s, strings.Join(Available(), ", "))
	}
	return sel, nil
}

// Selector returns the chosen selector. It is the zero value when the
// best backend is picked at context creation.
func (c *Config) Selector() Selector { return c.sel }

// Free releases the config. Calling Free again is a no-op.
func (c *Config) Free() {
	if c == nil || c.freed {
		return
	}
	c.freed = true
	Logger().Debug("engine: config freed")
}

func prompt(opts Options) (Selector, error) {
	in, out := opts.PromptIn, opts.PromptOut
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	candidates := Candidates()
	if len(candidates) == 0 {
		return Selector{}, ErrNoDevice
	}

	fmt.Fprintln(out, "Available devices:")
	for i, c := range candidates {
		fmt.Fprintf(out, "  [%d] %s\n", i, c)
	}
	fmt.Fprint(out, "Choose device: ")

	// The caller may keep reading in after the answer, so an existing
	// buffered reader is used as is.
	br, ok := in.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(in)
	}
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return Selector{}, fmt.Errorf("%w: no selection made", ErrNoDevice)
	}
	line = strings.TrimSpace(line)
	i, err := strconv.Atoi(line)
	if err != nil || i < 0 || i >= len(candidates) {
		return Selector{}, fmt.Errorf("%w: invalid selection %q", ErrNoDevice, line)
	}
	return candidates[i], nil
}
