package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// ExitUsage is the exit status for usage errors.
const ExitUsage = 2

// UsageError reports bad or missing command-line arguments. The usage text
// has already been printed when it is returned.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return e.Message }

// Code returns the process exit status for the error.
func (e *UsageError) Code() int { return ExitUsage }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}

const usageHeader = `Usage: %s options... input-file

Reads the input image from input-file, or from standard input when
input-file is "-".

Options:
`

// Parse builds a Config from args, which exclude the program name. Usage
// text goes to stdout. It returns exit=true when the program should stop
// successfully without running, as for -?.
func Parse(prog string, args []string, stdout io.Writer) (Config, bool, error) {
	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		fmt.Fprintf(stdout, usageHeader, prog)
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
	}

	help := fs.Bool("?", false, "Print this help and exit.")
	width := fs.Int("w", DefaultWidth, "Set the initial `width` of the window.")
	height := fs.Int("h", DefaultHeight, "Set the initial `height` of the window.")
	noResize := fs.Bool("R", false, "Disallow resizing the window.")
	device := fs.String("d", "", "Set the computation `device` (gpu, gpu:low-power, gpu:fallback, cpu).")
	maxFPS := fs.Int("r", DefaultMaxFPS, "Maximum `frames` per second.")
	interactive := fs.Bool("i", false, "Select execution device interactively.")
	configPath := fs.String("c", "", "Read defaults from the TOML config `file`.")
	verbose := fs.Bool("v", false, "Log debug detail to standard error.")
	printConfig := fs.Bool("print-config", false, "Print the effective configuration as TOML and exit.")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, true, nil
		}
		return Config{}, false, &UsageError{Message: err.Error()}
	}
	if *help {
		fs.Usage()
		return Config{}, true, nil
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := defaults()
	path, explicit := defaultConfigPath, false
	if set["c"] {
		path, explicit = *configPath, true
	}
	if err := loadFile(&cfg, path, explicit); err != nil {
		return Config{}, false, fmt.Errorf("cli: %w", err)
	}

	if set["w"] {
		cfg.Width = *width
	}
	if set["h"] {
		cfg.Height = *height
	}
	if set["r"] {
		cfg.MaxFPS = *maxFPS
	}
	if *noResize {
		cfg.AllowResize = false
	}
	if set["d"] {
		cfg.Device = strings.TrimSpace(*device)
	}
	cfg.Interactive = *interactive
	cfg.Verbose = *verbose

	if err := cfg.validate(); err != nil {
		fs.Usage()
		return Config{}, false, err
	}

	if *printConfig {
		if err := Encode(stdout, cfg); err != nil {
			return Config{}, false, fmt.Errorf("cli: %w", err)
		}
		return cfg, true, nil
	}

	switch fs.NArg() {
	case 0:
		fs.Usage()
		return Config{}, false, usageErrorf("missing input image")
	case 1:
		cfg.Input = fs.Arg(0)
	default:
		fs.Usage()
		return Config{}, false, usageErrorf("excess non-options: %s", strings.Join(fs.Args()[1:], " "))
	}
	return cfg, false, nil
}

// validate checks the merged values, whichever layer they came from.
func (c Config) validate() error {
	switch {
	case c.Width <= 0:
		return usageErrorf("'%d' is not a valid width", c.Width)
	case c.Height <= 0:
		return usageErrorf("'%d' is not a valid height", c.Height)
	case c.MaxFPS <= 0:
		return usageErrorf("'%d' is not a valid framerate", c.MaxFPS)
	}
	return nil
}
