// Command squarezoom shows an endless zoom into a tiled image.
//
//	squarezoom [options] input-file
//
// The input image is read from input-file, or from standard input when it
// is "-". Run with -? for the options.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nqpz/squarezoom/internal/cli"
	"github.com/nqpz/squarezoom/internal/engine"
	"github.com/nqpz/squarezoom/internal/imagefile"
	"github.com/nqpz/squarezoom/internal/session"
	"github.com/nqpz/squarezoom/internal/window"

	// Engine backends register themselves.
	_ "github.com/nqpz/squarezoom/internal/engine/cpu"
	_ "github.com/nqpz/squarezoom/internal/engine/gpu"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	prog := filepath.Base(args[0])
	cfg, exit, err := cli.Parse(prog, args[1:], stdout)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		var ue *cli.UsageError
		if errors.As(err, &ue) {
			return ue.Code()
		}
		return 1
	}
	if exit {
		return 0
	}

	setLoggers(stderr, cfg.Verbose)

	s := session.New(cfg, session.Deps{Stdin: stdin, Stdout: stdout})
	if err := s.Run(); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		return 1
	}
	return 0
}

func setLoggers(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	imagefile.SetLogger(logger)
	engine.SetLogger(logger)
	window.SetLogger(logger)
	session.SetLogger(logger)
}
