// Command imageconv converts an image with the codec squarezoom is built
// with.
//
//	imageconv IN OUT
//
// Either path may be "-" for standard input or output. The output format
// follows the extension of OUT where the codec supports it.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nqpz/squarezoom/internal/imagefile"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	prog := filepath.Base(args[0])
	if len(args) != 3 {
		fmt.Fprintf(stderr, "Usage: %s IN OUT\n", prog)
		return 2
	}
	imagefile.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := convert(imagefile.New(), args[1], args[2], stdin, stdout); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		return 1
	}
	return 0
}

func convert(codec imagefile.Codec, in, out string, stdin io.Reader, stdout io.Writer) (err error) {
	r := stdin
	if in != "-" {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	img, err := codec.Load(in, r)
	if err != nil {
		return fmt.Errorf("load %s: %w", in, err)
	}
	defer img.Release()

	w := stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := codec.Save(out, bw, img); err != nil {
		return fmt.Errorf("save %s: %w", out, err)
	}
	return bw.Flush()
}
