package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolate points the default config path at an empty home directory.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestParse_Defaults(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	cfg, exit, err := Parse("squarezoom", []string{"image.png"}, &out)
	if err != nil || exit {
		t.Fatalf("Parse() = exit %v, err %v", exit, err)
	}
	want := Config{Width: 1024, Height: 1024, MaxFPS: 60, AllowResize: true, Input: "image.png"}
	if cfg != want {
		t.Errorf("Parse() = %+v, want %+v", cfg, want)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestParse_AllFlags(t *testing.T) {
	isolate(t)
	cfg, _, err := Parse("squarezoom", []string{"-w", "640", "-h", "480", "-r", "30", "-R", "-d", "cpu", "-i", "-v", "-"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := Config{Width: 640, Height: 480, MaxFPS: 30, Device: "cpu", Interactive: true, Input: "-", Verbose: true}
	if cfg != want {
		t.Errorf("Parse() = %+v, want %+v", cfg, want)
	}
	if !cfg.ReadsStdin() {
		t.Error("ReadsStdin() = false for \"-\"")
	}
}

func TestParse_UsageErrors(t *testing.T) {
	isolate(t)
	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"zero width", []string{"-w", "0", "a.png"}, "not a valid width"},
		{"negative height", []string{"-h", "-5", "a.png"}, "not a valid height"},
		{"zero fps", []string{"-r", "0", "a.png"}, "not a valid framerate"},
		{"non-numeric", []string{"-w", "wide", "a.png"}, "invalid value"},
		{"unknown flag", []string{"-x", "a.png"}, "not defined"},
		{"missing input", []string{}, "missing input"},
		{"two inputs", []string{"a.png", "b.png"}, "excess non-options: b.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, exit, err := Parse("squarezoom", tt.args, &out)
			if exit {
				t.Error("exit = true on usage error")
			}
			var ue *UsageError
			if !errors.As(err, &ue) {
				t.Fatalf("error = %v, want *UsageError", err)
			}
			if ue.Code() != ExitUsage {
				t.Errorf("Code() = %d, want %d", ue.Code(), ExitUsage)
			}
			if !strings.Contains(ue.Message, tt.msg) {
				t.Errorf("message = %q, want it to contain %q", ue.Message, tt.msg)
			}
			if !strings.Contains(out.String(), "Usage: squarezoom") {
				t.Errorf("usage not printed, output = %q", out.String())
			}
		})
	}
}

func TestParse_Help(t *testing.T) {
	isolate(t)
	for _, args := range [][]string{{"-?"}, {"-help"}, {"-?", "a.png", "b.png"}} {
		var out bytes.Buffer
		_, exit, err := Parse("squarezoom", args, &out)
		if err != nil || !exit {
			t.Errorf("Parse(%v) = exit %v, err %v; want exit true, nil", args, exit, err)
		}
		for _, want := range []string{"Usage: squarezoom", "-w width", "-R", "-i"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("Parse(%v) help lacks %q:\n%s", args, want, out.String())
			}
		}
	}
}

func TestParse_ConfigFileLayering(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "squarezoom")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := "width = 800\nheight = 600\nmax_fps = 24\nallow_resize = false\ndevice = \"gpu:low-power\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Parse("squarezoom", []string{"-w", "320", "in.ppm"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := Config{Width: 320, Height: 600, MaxFPS: 24, AllowResize: false, Device: "gpu:low-power", Input: "in.ppm"}
	if cfg != want {
		t.Errorf("Parse() = %+v, want %+v", cfg, want)
	}
}

func TestParse_ExplicitConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "zoom.toml")
	if err := os.WriteFile(path, []byte("max_fps = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Parse("squarezoom", []string{"-c", path, "in.png"}, &bytes.Buffer{})
	var ue *UsageError
	if !errors.As(err, &ue) || !strings.Contains(ue.Message, "framerate") {
		t.Errorf("Parse() error = %v, want framerate usage error from the file", err)
	}

	_, _, err = Parse("squarezoom", []string{"-c", filepath.Join(t.TempDir(), "missing.toml"), "in.png"}, &bytes.Buffer{})
	if err == nil || errors.As(err, &ue) {
		t.Errorf("Parse() with missing -c file error = %v, want a non-usage error", err)
	}
}

func TestParse_BadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("width = \"wide\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Parse("squarezoom", []string{"-c", path, "in.png"}, &bytes.Buffer{}); err == nil {
		t.Error("Parse() with a mistyped config value succeeded")
	}
}

func TestParse_PrintConfig(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	_, exit, err := Parse("squarezoom", []string{"-w", "300", "-d", "cpu", "-print-config"}, &out)
	if err != nil || !exit {
		t.Fatalf("Parse() = exit %v, err %v", exit, err)
	}

	path := filepath.Join(t.TempDir(), "printed.toml")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Parse("squarezoom", []string{"-c", path, "x"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Parse(printed config) error = %v", err)
	}
	if cfg.Width != 300 || cfg.Device != "cpu" || cfg.Height != DefaultHeight {
		t.Errorf("reloaded config = %+v", cfg)
	}
}
