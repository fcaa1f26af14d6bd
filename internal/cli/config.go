package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Built-in defaults.
const (
	DefaultWidth  = 1024
	DefaultHeight = 1024
	DefaultMaxFPS = 60

	defaultConfigPath = "~/.config/squarezoom/config.toml"
)

// StdinPath is the input path that reads the image from standard input.
const StdinPath = "-"

// Config is the validated configuration of one run.
type Config struct {
	Width       int
	Height      int
	MaxFPS      int
	AllowResize bool
	Device      string
	Interactive bool
	Input       string
	Verbose     bool
}

// ReadsStdin reports whether the input image comes from standard input.
func (c Config) ReadsStdin() bool { return c.Input == StdinPath }

func defaults() Config {
	return Config{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		MaxFPS:      DefaultMaxFPS,
		AllowResize: true,
	}
}

// fileConfig is the TOML layout. Pointer fields distinguish absent keys
// from zero values so an explicit 0 is still rejected by validation.
type fileConfig struct {
	Width       *int    `toml:"width"`
	Height      *int    `toml:"height"`
	MaxFPS      *int    `toml:"max_fps"`
	AllowResize *bool   `toml:"allow_resize"`
	Device      *string `toml:"device"`
}

// loadFile applies the config file at path onto cfg. A missing file is
// only an error when it was named explicitly.
func loadFile(cfg *Config, path string, explicit bool) error {
	resolved, err := expandPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var raw fileConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config %s: %w", resolved, err)
	}
	if raw.Width != nil {
		cfg.Width = *raw.Width
	}
	if raw.Height != nil {
		cfg.Height = *raw.Height
	}
	if raw.MaxFPS != nil {
		cfg.MaxFPS = *raw.MaxFPS
	}
	if raw.AllowResize != nil {
		cfg.AllowResize = *raw.AllowResize
	}
	if raw.Device != nil {
		cfg.Device = strings.TrimSpace(*raw.Device)
	}
	return nil
}

// Encode writes the file-backed fields of cfg as TOML, in the layout the
// config file is read with.
func Encode(w io.Writer, cfg Config) error {
	raw := fileConfig{
		Width:       &cfg.Width,
		Height:      &cfg.Height,
		MaxFPS:      &cfg.MaxFPS,
		AllowResize: &cfg.AllowResize,
	}
	if cfg.Device != "" {
		raw.Device = &cfg.Device
	}
	return toml.NewEncoder(w).Encode(raw)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("config path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
