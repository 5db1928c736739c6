// Package config handles viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Config holds all settings.
type Config struct {
	Window  WindowConfig  `yaml:"window"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	Camera  CameraConfig  `yaml:"camera"`
	Logging LoggingConfig `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
	VSync      bool   `yaml:"vsync"`
}

// ViewerConfig holds model viewer settings.
type ViewerConfig struct {
	// ModelPath is the asset to open; empty asks with a file dialog.
	ModelPath     string `yaml:"model_path"`
	TextureSubdir string `yaml:"texture_subdir"`

	// Model transform: translation then uniform scale.
	ModelOffset [3]float32 `yaml:"model_offset"`
	ModelScale  float32    `yaml:"model_scale"`

	ClearColor [4]float32 `yaml:"clear_color"`
	Near       float32    `yaml:"near"`
	Far        float32    `yaml:"far"`

	// ScreenshotDir receives F12 captures.
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// CameraConfig holds fly camera settings.
type CameraConfig struct {
	Position    [3]float32 `yaml:"position"`
	Speed       float32    `yaml:"speed"`
	Sensitivity float32    `yaml:"sensitivity"`
	Zoom        float32    `yaml:"zoom"`
	// FrameModel moves the camera to fit the loaded model's bounds.
	FrameModel bool `yaml:"frame_model"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "glmodel",
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Viewer: ViewerConfig{
			TextureSubdir: "Texture",
			ModelOffset:   [3]float32{0, -5, -10},
			ModelScale:    1,
			ClearColor:    [4]float32{0.5, 0.7, 0.9, 1},
			Near:          0.1,
			Far:           200,
			ScreenshotDir: "screenshots",
		},
		Camera: CameraConfig{
			Position:    [3]float32{0, 3, 15},
			Speed:       2.5,
			Sensitivity: 0.1,
			Zoom:        45,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var err error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		err = multierr.Append(err, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Viewer.Near <= 0 || c.Viewer.Far <= c.Viewer.Near {
		err = multierr.Append(err, fmt.Errorf("clip planes near=%g far=%g: need 0 < near < far", c.Viewer.Near, c.Viewer.Far))
	}
	if c.Viewer.ModelScale == 0 {
		err = multierr.Append(err, errors.New("model_scale must not be zero"))
	}
	if c.Camera.Zoom < 1 || c.Camera.Zoom > 45 {
		err = multierr.Append(err, fmt.Errorf("camera zoom %g outside [1, 45]", c.Camera.Zoom))
	}
	if strings.ContainsAny(c.Viewer.TextureSubdir, `/\`) {
		err = multierr.Append(err, fmt.Errorf("texture_subdir %q must be a single directory name", c.Viewer.TextureSubdir))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}
	return err
}
