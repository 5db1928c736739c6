package config

import "flag"

var (
	flagConfig        = flag.String("config", "", "Path to config file")
	flagDebug         = flag.Bool("debug", false, "Enable debug logging")
	flagModel         = flag.String("model", "", "Model file to open (.obj, .gltf, .glb)")
	flagTextureSubdir = flag.String("texture-subdir", "", "Texture folder next to the model")
	flagWindowed      = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen    = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth         = flag.Int("width", 0, "Window width")
	flagHeight        = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagModel != "" {
		cfg.Viewer.ModelPath = *flagModel
	}
	if *flagTextureSubdir != "" {
		cfg.Viewer.TextureSubdir = *flagTextureSubdir
	}
	if *flagWindowed {
		cfg.Window.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
}
