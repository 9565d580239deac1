package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagWindowed    = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen  = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth       = flag.Int("width", 0, "Window width")
	flagHeight      = flag.Int("height", 0, "Window height")
	flagSplits      = flag.Int("splits", 0, "Number of shadow cascades (1-3)")
	flagLambda      = flag.Float64("lambda", -1, "Split lambda (0 = uniform, 1 = logarithmic)")
	flagForm        = flag.String("form", "", "Shadow map form (basic, variance)")
	flagLightCamera = flag.String("light-camera", "", "Light camera (basic, focused, lispsm, oldlispsm)")
	flagScene       = flag.String("scene", "", "glTF scene file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagSplits > 0 {
		cfg.Shadow.SplitCount = *flagSplits
	}
	if *flagLambda >= 0 {
		cfg.Shadow.SplitLambda = float32(*flagLambda)
	}
	if *flagForm != "" {
		cfg.Shadow.Form = *flagForm
	}
	if *flagLightCamera != "" {
		cfg.Shadow.LightCamera = *flagLightCamera
	}
	if *flagScene != "" {
		cfg.Scene.File = *flagScene
	}
}
