// Package config handles shadow viewer configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-csm/internal/engine/lightcam"
	"github.com/Faultbox/midgard-csm/internal/engine/shadow"
)

// Config holds all settings.
type Config struct {
	Shadow   ShadowConfig   `yaml:"shadow"`
	Camera   CameraConfig   `yaml:"camera"`
	Scene    SceneConfig    `yaml:"scene"`
	Graphics GraphicsConfig `yaml:"graphics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ShadowConfig holds cascaded shadow map settings.
type ShadowConfig struct {
	SplitCount     int        `yaml:"split_count"`     // 1..3
	SplitLambda    float32    `yaml:"split_lambda"`    // 0 = uniform, 1 = logarithmic
	MapSize        int        `yaml:"map_size"`        // Texels per side
	Form           string     `yaml:"form"`            // basic | variance
	LightCamera    string     `yaml:"light_camera"`    // basic | focused | lispsm | oldlispsm
	LightDirection [3]float32 `yaml:"light_direction"` // Direction the light travels
	DepthBias      float32    `yaml:"depth_bias"`
	NewNFormula    bool       `yaml:"new_n_formula"`
	ExplicitN      float32    `yaml:"explicit_n"` // Warp near distance, 0 = computed
}

// CameraConfig holds the eye camera settings.
type CameraConfig struct {
	FOV      float32 `yaml:"fov"` // Vertical field of view in degrees
	Near     float32 `yaml:"near"`
	Far      float32 `yaml:"far"`
	Distance float32 `yaml:"distance"` // Orbit distance from the target
	Yaw      float32 `yaml:"yaw"`      // Degrees
	Pitch    float32 `yaml:"pitch"`    // Degrees
}

// SceneConfig holds the shadowed scene.
type SceneConfig struct {
	File string     `yaml:"file"` // Optional glTF file; its bounds replace Min/Max
	Min  [3]float32 `yaml:"min"`
	Max  [3]float32 `yaml:"max"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Shadow: ShadowConfig{
			SplitCount:     3,
			SplitLambda:    0.5,
			MapSize:        shadow.DefaultMapSize,
			Form:           "basic",
			LightCamera:    "lispsm",
			LightDirection: [3]float32{0.3, -1, 0.2},
			DepthBias:      shadow.DefaultDepthBias,
			NewNFormula:    true,
		},
		Camera: CameraConfig{
			FOV:      60,
			Near:     1,
			Far:      100,
			Distance: 30,
			Yaw:      45,
			Pitch:    25,
		},
		Scene: SceneConfig{
			Min: [3]float32{-50, -50, -50},
			Max: [3]float32{50, 50, 50},
		},
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	s := c.Shadow
	if s.SplitCount < 1 || s.SplitCount > shadow.MaxSplitCount {
		add("shadow.split_count %d not in [1, %d]", s.SplitCount, shadow.MaxSplitCount)
	}
	if !(s.SplitLambda >= 0 && s.SplitLambda <= 1) {
		add("shadow.split_lambda %g not in [0, 1]", s.SplitLambda)
	}
	if s.MapSize < 1 || s.MapSize > shadow.MaxMapSize {
		add("shadow.map_size %d not in [1, %d]", s.MapSize, shadow.MaxMapSize)
	}
	if _, err := shadow.ParseForm(s.Form); err != nil {
		add("shadow.form: %w", err)
	}
	if _, err := lightcam.ParseKind(s.LightCamera); err != nil {
		add("shadow.light_camera: %w", err)
	}
	if s.LightDirection == ([3]float32{}) {
		add("shadow.light_direction must not be zero")
	}
	if s.ExplicitN < 0 {
		add("shadow.explicit_n %g must not be negative", s.ExplicitN)
	}

	cam := c.Camera
	if !(cam.FOV > 0 && cam.FOV < 180) {
		add("camera.fov %g not in (0, 180)", cam.FOV)
	}
	if !(cam.Near > 0) {
		add("camera.near %g must be positive", cam.Near)
	}
	if !(cam.Far > cam.Near) {
		add("camera.far %g must be greater than near %g", cam.Far, cam.Near)
	}

	if c.Scene.File == "" {
		for i := range 3 {
			if c.Scene.Min[i] > c.Scene.Max[i] {
				add("scene.min[%d] %g greater than scene.max[%d] %g", i, c.Scene.Min[i], i, c.Scene.Max[i])
			}
		}
	}

	if c.Graphics.Width < 1 || c.Graphics.Height < 1 {
		add("graphics size %dx%d must be positive", c.Graphics.Width, c.Graphics.Height)
	}

	return errors.Join(errs...)
}
