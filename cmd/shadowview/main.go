// shadowview is an interactive viewer for cascaded shadow maps. It orbits a
// camera around a glTF or generated scene lit by an animated sun.
package main

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csm/internal/config"
	"github.com/Faultbox/midgard-csm/internal/engine/debug"
	"github.com/Faultbox/midgard-csm/internal/engine/input"
	"github.com/Faultbox/midgard-csm/internal/engine/lighting"
	"github.com/Faultbox/midgard-csm/internal/engine/renderer"
	"github.com/Faultbox/midgard-csm/internal/engine/shadow"
	"github.com/Faultbox/midgard-csm/internal/engine/shadowmap"
	"github.com/Faultbox/midgard-csm/internal/engine/window"
	"github.com/Faultbox/midgard-csm/internal/logger"
	"github.com/Faultbox/midgard-csm/internal/scenefile"
)

const (
	windowTitle = "Midgard CSM"
	sunFPS      = 60
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("shadowview failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("shadowview closed normally")
}

func run(cfg *config.Config) error {
	logger.Info("=== Midgard CSM viewer ===",
		zap.Int("splits", cfg.Shadow.SplitCount),
		zap.String("form", cfg.Shadow.Form),
		zap.String("light_camera", cfg.Shadow.LightCamera),
	)

	win, err := window.New(window.Config{
		Title:      windowTitle,
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	}, logger.Named("window"))
	if err != nil {
		return err
	}
	defer win.Close()

	dw, dh := win.DrawableSize()
	rend, err := renderer.New(renderer.Config{Width: dw, Height: dh}, logger.Named("renderer"))
	if err != nil {
		return err
	}
	defer rend.Close()

	scene, err := loadScene(cfg)
	if err != nil {
		return err
	}
	rend.Upload(scene)
	logger.Info("scene bounds", logger.Box("box", scene.Bounds))

	blur, err := shadowmap.NewGaussianBlur()
	if err != nil {
		return err
	}
	defer blur.Destroy()

	opts := cfg.Shadow.Options()
	opts.NewTarget = shadowmap.NewTarget
	opts.Blurrer = blur
	opts.DrawCasters = rend.DrawCasters
	opts.Logger = logger.Named("shadow")

	csm, err := shadow.New(opts)
	if err != nil {
		return err
	}
	defer csm.Destroy()

	v := &viewer{
		cfg:      cfg,
		win:      win,
		rend:     rend,
		csm:      csm,
		scene:    scene,
		cam:      cfg.Camera.NewOrbitCamera(),
		sun:      lighting.NewSun(cfg.Shadow.Direction(), sunFPS),
		snapshot: debug.NewDepthSnapshot("screenshots", "csm"),
		log:      logger.Named("viewer"),
	}
	v.cam.Center = scene.Bounds.Center()
	v.cam.Center.Y = scene.Bounds.Min.Y

	return v.loop(input.New())
}

func loadScene(cfg *config.Config) (*scenefile.Scene, error) {
	if cfg.Scene.File != "" {
		s, err := scenefile.Load(cfg.Scene.File)
		if err != nil {
			return nil, fmt.Errorf("loading scene: %w", err)
		}
		return s, nil
	}
	b := cfg.Scene.Box()
	extent := max(b.Max.X-b.Min.X, b.Max.Z-b.Min.Z) / 2
	return scenefile.Demo(extent), nil
}

func (v *viewer) loop(in *input.Input) error {
	var frameLimit time.Duration
	if v.cfg.Graphics.FPSLimit > 0 {
		frameLimit = time.Second / time.Duration(v.cfg.Graphics.FPSLimit)
	}

	titleTick := time.Now()
	frames := 0

	for {
		start := time.Now()

		f := in.Update()
		if f.Quit {
			return nil
		}
		if f.Resized {
			dw, dh := v.win.DrawableSize()
			v.rend.Resize(dw, dh)
		}
		v.handleInput(f)

		if err := v.drawFrame(); err != nil {
			return err
		}
		v.win.SwapBuffers()

		frames++
		if since := time.Since(titleTick); since >= time.Second {
			v.win.SetTitle(v.title(float64(frames) / since.Seconds()))
			frames = 0
			titleTick = time.Now()
		}

		if frameLimit > 0 {
			if rest := frameLimit - time.Since(start); rest > 0 {
				time.Sleep(rest)
			}
		}
	}
}
