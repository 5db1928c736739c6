// Package main draws a colour-interpolated triangle rotating about Z.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/glmodel/internal/config"
	"github.com/Faultbox/glmodel/internal/engine/input"
	"github.com/Faultbox/glmodel/internal/engine/renderer"
	"github.com/Faultbox/glmodel/internal/engine/window"
	"github.com/Faultbox/glmodel/internal/logger"
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
		logger.Error("triangle demo failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	win, err := window.New(window.Config{
		Title:      "Rotating triangle",
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Logger:     logger.Named("window"),
	})
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Close()

	w, h := win.DrawableSize()
	r, err := renderer.New(renderer.Config{
		Width:      w,
		Height:     h,
		ClearColor: [4]float32{0.2, 0.3, 0.3, 1},
		Logger:     logger.Named("renderer"),
	})
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}
	defer r.Close()

	tri, err := renderer.NewTriangle()
	if err != nil {
		return err
	}
	defer tri.Delete()

	in := input.New()
	for !in.Update() {
		if snap := in.Snapshot(); snap.Resized {
			r.Resize(win.DrawableSize())
		}
		r.Begin()
		tri.Draw(float32(window.Ticks()))
		win.SwapBuffers()
	}
	return nil
}
