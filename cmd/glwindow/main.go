// Package main opens an OpenGL window and clears it every frame until closed.
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

	win, err := window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Logger:     logger.Named("window"),
	})
	if err != nil {
		logger.Error("failed to create window", zap.Error(err))
		os.Exit(1)
	}
	defer win.Close()

	w, h := win.DrawableSize()
	r, err := renderer.New(renderer.Config{
		Width:      w,
		Height:     h,
		ClearColor: cfg.Viewer.ClearColor,
		Logger:     logger.Named("renderer"),
	})
	if err != nil {
		logger.Error("failed to create renderer", zap.Error(err))
		os.Exit(1)
	}
	defer r.Close()

	in := input.New()
	for !in.Update() {
		if snap := in.Snapshot(); snap.Resized {
			r.Resize(win.DrawableSize())
		}
		r.Begin()
		win.SwapBuffers()
	}
	logger.Info("window closed")
}
