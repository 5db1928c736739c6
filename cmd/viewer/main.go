// Package main is the entry point for the textured model viewer.
package main

import (
	"fmt"
	"os"

	"github.com/sqweek/dialog"
	"go.uber.org/zap"

	"github.com/Faultbox/glmodel/internal/app"
	"github.com/Faultbox/glmodel/internal/config"
	"github.com/Faultbox/glmodel/internal/logger"
	"github.com/Faultbox/glmodel/pkg/importer"
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

	logger.Info("=== glmodel viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if cfg.Viewer.ModelPath == "" {
		if args := config.Args(); len(args) > 0 {
			cfg.Viewer.ModelPath = args[0]
		}
	}
	if cfg.Viewer.ModelPath == "" {
		path, err := chooseModel()
		if err != nil {
			if err != dialog.ErrCancelled {
				logger.Error("file dialog failed", zap.Error(err))
			}
			os.Exit(1)
		}
		cfg.Viewer.ModelPath = path
	}

	a, err := app.New(cfg, logger.Log)
	if err != nil {
		logger.Error("failed to create viewer", zap.Error(err))
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("viewer closed normally")
}

// chooseModel asks for a model file. It runs before any window exists, so
// it can block the main thread.
func chooseModel() (string, error) {
	return dialog.File().
		Filter("3D Models", importer.Extensions()...).
		Filter("All Files", "*").
		Title("Open Model").
		Load()
}
