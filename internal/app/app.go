package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/glmodel/internal/config"
	"github.com/Faultbox/glmodel/internal/engine/debug"
	"github.com/Faultbox/glmodel/internal/engine/gpu"
	"github.com/Faultbox/glmodel/internal/engine/input"
	"github.com/Faultbox/glmodel/internal/engine/model"
	"github.com/Faultbox/glmodel/internal/engine/renderer"
	"github.com/Faultbox/glmodel/internal/engine/window"
)

// App is the model viewer.
type App struct {
	cfg   *config.Config
	log   *zap.Logger
	state *State

	window   *window.Window
	renderer *renderer.Renderer
	pass     *renderer.ModelPass
	input    *input.Input
	model    *model.Model
	shots    *debug.Screenshots
}

// New opens the window, loads the model and prepares the first frame.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, log: log, state: NewState(cfg)}

	var err error
	a.window, err = window.New(window.Config{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      cfg.Window.VSync,
		Logger:     log.Named("window"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	w, h := a.window.DrawableSize()
	a.state.Width, a.state.Height = w, h
	a.renderer, err = renderer.New(renderer.Config{
		Width:      w,
		Height:     h,
		ClearColor: cfg.Viewer.ClearColor,
		DepthTest:  true,
		Logger:     log.Named("renderer"),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	a.pass, err = renderer.NewModelPass()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.model = model.Load(cfg.Viewer.ModelPath, model.Config{
		Device:        gpu.NewGL(),
		TextureSubdir: cfg.Viewer.TextureSubdir,
		Logger:        log.Named("model"),
	})
	report := a.model.Report()
	if report.Status == model.StatusFailed {
		a.log.Warn("showing empty scene", zap.Error(report.ImportErr))
	} else if cfg.Camera.FrameModel {
		b := a.model.Bounds()
		a.state.FrameBounds(b.Min, b.Max)
	}
	a.window.SetTitle(fmt.Sprintf("%s - %s", cfg.Window.Title, cfg.Viewer.ModelPath))

	a.input = input.New()
	a.shots = debug.NewScreenshots(cfg.Viewer.ScreenshotDir, "glmodel")
	input.CaptureMouse(true)
	return a, nil
}

// Run drives the frame loop until the window closes or ESC is pressed.
func (a *App) Run() error {
	lastTime := time.Now()
	frameCount := 0
	fpsTimer := lastTime

	a.log.Info("starting viewer loop")
	for a.state.Running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		// 1. Input
		a.input.Update()
		snap := a.input.Snapshot()
		if snap.Resized {
			w, h := a.window.DrawableSize()
			snap.Width, snap.Height = w, h
			a.renderer.Resize(w, h)
		}

		// 2. Update
		a.state.Update(float32(dt), snap)
		if !a.state.Running {
			break
		}

		// 3. Render
		a.renderer.Begin()
		a.pass.Draw(a.model, a.state.World, a.state.View(), a.state.Projection())
		if snap.Screenshot {
			a.screenshot()
		}

		// 4. Present
		a.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			a.log.Debug("fps", zap.Int("count", frameCount), zap.Duration("dt", time.Duration(dt*float64(time.Second))))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (a *App) screenshot() {
	pixels, w, h := a.renderer.ReadPixels()
	name, err := a.shots.Save(pixels, w, h)
	if err != nil {
		a.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", name))
}

// Model returns the loaded model.
func (a *App) Model() *model.Model {
	return a.model
}

// Close releases GPU objects and closes the window. Safe on a partly built App.
func (a *App) Close() {
	a.log.Info("closing viewer")
	if a.model != nil {
		a.model.Release()
	}
	if a.pass != nil {
		a.pass.Delete()
	}
	if a.renderer != nil {
		a.renderer.Close()
	}
	if a.window != nil {
		input.CaptureMouse(false)
		a.window.Close()
	}
}
