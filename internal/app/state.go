// Package app runs the model viewer: window, input, per-frame update and render.
package app

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glmodel/internal/config"
	"github.com/Faultbox/glmodel/internal/engine/camera"
	"github.com/Faultbox/glmodel/internal/engine/input"
)

// State is everything the viewer changes from frame to frame.
type State struct {
	Camera *camera.FlyCamera

	Running bool
	// Elapsed is seconds since the first frame.
	Elapsed float64
	Frames  uint64

	Width, Height int

	// World places the model in the scene.
	World mgl32.Mat4
	Near  float32
	Far   float32
}

// NewState builds the initial state from config.
func NewState(cfg *config.Config) *State {
	cam := camera.NewFlyCamera(mgl32.Vec3(cfg.Camera.Position))
	cam.Speed = cfg.Camera.Speed
	cam.Sensitivity = cfg.Camera.Sensitivity
	cam.Zoom = cfg.Camera.Zoom

	offset := mgl32.Vec3(cfg.Viewer.ModelOffset)
	s := cfg.Viewer.ModelScale
	return &State{
		Camera:  cam,
		Running: true,
		Width:   cfg.Window.Width,
		Height:  cfg.Window.Height,
		World:   mgl32.Translate3D(offset.X(), offset.Y(), offset.Z()).Mul4(mgl32.Scale3D(s, s, s)),
		Near:    cfg.Viewer.Near,
		Far:     cfg.Viewer.Far,
	}
}

// Update applies one frame of input. dt is in seconds.
func (s *State) Update(dt float32, in input.Snapshot) {
	if in.Quit {
		s.Running = false
	}
	if in.Resized && in.Width > 0 && in.Height > 0 {
		s.Width, s.Height = in.Width, in.Height
	}

	if in.Forward {
		s.Camera.Move(camera.Forward, dt)
	}
	if in.Backward {
		s.Camera.Move(camera.Backward, dt)
	}
	if in.Left {
		s.Camera.Move(camera.Left, dt)
	}
	if in.Right {
		s.Camera.Move(camera.Right, dt)
	}
	if in.MouseDX != 0 || in.MouseDY != 0 {
		s.Camera.Look(in.MouseDX, in.MouseDY)
	}
	if in.Wheel != 0 {
		s.Camera.Scroll(in.Wheel)
	}

	s.Elapsed += float64(dt)
	s.Frames++
}

// Aspect returns the viewport aspect ratio.
func (s *State) Aspect() float32 {
	if s.Height == 0 {
		return 1
	}
	return float32(s.Width) / float32(s.Height)
}

// View returns the camera view matrix.
func (s *State) View() mgl32.Mat4 {
	return s.Camera.ViewMatrix()
}

// Projection returns the camera projection for the current viewport.
func (s *State) Projection() mgl32.Mat4 {
	return s.Camera.Projection(s.Aspect(), s.Near, s.Far)
}

// FrameBounds points the camera at a model-space bounding box placed by World.
func (s *State) FrameBounds(min, max [3]float32) {
	lo := s.World.Mul4x1(mgl32.Vec3(min).Vec4(1)).Vec3()
	hi := s.World.Mul4x1(mgl32.Vec3(max).Vec4(1)).Vec3()
	for i := 0; i < 3; i++ {
		if lo[i] > hi[i] {
			lo[i], hi[i] = hi[i], lo[i]
		}
	}
	s.Camera.Frame(lo, hi)
}
