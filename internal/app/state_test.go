package app

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glmodel/internal/config"
	"github.com/Faultbox/glmodel/internal/engine/input"
)

func near(a, b mgl32.Vec3) bool {
	return a.Sub(b).Len() < 1e-4
}

func TestNewState(t *testing.T) {
	s := NewState(config.Default())

	if !s.Running {
		t.Error("new state should be running")
	}
	if !near(s.Camera.Position, mgl32.Vec3{0, 3, 15}) {
		t.Errorf("camera position %v", s.Camera.Position)
	}
	origin := s.World.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !near(origin, mgl32.Vec3{0, -5, -10}) {
		t.Errorf("model origin placed at %v", origin)
	}
	if got := s.Aspect(); got != 1280.0/720.0 {
		t.Errorf("aspect %v", got)
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name  string
		in    input.Snapshot
		check func(*testing.T, *State)
	}{
		{
			name: "quit",
			in:   input.Snapshot{Quit: true},
			check: func(t *testing.T, s *State) {
				if s.Running {
					t.Error("expected Running=false")
				}
			},
		},
		{
			name: "forward",
			in:   input.Snapshot{Forward: true},
			check: func(t *testing.T, s *State) {
				if !near(s.Camera.Position, mgl32.Vec3{0, 3, 12.5}) {
					t.Errorf("position %v", s.Camera.Position)
				}
			},
		},
		{
			name: "strafe cancels",
			in:   input.Snapshot{Left: true, Right: true},
			check: func(t *testing.T, s *State) {
				if !near(s.Camera.Position, mgl32.Vec3{0, 3, 15}) {
					t.Errorf("position %v", s.Camera.Position)
				}
			},
		},
		{
			name: "mouse look",
			in:   input.Snapshot{MouseDY: 100},
			check: func(t *testing.T, s *State) {
				if s.Camera.Pitch != 10 {
					t.Errorf("pitch %v, want 10", s.Camera.Pitch)
				}
			},
		},
		{
			name: "wheel zoom",
			in:   input.Snapshot{Wheel: 5},
			check: func(t *testing.T, s *State) {
				if s.Camera.Zoom != 40 {
					t.Errorf("zoom %v, want 40", s.Camera.Zoom)
				}
			},
		},
		{
			name: "resize",
			in:   input.Snapshot{Resized: true, Width: 800, Height: 800},
			check: func(t *testing.T, s *State) {
				if s.Aspect() != 1 {
					t.Errorf("aspect %v, want 1", s.Aspect())
				}
			},
		},
		{
			name: "zero size resize ignored",
			in:   input.Snapshot{Resized: true, Width: 0, Height: 0},
			check: func(t *testing.T, s *State) {
				if s.Width != 1280 || s.Height != 720 {
					t.Errorf("size %dx%d", s.Width, s.Height)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(config.Default())
			s.Update(1, tt.in)
			tt.check(t, s)
			if s.Frames != 1 || s.Elapsed != 1 {
				t.Errorf("frames=%d elapsed=%v", s.Frames, s.Elapsed)
			}
		})
	}
}

func TestFrameBounds(t *testing.T) {
	s := NewState(config.Default())
	s.FrameBounds([3]float32{-1, 0, -1}, [3]float32{1, 2, 1})

	// box center in world space is (0, -4, -10)
	target := mgl32.Vec3{0, -4, -10}
	toTarget := target.Sub(s.Camera.Position).Normalize()
	if !near(toTarget, s.Camera.Front) {
		t.Errorf("camera at %v facing %v does not look at %v", s.Camera.Position, s.Camera.Front, target)
	}
}
