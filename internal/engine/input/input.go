// Package input polls SDL2 events into a per-frame snapshot.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType identifies a discrete input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseWheel
)

// Event is a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	DX, DY float32
}

// Snapshot is the input state for one frame.
type Snapshot struct {
	Quit bool

	// Held movement keys (WASD).
	Forward, Backward, Left, Right bool

	// Mouse motion this frame; positive MouseDY is upward.
	MouseDX, MouseDY float32
	Wheel            float32

	Resized       bool
	Width, Height int

	// Screenshot is set when F12 went down this frame.
	Screenshot bool
}

// Input collects SDL events.
type Input struct {
	events []Event
	snap   Snapshot
}

// New creates an input handler.
func New() *Input {
	return &Input{events: make([]Event, 0, 16)}
}

// Update polls pending SDL events and rebuilds the snapshot.
// Returns true when the program should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	i.snap = Snapshot{}

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			i.snap.Quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
				i.snap.Resized = true
				i.snap.Width, i.snap.Height = int(e.Data1), int(e.Data2)
			}

		case *sdl.KeyboardEvent:
			switch e.Type {
			case sdl.KEYDOWN:
				i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})
				switch e.Keysym.Scancode {
				case sdl.SCANCODE_ESCAPE:
					i.snap.Quit = true
				case sdl.SCANCODE_F12:
					i.snap.Screenshot = e.Repeat == 0
				}
			case sdl.KEYUP:
				i.events = append(i.events, Event{Type: EventKeyUp, Key: e.Keysym.Scancode})
			}

		case *sdl.MouseMotionEvent:
			dx, dy := float32(e.XRel), float32(-e.YRel)
			i.events = append(i.events, Event{Type: EventMouseMove, DX: dx, DY: dy})
			i.snap.MouseDX += dx
			i.snap.MouseDY += dy

		case *sdl.MouseWheelEvent:
			i.events = append(i.events, Event{Type: EventMouseWheel, DY: float32(e.Y)})
			i.snap.Wheel += float32(e.Y)
		}
	}

	keys := sdl.GetKeyboardState()
	i.snap.Forward = keys[sdl.SCANCODE_W] != 0
	i.snap.Backward = keys[sdl.SCANCODE_S] != 0
	i.snap.Left = keys[sdl.SCANCODE_A] != 0
	i.snap.Right = keys[sdl.SCANCODE_D] != 0

	return i.snap.Quit
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Snapshot returns the state built by the last Update.
func (i *Input) Snapshot() Snapshot {
	return i.snap
}

// IsKeyPressed reports whether a key went down this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// CaptureMouse hides the cursor and reports relative motion only.
func CaptureMouse(on bool) {
	sdl.SetRelativeMouseMode(on)
}
