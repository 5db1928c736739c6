// Package camera provides a first-person fly camera.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Direction is a keyboard movement direction.
type Direction int

const (
	Forward Direction = iota
	Backward
	Left
	Right
)

// Defaults for a new FlyCamera.
const (
	DefaultYaw         = -90.0
	DefaultPitch       = 0.0
	DefaultSpeed       = 2.5
	DefaultSensitivity = 0.1
	DefaultZoom        = 45.0

	MaxPitch = 89.0
	MinZoom  = 1.0
	MaxZoom  = 45.0
)

// FlyCamera moves freely; yaw and pitch are in degrees and Zoom is the
// vertical field of view in degrees.
type FlyCamera struct {
	Position mgl32.Vec3
	Front    mgl32.Vec3
	Up       mgl32.Vec3
	Right    mgl32.Vec3
	WorldUp  mgl32.Vec3

	Yaw   float32
	Pitch float32

	Speed       float32
	Sensitivity float32
	Zoom        float32
}

// NewFlyCamera creates a camera at pos looking down -Z.
func NewFlyCamera(pos mgl32.Vec3) *FlyCamera {
	c := &FlyCamera{
		Position:    pos,
		WorldUp:     mgl32.Vec3{0, 1, 0},
		Yaw:         DefaultYaw,
		Pitch:       DefaultPitch,
		Speed:       DefaultSpeed,
		Sensitivity: DefaultSensitivity,
		Zoom:        DefaultZoom,
	}
	c.updateVectors()
	return c
}

// ViewMatrix returns the view matrix for the current position and orientation.
func (c *FlyCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front), c.Up)
}

// Projection returns a perspective projection using Zoom as the field of view.
func (c *FlyCamera) Projection(aspect, near, far float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.Zoom), aspect, near, far)
}

// Move translates the camera along its own axes. dt is in seconds.
func (c *FlyCamera) Move(dir Direction, dt float32) {
	v := c.Speed * dt
	switch dir {
	case Forward:
		c.Position = c.Position.Add(c.Front.Mul(v))
	case Backward:
		c.Position = c.Position.Sub(c.Front.Mul(v))
	case Left:
		c.Position = c.Position.Sub(c.Right.Mul(v))
	case Right:
		c.Position = c.Position.Add(c.Right.Mul(v))
	}
}

// Look turns the camera by a mouse offset. Positive dy looks up.
func (c *FlyCamera) Look(dx, dy float32) {
	c.Yaw += dx * c.Sensitivity
	c.Pitch += dy * c.Sensitivity
	c.Pitch = mgl32.Clamp(c.Pitch, -MaxPitch, MaxPitch)
	c.updateVectors()
}

// Scroll zooms by narrowing or widening the field of view.
func (c *FlyCamera) Scroll(dy float32) {
	c.Zoom = mgl32.Clamp(c.Zoom-dy, MinZoom, MaxZoom)
}

// Frame places the camera in front of a bounding box so that all of it is
// visible, looking down -Z at its center.
func (c *FlyCamera) Frame(min, max mgl32.Vec3) {
	center := min.Add(max).Mul(0.5)
	radius := max.Sub(min).Len() / 2
	if radius <= 0 {
		radius = 1
	}
	fov := float64(mgl32.DegToRad(c.Zoom))
	dist := radius / float32(math.Sin(fov/2))

	c.Yaw = DefaultYaw
	c.Pitch = DefaultPitch
	c.updateVectors()
	c.Position = center.Sub(c.Front.Mul(dist))
}

func (c *FlyCamera) updateVectors() {
	yaw := float64(mgl32.DegToRad(c.Yaw))
	pitch := float64(mgl32.DegToRad(c.Pitch))
	front := mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}
	c.Front = front.Normalize()
	c.Right = c.Front.Cross(c.WorldUp).Normalize()
	c.Up = c.Right.Cross(c.Front).Normalize()
}
