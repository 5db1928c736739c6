// Package renderer provides OpenGL rendering functionality.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// Config holds renderer configuration.
type Config struct {
	Width      int
	Height     int
	ClearColor [4]float32
	// DepthTest is off for 2D demos.
	DepthTest bool
	Logger    *zap.Logger
}

// Renderer owns the global GL state of a frame.
type Renderer struct {
	config Config
	log    *zap.Logger
}

// New loads the GL function pointers and sets the default state.
// Must be called after the OpenGL context is created.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{config: cfg, log: cfg.Logger}
	if r.log == nil {
		r.log = zap.NewNop()
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	if cfg.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LESS)
	}
	c := cfg.ClearColor
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))

	return r, nil
}

// Resize updates the viewport.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Aspect returns the viewport width over height.
func (r *Renderer) Aspect() float32 {
	if r.config.Height == 0 {
		return 1
	}
	return float32(r.config.Width) / float32(r.config.Height)
}

// Begin clears the frame.
func (r *Renderer) Begin() {
	mask := uint32(gl.COLOR_BUFFER_BIT)
	if r.config.DepthTest {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(mask)
}

// ReadPixels reads the current framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() (pixels []byte, width, height int) {
	width, height = r.config.Width, r.config.Height
	pixels = make([]byte, width*height*4)
	if len(pixels) == 0 {
		return pixels, width, height
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, width, height
}

// Close releases renderer state.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
}
