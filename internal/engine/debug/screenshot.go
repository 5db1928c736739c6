// Package debug provides viewer debugging helpers.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Screenshots writes frame captures as timestamped PNG files.
type Screenshots struct {
	Dir    string
	Prefix string

	now func() time.Time
}

// NewScreenshots creates a screenshot writer.
func NewScreenshots(dir, prefix string) *Screenshots {
	return &Screenshots{Dir: dir, Prefix: prefix, now: time.Now}
}

// Filename returns the path the next capture will be written to.
func (s *Screenshots) Filename() string {
	name := fmt.Sprintf("%s_%s.png", s.Prefix, s.now().Format("2006-01-02_15-04-05"))
	if s.Dir != "" {
		name = filepath.Join(s.Dir, name)
	}
	return name
}

// Save writes width*height RGBA pixels read back from the framebuffer.
// Rows are flipped since OpenGL's origin is bottom-left.
func (s *Screenshots) Save(pixels []byte, width, height int) (string, error) {
	if len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		copy(img.Pix[y*img.Stride:y*img.Stride+rowSize], pixels[src:src+rowSize])
	}

	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	name := s.Filename()
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return name, nil
}
