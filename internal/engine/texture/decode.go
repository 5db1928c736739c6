// Package texture decodes images and loads them as GPU textures for models.
package texture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Channels is the number of channels every decoded texture has.
const Channels = 4

// DecodeFunc reads and decodes the image at path into a 4-channel buffer.
type DecodeFunc func(path string) (*image.NRGBA, error)

// LoadFile reads an image file and converts it to 4-channel straight-alpha RGBA,
// whatever the channel count of the source.
func LoadFile(path string) (*image.NRGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes image bytes. name is only used to pick the TGA decoder,
// every other format is sniffed from the data.
func Decode(name string, data []byte) (*image.NRGBA, error) {
	if strings.EqualFold(filepath.Ext(name), ".tga") {
		return DecodeTGA(data)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts any image to a zero-origin *image.NRGBA.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
