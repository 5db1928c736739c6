package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeTrueColor    = 2  // Uncompressed true-color
	TGATypeGray         = 3  // Uncompressed grayscale
	TGATypeTrueColorRLE = 10 // RLE compressed true-color
	TGATypeGrayRLE      = 11 // RLE compressed grayscale
)

var errTGATruncated = errors.New("TGA data truncated")

// DecodeTGA decodes a TGA image into straight-alpha RGBA.
// Supports true-color (24/32 bpp) and grayscale (8 bpp), raw or RLE.
// The standard library has no TGA decoder and TGA has no magic number, so
// callers select this decoder by file extension.
func DecodeTGA(data []byte) (*image.NRGBA, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	gray := imageType == TGATypeGray || imageType == TGATypeGrayRLE
	switch imageType {
	case TGATypeTrueColor, TGATypeTrueColorRLE:
		if bpp != 24 && bpp != 32 {
			return nil, fmt.Errorf("unsupported TGA bit depth %d", bpp)
		}
	case TGATypeGray, TGATypeGrayRLE:
		if bpp != 8 {
			return nil, fmt.Errorf("unsupported grayscale TGA bit depth %d", bpp)
		}
	default:
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("TGA has zero size %dx%d", width, height)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, errTGATruncated
	}

	d := tgaDecoder{
		src:         data[offset:],
		img:         image.NewNRGBA(image.Rect(0, 0, width, height)),
		width:       width,
		height:      height,
		bytesPP:     bpp / 8,
		gray:        gray,
		topToBottom: descriptor&0x20 != 0,
	}

	var err error
	if imageType == TGATypeTrueColorRLE || imageType == TGATypeGrayRLE {
		err = d.decodeRLE()
	} else {
		err = d.decodeRaw()
	}
	if err != nil {
		return nil, err
	}
	return d.img, nil
}

type tgaDecoder struct {
	src         []byte
	pos         int
	img         *image.NRGBA
	width       int
	height      int
	bytesPP     int
	gray        bool
	topToBottom bool
}

// pixel reads one BGR(A) or gray pixel at the current position.
func (d *tgaDecoder) pixel() (color.NRGBA, bool) {
	if d.pos+d.bytesPP > len(d.src) {
		return color.NRGBA{}, false
	}
	p := d.src[d.pos:]
	d.pos += d.bytesPP
	if d.gray {
		return color.NRGBA{R: p[0], G: p[0], B: p[0], A: 255}, true
	}
	c := color.NRGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bytesPP == 4 {
		c.A = p[3]
	}
	return c, true
}

// set stores pixel n (in file order) honoring the origin flag.
func (d *tgaDecoder) set(n int, c color.NRGBA) {
	x := n % d.width
	y := n / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetNRGBA(x, y, c)
}

func (d *tgaDecoder) decodeRaw() error {
	if len(d.src) < d.width*d.height*d.bytesPP {
		return errTGATruncated
	}
	for n := 0; n < d.width*d.height; n++ {
		c, _ := d.pixel()
		d.set(n, c)
	}
	return nil
}

func (d *tgaDecoder) decodeRLE() error {
	total := d.width * d.height
	n := 0
	for n < total {
		if d.pos >= len(d.src) {
			return errTGATruncated
		}
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, ok := d.pixel()
			if !ok {
				return errTGATruncated
			}
			for i := 0; i < count && n < total; i++ {
				d.set(n, c)
				n++
			}
			continue
		}
		for i := 0; i < count && n < total; i++ {
			c, ok := d.pixel()
			if !ok {
				return errTGATruncated
			}
			d.set(n, c)
			n++
		}
	}
	return nil
}
