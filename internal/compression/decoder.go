package compression

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	_ "github.com/gen2brain/avif"   // Register AVIF decoder
	_ "github.com/gen2brain/jpegxl" // Register JPEG XL decoder
	_ "golang.org/x/image/bmp"      // Register BMP decoder
	_ "golang.org/x/image/tiff"     // Register TIFF decoder
	_ "golang.org/x/image/webp"     // Register WebP decoder

	"github.com/vrsandeep/squish-go/internal/models"
)

// DefaultMaxPixels caps decoded surfaces at 100 megapixels.
const DefaultMaxPixels = 100_000_000

// Decoder turns raw file bytes into the canonical RGBA pixel buffer.
type Decoder struct {
	maxPixels int
}

// NewDecoder creates a decoder. A non-positive maxPixels uses DefaultMaxPixels.
func NewDecoder(maxPixels int) *Decoder {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Decoder{maxPixels: maxPixels}
}

// Decode reads the image header, checks that a surface of that size can be
// allocated, then decodes and converts the pixels to non-premultiplied RGBA.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*models.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &DecodeError{Message: "empty source"}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Message: "unrecognized image data", Cause: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{Message: fmt.Sprintf("invalid %s dimensions %dx%d", format, cfg.Width, cfg.Height)}
	}
	if cfg.Width*cfg.Height > d.maxPixels {
		return nil, &DecodeError{Message: fmt.Sprintf("%dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, d.maxPixels)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Message: fmt.Sprintf("corrupt %s data", format), Cause: err}
	}
	return toPixelBuffer(img), nil
}

func toPixelBuffer(img image.Image) *models.PixelBuffer {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return &models.PixelBuffer{
		Width:   b.Dx(),
		Height:  b.Dy(),
		Samples: nrgba.Pix,
	}
}
