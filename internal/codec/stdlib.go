package codec

import (
	"bytes"
	"context"
	"image/jpeg"
	"image/png"

	"github.com/vrsandeep/squish-go/internal/models"
)

// JPEGCodec encodes with the standard library JPEG encoder.
type JPEGCodec struct{}

func (JPEGCodec) Format() models.Format          { return models.JPEG }
func (JPEGCodec) QualityScale() QualityScale     { return ScalePercent }
func (JPEGCodec) Load(ctx context.Context) error { return ctx.Err() }

func (JPEGCodec) Encode(ctx context.Context, buf *models.PixelBuffer, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := jpeg.Encode(&out, buf.Image(), &jpeg.Options{Quality: clampPercent(opts.Quality)}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// PNGCodec is the lossless backend; it ignores quality.
type PNGCodec struct{}

func (PNGCodec) Format() models.Format          { return models.PNG }
func (PNGCodec) QualityScale() QualityScale     { return ScaleNone }
func (PNGCodec) Load(ctx context.Context) error { return ctx.Err() }

func (PNGCodec) Encode(ctx context.Context, buf *models.PixelBuffer, _ Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&out, buf.Image()); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func clampPercent(q float64) int {
	v := int(q + 0.5)
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
