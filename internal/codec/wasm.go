package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/jpegxl"
	"github.com/gen2brain/webp"
	"github.com/vrsandeep/squish-go/internal/models"
)

// The WEBP, AVIF and JXL backends run their reference encoders as WASM modules.
// The module is compiled on first use, so Load performs a 1x1 encode to surface
// runtime failures before any real image reaches the codec.

type encodeFunc func(w io.Writer, img image.Image) error

// runEncode invokes a WASM-backed encoder, converting runtime panics into errors
// wrapping ErrRuntimeUnavailable.
func runEncode(ctx context.Context, img image.Image, encode encodeFunc) (out []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("%w: wasm encoder panicked: %v", ErrRuntimeUnavailable, rec)
		}
	}()
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func warmUp(ctx context.Context, encode encodeFunc) error {
	pixel := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	pixel.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	out, err := runEncode(ctx, pixel, encode)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}
	if len(out) == 0 {
		return fmt.Errorf("%w: warm-up encode produced no output", ErrRuntimeUnavailable)
	}
	return nil
}

// WebPCodec encodes lossy WebP. Quality is consumed on the 1-100 scale.
type WebPCodec struct{}

func (WebPCodec) Format() models.Format      { return models.WEBP }
func (WebPCodec) QualityScale() QualityScale { return ScalePercent }

func (c WebPCodec) Load(ctx context.Context) error {
	return warmUp(ctx, c.encoder(Options{Quality: 75, HasQuality: true}))
}

func (c WebPCodec) Encode(ctx context.Context, buf *models.PixelBuffer, opts Options) ([]byte, error) {
	return runEncode(ctx, buf.Image(), c.encoder(opts))
}

func (WebPCodec) encoder(opts Options) encodeFunc {
	return func(w io.Writer, img image.Image) error {
		return webp.Encode(w, img, webp.Options{Quality: clampPercent(opts.Quality), Method: 4})
	}
}

// AVIFCodec encodes AVIF. Quality is consumed as a 0.0-1.0 fraction.
type AVIFCodec struct{}

func (AVIFCodec) Format() models.Format      { return models.AVIF }
func (AVIFCodec) QualityScale() QualityScale { return ScaleFraction }

func (c AVIFCodec) Load(ctx context.Context) error {
	return warmUp(ctx, c.encoder(Options{Quality: 0.5, HasQuality: true}))
}

func (c AVIFCodec) Encode(ctx context.Context, buf *models.PixelBuffer, opts Options) ([]byte, error) {
	return runEncode(ctx, buf.Image(), c.encoder(opts))
}

func (AVIFCodec) encoder(opts Options) encodeFunc {
	q := clampPercent(opts.Quality * 100)
	return func(w io.Writer, img image.Image) error {
		return avif.Encode(w, img, avif.Options{
			Quality:           q,
			QualityAlpha:      q,
			Speed:             8,
			ChromaSubsampling: image.YCbCrSubsampleRatio420,
		})
	}
}

// JXLCodec encodes JPEG XL. Quality is consumed as a 0.0-1.0 fraction.
type JXLCodec struct{}

func (JXLCodec) Format() models.Format      { return models.JXL }
func (JXLCodec) QualityScale() QualityScale { return ScaleFraction }

func (c JXLCodec) Load(ctx context.Context) error {
	return warmUp(ctx, c.encoder(Options{Quality: 0.5, HasQuality: true}))
}

func (c JXLCodec) Encode(ctx context.Context, buf *models.PixelBuffer, opts Options) ([]byte, error) {
	return runEncode(ctx, buf.Image(), c.encoder(opts))
}

func (JXLCodec) encoder(opts Options) encodeFunc {
	q := clampPercent(opts.Quality * 100)
	return func(w io.Writer, img image.Image) error {
		return jpegxl.Encode(w, img, jpegxl.Options{Quality: q, Effort: 7})
	}
}

// Defaults returns one backend for every output format.
func Defaults() []Codec {
	return []Codec{AVIFCodec{}, JPEGCodec{}, JXLCodec{}, PNGCodec{}, WebPCodec{}}
}

// NewDefaultRegistry builds a registry with every default backend registered.
func NewDefaultRegistry(timeout time.Duration) *Registry {
	r := NewRegistry(timeout)
	for _, c := range Defaults() {
		r.Register(c)
	}
	return r
}
