// Package codec holds the pluggable encoder backends, the registry that tracks
// their lazy initialization, and the resolver that picks a fallback format when
// a requested backend cannot be loaded.
package codec

import (
	"context"
	"errors"

	"github.com/vrsandeep/squish-go/internal/models"
)

// ErrRuntimeUnavailable marks a failure of the runtime module backing a codec
// (a WASM module that failed to compile or instantiate, a missing shared library).
var ErrRuntimeUnavailable = errors.New("codec runtime module unavailable")

// QualityScale describes how a codec consumes the 1-100 quality setting.
type QualityScale int

const (
	// ScalePercent codecs take the 1-100 value unchanged.
	ScalePercent QualityScale = iota
	// ScaleFraction codecs take quality/100 in the range 0.0-1.0.
	ScaleFraction
	// ScaleNone codecs are lossless and ignore quality entirely.
	ScaleNone
)

func (s QualityScale) String() string {
	switch s {
	case ScaleFraction:
		return "fraction"
	case ScaleNone:
		return "none"
	default:
		return "percent"
	}
}

// Options carries the format-specific encode parameters.
type Options struct {
	// Quality is expressed on the codec's own scale. Zero and ignored for ScaleNone.
	Quality float64
	// HasQuality is false for lossless codecs.
	HasQuality bool
}

// OptionsFor derives encode options from a 1-100 quality for the given scale.
func OptionsFor(scale QualityScale, quality int) Options {
	switch scale {
	case ScaleNone:
		return Options{}
	case ScaleFraction:
		return Options{Quality: float64(quality) / 100, HasQuality: true}
	default:
		return Options{Quality: float64(quality), HasQuality: true}
	}
}

// Codec is the uniform contract every output format backend implements.
type Codec interface {
	// Format returns the output format this codec produces.
	Format() models.Format
	// QualityScale reports how Options.Quality is interpreted.
	QualityScale() QualityScale
	// Load prepares the backend. It may block until ctx is done.
	Load(ctx context.Context) error
	// Encode encodes the pixel buffer.
	Encode(ctx context.Context, buf *models.PixelBuffer, opts Options) ([]byte, error)
}
