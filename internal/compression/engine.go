// Package compression turns one source image into one encoded output: it
// resolves the effective format, decodes once, and dispatches to the codec.
package compression

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/vrsandeep/squish-go/internal/codec"
	"github.com/vrsandeep/squish-go/internal/models"
)

// Quality bounds accepted from callers.
const (
	MinQuality = 1
	MaxQuality = 100
)

// runtimeMarkers are message fragments that identify a broken codec runtime
// when a backend does not wrap codec.ErrRuntimeUnavailable.
var runtimeMarkers = []string{"wasm", "webassembly", "runtime module", "shared library", "dynamic library"}

// Engine compresses single images.
type Engine struct {
	registry *codec.Registry
	resolver *codec.Resolver
	decoder  *Decoder
}

// NewEngine wires an engine to a codec registry and fallback resolver.
func NewEngine(registry *codec.Registry, resolver *codec.Resolver, decoder *Decoder) *Engine {
	if decoder == nil {
		decoder = NewDecoder(0)
	}
	return &Engine{registry: registry, resolver: resolver, decoder: decoder}
}

// Registry returns the codec registry the engine dispatches through.
func (e *Engine) Registry() *codec.Registry { return e.registry }

// Compress encodes src to the requested format, or to a fallback when the
// requested codec cannot be loaded. quality is 1-100 and clamped to that range.
func (e *Engine) Compress(ctx context.Context, src []byte, requested models.Format, quality int) (*models.CompressionResult, error) {
	format, usedFallback, err := e.resolver.Resolve(ctx, requested)
	if err != nil {
		return nil, err
	}

	buf, err := e.decoder.Decode(ctx, src)
	if err != nil {
		return nil, err
	}

	c, ok := e.registry.Codec(format)
	if !ok {
		return nil, &codec.NoEncoderAvailableError{Requested: requested}
	}
	opts := codec.OptionsFor(c.QualityScale(), ClampQuality(quality))

	data, err := c.Encode(ctx, buf, opts)
	if err != nil {
		if isRuntimeFailure(err) {
			e.registry.MarkUnavailable(format, err)
			log.Printf("Codec %s disabled after runtime failure: %v", format, err)
			return nil, &CodecRuntimeError{Format: format, Cause: err}
		}
		return nil, &EncodeError{Format: format, Cause: err}
	}
	if len(data) == 0 {
		return nil, &EncodeError{Format: format}
	}

	size := int64(len(data))
	return &models.CompressionResult{
		Data:             data,
		Size:             size,
		CompressionRatio: models.CompressionRatio(int64(len(src)), size),
		MimeType:         format.MimeType(),
		Format:           format,
		UsedFallback:     usedFallback,
		Width:            buf.Width,
		Height:           buf.Height,
	}, nil
}

// ClampQuality forces q into [MinQuality, MaxQuality].
func ClampQuality(q int) int {
	if q < MinQuality {
		return MinQuality
	}
	if q > MaxQuality {
		return MaxQuality
	}
	return q
}

func isRuntimeFailure(err error) bool {
	if errors.Is(err, codec.ErrRuntimeUnavailable) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range runtimeMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
