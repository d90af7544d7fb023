package compression

import (
	"fmt"

	"github.com/vrsandeep/squish-go/internal/models"
)

// DecodeError reports source bytes that are not a readable raster image.
type DecodeError struct {
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("decode image: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("decode image: %s", e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// EncodeError reports a backend that rejected the pixel buffer or produced no output.
type EncodeError struct {
	Format models.Format
	Cause  error
}

func (e *EncodeError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("encode %s: codec produced no output", e.Format)
	}
	return fmt.Sprintf("encode %s: %v", e.Format, e.Cause)
}

func (e *EncodeError) Unwrap() error {
	return e.Cause
}

// CodecRuntimeError reports a missing or corrupted codec runtime. The format is
// disabled registry-wide until it is reloaded.
type CodecRuntimeError struct {
	Format models.Format
	Cause  error
}

func (e *CodecRuntimeError) Error() string {
	return fmt.Sprintf("%s codec runtime failed to load or is corrupted, reload the codec and retry: %v", e.Format, e.Cause)
}

func (e *CodecRuntimeError) Unwrap() error {
	return e.Cause
}
