package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned when a format name does not match any output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output image format tag.
type Format string

const (
	AVIF Format = "AVIF"
	JPEG Format = "JPEG"
	JXL  Format = "JXL"
	PNG  Format = "PNG"
	WEBP Format = "WEBP"
)

// AllFormats lists every output format in display order.
var AllFormats = []Format{AVIF, JPEG, JXL, PNG, WEBP}

// ParseFormat accepts a format name in any case. "jpg" is an alias for JPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AVIF":
		return AVIF, nil
	case "JPEG", "JPG":
		return JPEG, nil
	case "JXL":
		return JXL, nil
	case "PNG":
		return PNG, nil
	case "WEBP":
		return WEBP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// MimeType returns the content type of encoded output in this format.
func (f Format) MimeType() string {
	switch f {
	case AVIF:
		return "image/avif"
	case JXL:
		return "image/jxl"
	case PNG:
		return "image/png"
	case WEBP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Extension returns the file extension (without dot) used when exporting this format.
func (f Format) Extension() string {
	switch f {
	case AVIF:
		return "avif"
	case JXL:
		return "jxl"
	case PNG:
		return "png"
	case WEBP:
		return "webp"
	default:
		return "jpg"
	}
}

func (f Format) String() string { return string(f) }
