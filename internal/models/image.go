package models

import (
	"image"
	"time"
)

// ImageStatus is the lifecycle state of an ImageItem.
type ImageStatus string

const (
	StatusPending    ImageStatus = "pending"
	StatusQueued     ImageStatus = "queued"
	StatusProcessing ImageStatus = "processing"
	StatusComplete   ImageStatus = "complete"
	StatusError      ImageStatus = "error"
)

// IsTerminal reports whether the status ends a processing run.
func (s ImageStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// ImageItem is one unit of work in the worklist.
type ImageItem struct {
	ID            string
	Name          string
	Source        []byte
	OriginalSize  int64
	PreviewHandle string
	Status        ImageStatus

	// Set only when Status is StatusComplete.
	Result           []byte
	CompressedSize   int64
	CompressionRatio int
	MimeType         string

	// OutputFormat is the format actually encoded, which may be a fallback.
	OutputFormat    Format
	RequestedFormat Format
	UsedFallback    bool

	// Set only when Status is StatusError.
	Error string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasResult reports whether the item carries a compressed blob.
func (i *ImageItem) HasResult() bool {
	return i.Status == StatusComplete && i.Result != nil
}

// ItemSnapshot is the read-only view of an ImageItem handed to observers.
type ItemSnapshot struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Status           ImageStatus `json:"status"`
	OriginalSize     int64       `json:"original_size"`
	CompressedSize   int64       `json:"compressed_size,omitempty"`
	CompressionRatio *int        `json:"compression_ratio,omitempty"`
	SizeLabel        string      `json:"size_label,omitempty"`
	OutputFormat     Format      `json:"output_format,omitempty"`
	UsedFallback     bool        `json:"used_fallback,omitempty"`
	Error            string      `json:"error,omitempty"`
	PreviewHandle    string      `json:"preview,omitempty"`
}

// Snapshot copies the observable fields of the item.
func (i *ImageItem) Snapshot() ItemSnapshot {
	s := ItemSnapshot{
		ID:            i.ID,
		Name:          i.Name,
		Status:        i.Status,
		OriginalSize:  i.OriginalSize,
		OutputFormat:  i.OutputFormat,
		UsedFallback:  i.UsedFallback,
		Error:         i.Error,
		PreviewHandle: i.PreviewHandle,
	}
	if i.HasResult() {
		ratio := i.CompressionRatio
		s.CompressedSize = i.CompressedSize
		s.CompressionRatio = &ratio
		s.SizeLabel = RatioLabel(ratio)
	}
	return s
}

// CompressionResult is the output of compressing a single image.
type CompressionResult struct {
	Data             []byte
	Size             int64
	CompressionRatio int
	MimeType         string
	Format           Format
	UsedFallback     bool
	Width            int
	Height           int
}

// PixelBuffer is the decoded RGBA interchange image passed from the decoder to every codec.
// Samples are non-premultiplied RGBA, four bytes per pixel, row-major.
type PixelBuffer struct {
	Width   int
	Height  int
	Samples []uint8
}

// Image wraps the samples as an *image.NRGBA without copying.
func (p *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    p.Samples,
		Stride: p.Width * 4,
		Rect:   image.Rect(0, 0, p.Width, p.Height),
	}
}
