package models

import (
	"fmt"
	"math"
	"strconv"
)

// FormatFileSize renders a byte count as a human-readable string, e.g. "1.5 KB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	const k = 1024
	sizes := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(k)))
	if i >= len(sizes) {
		i = len(sizes) - 1
	}
	v := float64(bytes) / math.Pow(k, float64(i))
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizes[i]
}

// CompressionRatio is the percentage of bytes saved, rounded half up. Negative when
// the output grew.
func CompressionRatio(originalSize, compressedSize int64) int {
	if originalSize <= 0 {
		return 0
	}
	saved := float64(originalSize-compressedSize) / float64(originalSize) * 100
	return int(math.Floor(saved + 0.5))
}

// RatioLabel renders a ratio as "40% smaller" or "12% larger".
func RatioLabel(ratio int) string {
	if ratio < 0 {
		return fmt.Sprintf("%d%% larger", -ratio)
	}
	return fmt.Sprintf("%d%% smaller", ratio)
}
