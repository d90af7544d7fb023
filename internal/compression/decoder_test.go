package compression_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/squish-go/internal/compression"
	"github.com/vrsandeep/squish-go/internal/testutil"
)

func TestDecoder_Decode(t *testing.T) {
	d := compression.NewDecoder(0)

	for name, data := range map[string][]byte{
		"png":  testutil.PNGBytes(t, 7, 5),
		"jpeg": testutil.JPEGBytes(t, 7, 5),
	} {
		t.Run(name, func(t *testing.T) {
			buf, err := d.Decode(context.Background(), data)
			require.NoError(t, err)
			assert.Equal(t, 7, buf.Width)
			assert.Equal(t, 5, buf.Height)
			assert.Len(t, buf.Samples, 7*5*4)
		})
	}
}

func TestDecoder_PalettedImageBecomesRGBA(t *testing.T) {
	palette := color.Palette{color.NRGBA{A: 0}, color.NRGBA{R: 200, G: 10, B: 20, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), palette)
	img.SetColorIndex(1, 1, 1)
	var data bytes.Buffer
	require.NoError(t, gif.Encode(&data, img, nil))

	buf, err := compression.NewDecoder(0).Decode(context.Background(), data.Bytes())
	require.NoError(t, err)
	// Pixel (1,1) sits at offset (1*2+1)*4.
	assert.Equal(t, []uint8{200, 10, 20, 255}, buf.Samples[12:16])
	assert.Equal(t, uint8(0), buf.Samples[3], "transparent pixel keeps zero alpha")
}

func TestDecoder_Errors(t *testing.T) {
	d := compression.NewDecoder(0)

	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not an image", testutil.CorruptImage},
		{"truncated png", testutil.PNGBytes(t, 32, 32)[:60]},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Decode(context.Background(), tc.data)
			var decodeErr *compression.DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestDecoder_PixelLimit(t *testing.T) {
	d := compression.NewDecoder(100)

	_, err := d.Decode(context.Background(), testutil.PNGBytes(t, 10, 10))
	assert.NoError(t, err)

	_, err = d.Decode(context.Background(), testutil.PNGBytes(t, 11, 10))
	var decodeErr *compression.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Message, "pixel limit")
}
