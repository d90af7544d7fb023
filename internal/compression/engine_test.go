package compression_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/squish-go/internal/codec"
	"github.com/vrsandeep/squish-go/internal/compression"
	"github.com/vrsandeep/squish-go/internal/models"
	"github.com/vrsandeep/squish-go/internal/testutil"
)

func newEngine(fakes testutil.FakeCodecs) *compression.Engine {
	r := fakes.Registry(time.Second)
	return compression.NewEngine(r, codec.NewResolver(r, nil), nil)
}

func TestEngine_Compress(t *testing.T) {
	fakes := testutil.NewFakeCodecs()
	fakes[models.WEBP].SetOutputSize(100)
	engine := newEngine(fakes)
	src := testutil.PNGBytes(t, 20, 10)

	res, err := engine.Compress(context.Background(), src, models.WEBP, 75)
	require.NoError(t, err)

	assert.Equal(t, models.WEBP, res.Format)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, "image/webp", res.MimeType)
	assert.Equal(t, int64(100), res.Size)
	assert.Len(t, res.Data, 100)
	assert.Equal(t, models.CompressionRatio(int64(len(src)), 100), res.CompressionRatio)
	assert.Equal(t, 20, res.Width)
	assert.Equal(t, 10, res.Height)
	assert.Equal(t, 1, fakes[models.WEBP].Encodes())
}

func TestEngine_QualityScales(t *testing.T) {
	testCases := []struct {
		format   models.Format
		quality  int
		expected codec.Options
	}{
		{models.AVIF, 50, codec.Options{Quality: 0.5, HasQuality: true}},
		{models.JXL, 80, codec.Options{Quality: 0.8, HasQuality: true}},
		{models.JPEG, 50, codec.Options{Quality: 50, HasQuality: true}},
		{models.WEBP, 90, codec.Options{Quality: 90, HasQuality: true}},
		{models.PNG, 50, codec.Options{}},
		{models.JPEG, 0, codec.Options{Quality: 1, HasQuality: true}},
		{models.WEBP, 250, codec.Options{Quality: 100, HasQuality: true}},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s at %d", tc.format, tc.quality), func(t *testing.T) {
			fakes := testutil.NewFakeCodecs()
			_, err := newEngine(fakes).Compress(context.Background(), testutil.PNGBytes(t, 4, 4), tc.format, tc.quality)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, fakes[tc.format].LastOptions())
		})
	}
}

func TestEngine_Fallback(t *testing.T) {
	fakes := testutil.NewFakeCodecs()
	fakes[models.JXL].FailLoad(errors.New("no runtime"))
	engine := newEngine(fakes)

	res, err := engine.Compress(context.Background(), testutil.PNGBytes(t, 4, 4), models.JXL, 50)
	require.NoError(t, err)
	assert.Equal(t, models.JPEG, res.Format)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Equal(t, 0, fakes[models.JXL].Encodes())
	// JPEG takes quality on its own scale even when standing in for JXL.
	assert.Equal(t, 50.0, fakes[models.JPEG].LastOptions().Quality)
}

func TestEngine_NoEncoderAvailable(t *testing.T) {
	fakes := testutil.NewFakeCodecs()
	for _, c := range fakes {
		c.FailLoad(errors.New("down"))
	}

	_, err := newEngine(fakes).Compress(context.Background(), testutil.PNGBytes(t, 4, 4), models.AVIF, 50)
	var noEncoder *codec.NoEncoderAvailableError
	assert.ErrorAs(t, err, &noEncoder)
}

func TestEngine_DecodeError(t *testing.T) {
	fakes := testutil.NewFakeCodecs()

	_, err := newEngine(fakes).Compress(context.Background(), testutil.CorruptImage, models.WEBP, 50)
	var decodeErr *compression.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 0, fakes[models.WEBP].Encodes())
}

func TestEngine_EncodeErrors(t *testing.T) {
	t.Run("codec rejects input", func(t *testing.T) {
		fakes := testutil.NewFakeCodecs()
		fakes[models.WEBP].FailEncode(errors.New("bad dimensions"))
		engine := newEngine(fakes)

		_, err := engine.Compress(context.Background(), testutil.PNGBytes(t, 4, 4), models.WEBP, 50)
		var encodeErr *compression.EncodeError
		require.ErrorAs(t, err, &encodeErr)
		assert.Equal(t, models.WEBP, encodeErr.Format)

		d, _ := engine.Registry().Descriptor(models.WEBP)
		assert.True(t, d.Available, "ordinary encode failures keep the codec enabled")
	})

	t.Run("empty output", func(t *testing.T) {
		fakes := testutil.NewFakeCodecs()
		fakes[models.PNG].SetOutputSize(0)

		_, err := newEngine(fakes).Compress(context.Background(), testutil.PNGBytes(t, 4, 4), models.PNG, 50)
		var encodeErr *compression.EncodeError
		require.ErrorAs(t, err, &encodeErr)
		assert.Contains(t, err.Error(), "no output")
	})
}

func TestEngine_RuntimeFailureDisablesCodec(t *testing.T) {
	fakes := testutil.NewFakeCodecs()
	fakes[models.AVIF].FailEncode(fmt.Errorf("%w: memory access out of bounds", codec.ErrRuntimeUnavailable))
	engine := newEngine(fakes)

	_, err := engine.Compress(context.Background(), testutil.PNGBytes(t, 4, 4), models.AVIF, 50)
	var runtimeErr *compression.CodecRuntimeError
	require.ErrorAs(t, err, &runtimeErr)
	assert.Equal(t, models.AVIF, runtimeErr.Format)
	assert.Contains(t, err.Error(), "reload")

	d, _ := engine.Registry().Descriptor(models.AVIF)
	assert.Equal(t, models.LoadFailed, d.LoadState)
	assert.False(t, d.Available)

	// The next request reloads the codec; it loads fine, so AVIF is used again.
	fakes[models.AVIF].FailEncode(nil)
	res, err := engine.Compress(context.Background(), testutil.PNGBytes(t, 4, 4), models.AVIF, 50)
	require.NoError(t, err)
	assert.Equal(t, models.AVIF, res.Format)
	assert.Equal(t, 2, fakes[models.AVIF].Loads())
}

func TestEngine_RealStdlibCodecs(t *testing.T) {
	r := codec.NewRegistry(time.Second)
	r.Register(codec.JPEGCodec{})
	r.Register(codec.PNGCodec{})
	engine := compression.NewEngine(r, codec.NewResolver(r, nil), compression.NewDecoder(0))

	src := testutil.PNGBytes(t, 64, 64)
	res, err := engine.Compress(context.Background(), src, models.JPEG, 60)
	require.NoError(t, err)
	assert.Equal(t, models.JPEG, res.Format)
	assert.NotEmpty(t, res.Data)

	// AVIF is not registered here, so the first fallback that loads wins.
	res, err = engine.Compress(context.Background(), src, models.AVIF, 60)
	require.NoError(t, err)
	assert.Equal(t, models.JPEG, res.Format)
	assert.True(t, res.UsedFallback)
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, 1, compression.ClampQuality(-4))
	assert.Equal(t, 1, compression.ClampQuality(0))
	assert.Equal(t, 42, compression.ClampQuality(42))
	assert.Equal(t, 100, compression.ClampQuality(101))
}
