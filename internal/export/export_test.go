package export

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/squish-go/internal/models"
)

func completed(name string, f models.Format, data string) models.ImageItem {
	return models.ImageItem{
		ID:           name,
		Name:         name,
		Status:       models.StatusComplete,
		Result:       []byte(data),
		OutputFormat: f,
	}
}

func zipEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	entries := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		entries[f.Name] = string(content)
	}
	return entries
}

func TestOutputName(t *testing.T) {
	testCases := []struct {
		name     string
		format   models.Format
		expected string
	}{
		{"a.png", models.WEBP, "a.webp"},
		{"photo.final.jpeg", models.AVIF, "photo.final.avif"},
		{"noext", models.JPEG, "noext.jpg"},
		{"shots/x.bmp", models.PNG, "x.png"},
		{".png", models.JXL, "image.jxl"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, OutputName(tc.name, tc.format), tc.name)
	}
}

func TestNewAggregator(t *testing.T) {
	a, err := NewAggregator("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultArchiveName, a.archiveName)
	assert.Equal(t, ArchiveZip, a.format)

	a, err = NewAggregator("batch", "tgz")
	require.NoError(t, err)
	assert.Equal(t, ArchiveTarGz, a.format)

	_, err = NewAggregator("batch", "rar")
	assert.Error(t, err)
}

func TestExportAll_NothingQualifies(t *testing.T) {
	a, _ := NewAggregator("", "")
	items := []models.ImageItem{
		{Name: "pending.png", Status: models.StatusPending},
		{Name: "failed.png", Status: models.StatusError, Error: "boom"},
	}

	d, err := a.ExportAll(context.Background(), items)
	assert.NoError(t, err)
	assert.Nil(t, d)

	d, err = a.ExportAll(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestExportAll_SingleItem(t *testing.T) {
	a, _ := NewAggregator("", "")
	items := []models.ImageItem{
		completed("a.png", models.WEBP, "webp-bytes"),
		{Name: "b.png", Status: models.StatusError},
	}

	d, err := a.ExportAll(context.Background(), items)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "a.webp", d.Name)
	assert.Equal(t, "image/webp", d.MimeType)
	assert.Equal(t, []byte("webp-bytes"), d.Data)
	assert.Equal(t, 1, d.Count)
}

func TestExportAll_Zip(t *testing.T) {
	a, _ := NewAggregator("", ArchiveZip)
	items := []models.ImageItem{
		completed("a.png", models.WEBP, "first"),
		{Name: "skip.png", Status: models.StatusProcessing},
		completed("b.jpg", models.AVIF, "second"),
	}

	d, err := a.ExportAll(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, "compressed_images.zip", d.Name)
	assert.Equal(t, "application/zip", d.MimeType)
	assert.Equal(t, 2, d.Count)
	assert.Equal(t, map[string]string{"a.webp": "first", "b.avif": "second"}, zipEntries(t, d.Data))
}

func TestExportAll_DuplicateNames(t *testing.T) {
	a, _ := NewAggregator("", "")
	items := []models.ImageItem{
		completed("a.png", models.WEBP, "1"),
		completed("a.jpg", models.WEBP, "2"),
		completed("dir/a.gif", models.WEBP, "3"),
	}

	d, err := a.ExportAll(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.webp": "1", "a-2.webp": "2", "a-3.webp": "3"}, zipEntries(t, d.Data))

	// A suffixed name that is already taken by another item is skipped.
	items = []models.ImageItem{
		completed("a-2.png", models.WEBP, "1"),
		completed("a.png", models.WEBP, "2"),
		completed("a.jpg", models.WEBP, "3"),
	}
	assert.Equal(t, []string{"a-2.webp", "a.webp", "a-3.webp"}, UniqueNames(items))

	d, err = a.ExportAll(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a-2.webp": "1", "a.webp": "2", "a-3.webp": "3"}, zipEntries(t, d.Data))
}

func TestExportAll_TarGz(t *testing.T) {
	a, _ := NewAggregator("batch", ArchiveTarGz)
	items := []models.ImageItem{
		completed("a.png", models.PNG, "first"),
		completed("b.png", models.JXL, "second"),
	}

	d, err := a.ExportAll(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, "batch.tar.gz", d.Name)
	assert.Equal(t, "application/gzip", d.MimeType)

	gz, err := gzip.NewReader(bytes.NewReader(d.Data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)
	entries := make(map[string]string)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		entries[hdr.Name] = string(content)
	}
	assert.Equal(t, map[string]string{"a.png": "first", "b.jxl": "second"}, entries)
}

func TestExportAll_DoesNotMutateItems(t *testing.T) {
	a, _ := NewAggregator("", "")
	items := []models.ImageItem{
		completed("a.png", models.WEBP, "1"),
		completed("b.png", models.WEBP, "2"),
	}

	_, err := a.ExportAll(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, items[0].Status)
	assert.Equal(t, []byte("1"), items[0].Result)
}

func TestExportOne(t *testing.T) {
	a, _ := NewAggregator("", "")

	d, err := a.ExportOne(completed("photo.png", models.JPEG, "jpeg"))
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", d.Name)
	assert.Equal(t, "image/jpeg", d.MimeType)

	_, err = a.ExportOne(models.ImageItem{Name: "x.png", Status: models.StatusPending})
	var exportErr *ExportError
	assert.ErrorAs(t, err, &exportErr)
}

func TestExportAll_CanceledContext(t *testing.T) {
	a, _ := NewAggregator("", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.ExportAll(ctx, []models.ImageItem{
		completed("a.png", models.WEBP, "1"),
		completed("b.png", models.WEBP, "2"),
	})
	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.ErrorIs(t, err, context.Canceled)
}
