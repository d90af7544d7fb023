// Package export packages completed worklist items for download, either as a
// single renamed blob or as one archive holding every result.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mholt/archives"
	"github.com/vrsandeep/squish-go/internal/models"
)

// Archive formats supported for multi-item exports.
const (
	ArchiveZip   = "zip"
	ArchiveTarGz = "tar.gz"
)

// DefaultArchiveName is the base name of multi-item exports.
const DefaultArchiveName = "compressed_images"

// ExportError reports a failure to build an export. It never changes item state.
type ExportError struct {
	Message string
	Cause   error
}

func (e *ExportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("export: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("export: %s", e.Message)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// Download is one named unit ready for the caller to persist.
type Download struct {
	Name     string
	MimeType string
	Data     []byte
	// Count is the number of images contained in the download.
	Count int
}

// Aggregator builds downloads from completed items.
type Aggregator struct {
	archiveName string
	format      string
}

// NewAggregator creates an aggregator writing archives with the given base name
// and format (ArchiveZip or ArchiveTarGz).
func NewAggregator(archiveName, format string) (*Aggregator, error) {
	if archiveName == "" {
		archiveName = DefaultArchiveName
	}
	switch format {
	case "", ArchiveZip:
		format = ArchiveZip
	case ArchiveTarGz, "tgz":
		format = ArchiveTarGz
	default:
		return nil, fmt.Errorf("unsupported archive format %q", format)
	}
	return &Aggregator{archiveName: archiveName, format: format}, nil
}

// OutputName strips the extension from the original file name and appends the
// extension of the format the item was encoded to.
func OutputName(originalName string, f models.Format) string {
	base := filepath.Base(originalName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = "image"
	}
	return base + "." + f.Extension()
}

// Qualifying filters items down to those that completed with a result blob.
func Qualifying(items []models.ImageItem) []models.ImageItem {
	var out []models.ImageItem
	for _, item := range items {
		if item.HasResult() {
			out = append(out, item)
		}
	}
	return out
}

// ExportOne returns the result blob of a single completed item.
func (a *Aggregator) ExportOne(item models.ImageItem) (*Download, error) {
	if !item.HasResult() {
		return nil, &ExportError{Message: fmt.Sprintf("image %s has no compressed result", item.Name)}
	}
	return &Download{
		Name:     OutputName(item.Name, item.OutputFormat),
		MimeType: item.OutputFormat.MimeType(),
		Data:     item.Result,
		Count:    1,
	}, nil
}

// ExportAll exports every completed item. It returns nil when nothing qualifies,
// the single blob when exactly one item qualifies, and an archive otherwise.
func (a *Aggregator) ExportAll(ctx context.Context, items []models.ImageItem) (*Download, error) {
	done := Qualifying(items)
	switch len(done) {
	case 0:
		return nil, nil
	case 1:
		return a.ExportOne(done[0])
	}

	files := make([]archives.FileInfo, 0, len(done))
	for i, name := range UniqueNames(done) {
		files = append(files, memoryFile(name, done[i].Result, done[i].UpdatedAt))
	}

	var buf bytes.Buffer
	if err := a.archiver().Archive(ctx, &buf, files); err != nil {
		log.Printf("Export of %d images failed: %v", len(done), err)
		return nil, &ExportError{Message: "could not build archive", Cause: err}
	}
	return &Download{
		Name:     a.archiveName + "." + a.format,
		MimeType: a.mimeType(),
		Data:     buf.Bytes(),
		Count:    len(done),
	}, nil
}

func (a *Aggregator) archiver() archives.Archiver {
	if a.format == ArchiveTarGz {
		return archives.CompressedArchive{
			Compression: archives.Gz{},
			Archival:    archives.Tar{},
		}
	}
	return archives.Zip{}
}

func (a *Aggregator) mimeType() string {
	if a.format == ArchiveTarGz {
		return "application/gzip"
	}
	return "application/zip"
}

// UniqueNames applies OutputName to every item and de-duplicates collisions by
// appending the lowest free -2, -3, ... before the extension.
func UniqueNames(items []models.ImageItem) []string {
	names := make([]string, len(items))
	taken := make(map[string]bool, len(items))
	for i, item := range items {
		name := OutputName(item.Name, item.OutputFormat)
		if taken[name] {
			ext := filepath.Ext(name)
			stem := strings.TrimSuffix(name, ext)
			for n := 2; taken[name]; n++ {
				name = stem + "-" + strconv.Itoa(n) + ext
			}
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
