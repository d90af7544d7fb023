package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vrsandeep/squish-go/internal/export"
	"github.com/vrsandeep/squish-go/internal/models"
	"github.com/vrsandeep/squish-go/internal/util"
)

var (
	compressFormat  string
	compressQuality int
	compressOut     string
	compressArchive bool
)

var compressCmd = &cobra.Command{
	Use:   "compress <files...>",
	Short: "Compress image files",
	Long: `Compress one or more images with the same format and quality.

Files are processed one at a time in natural name order. Each result is written
to the output directory with the extension of the format it was encoded to.
With --archive, every result is packed into a single archive instead.

Examples:
  squish compress shots/*.png --format webp --quality 75
  squish compress a.jpg b.jpg -f avif -o out --archive`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompress,
}

func init() {
	compressCmd.Flags().StringVarP(&compressFormat, "format", "f", "", "output format: avif, jpeg, jxl, png or webp (default from config)")
	compressCmd.Flags().IntVarP(&compressQuality, "quality", "q", 0, "quality from 1 to 100 (default from config)")
	compressCmd.Flags().StringVarP(&compressOut, "out", "o", ".", "output directory")
	compressCmd.Flags().BoolVar(&compressArchive, "archive", false, "write all results into one archive")
}

func runCompress(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	out := cmd.OutOrStdout()

	format, quality := app.Settings()
	if compressFormat != "" {
		f, err := models.ParseFormat(compressFormat)
		if err != nil {
			return err
		}
		format = f
	}
	if compressQuality != 0 {
		quality = compressQuality
	}
	if err := app.SetSettings(format, quality); err != nil {
		return err
	}

	dir, err := util.PrepareOutputDir(compressOut)
	if err != nil {
		return err
	}

	paths := append([]string(nil), args...)
	util.SortPaths(paths)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		app.Ingest(filepath.Base(path), data)
	}

	summary, err := app.ProcessPending(ctx)
	if err != nil {
		return err
	}

	for _, item := range summary.Items {
		printItem(cmd, item)
	}

	if compressArchive {
		if err := writeArchive(ctx, cmd, dir); err != nil {
			return err
		}
	} else if err := writeResults(cmd, dir); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d compressed, %d failed\n", summary.Succeeded, summary.Failed)
	if summary.Canceled {
		return fmt.Errorf("interrupted before every image was compressed")
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", summary.Failed, summary.Succeeded+summary.Failed)
	}
	return nil
}

func printItem(cmd *cobra.Command, item models.ItemSnapshot) {
	out := cmd.OutOrStdout()
	if item.Status != models.StatusComplete {
		fmt.Fprintf(out, "  ✗ %s: %s\n", item.Name, item.Error)
		return
	}
	fallback := ""
	if item.UsedFallback {
		fallback = " (fallback)"
	}
	fmt.Fprintf(out, "  ✓ %s -> %s%s  %s -> %s, %s\n",
		item.Name, item.OutputFormat, fallback,
		models.FormatFileSize(item.OriginalSize), models.FormatFileSize(item.CompressedSize),
		item.SizeLabel)
}

func writeResults(cmd *cobra.Command, dir string) error {
	items := export.Qualifying(app.Worklist().Items())
	for i, name := range export.UniqueNames(items) {
		target := filepath.Join(dir, util.SanitizeFileName(name))
		if err := os.WriteFile(target, items[i].Result, 0644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
	}
	return nil
}

func writeArchive(ctx context.Context, cmd *cobra.Command, dir string) error {
	download, err := app.Export(ctx)
	if err != nil {
		return err
	}
	if download == nil {
		return nil
	}
	target := filepath.Join(dir, download.Name)
	if err := os.WriteFile(target, download.Data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d images, %s)\n", target, download.Count, models.FormatFileSize(int64(len(download.Data))))
	return nil
}
