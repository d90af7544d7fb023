package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vrsandeep/squish-go/internal/util"
	"github.com/vrsandeep/squish-go/internal/watch"
)

var watchOut string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Compress images as they appear in a directory",
	Long: `Watch a directory and compress every image written to it with the
configured format and quality. Results are written to the output directory,
which must differ from the watched one.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "output directory (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	in, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	target := watchOut
	if target == "" {
		target = app.Config().Watch.OutputPath
	}
	dir, err := util.PrepareOutputDir(target)
	if err != nil {
		return err
	}
	if dir == in {
		return fmt.Errorf("output directory must differ from the watched directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.NewWatcherService(app, in, dir)
	if err := w.Start(); err != nil {
		return fmt.Errorf("watch %s: %w", in, err)
	}
	defer w.Stop()

	format, quality := app.Settings()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching %s (%s, quality %d). Press Ctrl+C to stop.\n", in, format, quality)
	for {
		select {
		case r := <-w.Results():
			if r.Err != nil {
				fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(r.Source), r.Err)
			} else {
				fmt.Fprintf(out, "  ✓ %s -> %s\n", filepath.Base(r.Source), r.Output)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
