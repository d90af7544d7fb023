// Package cli provides the squish command-line interface.
package cli

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/vrsandeep/squish-go/internal/core"
)

var (
	// Global flags
	verbose bool

	// app is built before every subcommand runs.
	app *core.App

	// newApp builds the application. Tests replace it to avoid the real codecs.
	newApp = core.New
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "squish",
	Short: "Batch image compression",
	Long: `Squish compresses batches of images to AVIF, JPEG, JXL, PNG or WEBP.

When a codec cannot be loaded, images are encoded with the first available
fallback format instead, and the fallback is reported per image.`,
	Version:       core.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}

		log.SetFlags(log.LstdFlags | log.Lshortfile)
		if verbose {
			log.SetOutput(os.Stderr)
		} else {
			log.SetOutput(io.Discard)
		}

		var err error
		app, err = newApp()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log codec and batch activity to stderr")

	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(codecsCmd)
	rootCmd.AddCommand(watchCmd)
}
