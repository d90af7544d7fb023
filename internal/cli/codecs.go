package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var codecsCmd = &cobra.Command{
	Use:   "codecs",
	Short: "Load every codec and show which formats are available",
	RunE:  runCodecs,
}

func runCodecs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	app.Codecs().InitializeAll(context.Background(), app.Config().LoadTimeout())

	fmt.Fprintf(out, "%-6s %-12s %s\n", "FORMAT", "STATE", "ERROR")
	for _, d := range app.Codecs().Descriptors() {
		fmt.Fprintf(out, "%-6s %-12s %s\n", d.Format, d.LoadState, d.LastError)
	}
	return nil
}
