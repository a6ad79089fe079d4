package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/goldwatch/internal/entity"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the monitored pages and extracted fields",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Targets:")
		for _, t := range entity.DefaultTargets {
			fmt.Fprintf(out, "  %-8s %s\n", t.ID, t.URL)
		}
		fmt.Fprintln(out, "Fields:")
		for _, f := range entity.GoldPriceSchema.Fields {
			fmt.Fprintf(out, "  %-16s %s\n", f.Name, f.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}
