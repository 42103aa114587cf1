package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mtpanel/internal/panel"
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List the supported panel variants",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCOMPATIBLE\tMODE\tSIZE\tLANES\tFORMAT\tFLAGS")
		for _, d := range panel.Variants() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%dx%dmm\t%d\t%s\t%s\n",
				d.ID, d.Compatible, d.Mode, d.WidthMM, d.HeightMM, d.Lanes, d.Format, d.Flags)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(variantsCmd)
}
