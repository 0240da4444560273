package main

import (
	"encoding/json"
	"fmt"

	"github.com/sendrec/clipdeck/internal/playlist"
	"github.com/spf13/cobra"
)

func newSummaryCmd() *cobra.Command {
	var (
		flags  tableFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary <file>",
		Short: "Count events and results per team over the filtered clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, warnings, err := flags.selectView(args[0])
			if err != nil {
				return err
			}
			printWarnings(cmd, warnings)

			sum := playlist.Summarize(st.View())
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}

			fmt.Fprintf(out, "clips\t%d\n", sum.Clips)
			fmt.Fprintln(out, "# events")
			for _, c := range sum.Events {
				fmt.Fprintln(out, c)
			}
			if len(sum.Results) > 0 {
				fmt.Fprintln(out, "# results")
				for _, c := range sum.Results {
					fmt.Fprintln(out, c)
				}
			}
			return nil
		},
	}
	flags.register(cmd, true)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}
