package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newNormalizeCmd() *cobra.Command {
	var flags tableFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "normalize <file>",
		Short: "Check a clip table and print what the server would load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, warnings, err := flags.load(args[0])
			if err != nil {
				return err
			}
			printWarnings(cmd, warnings)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ds.Records())
			}

			fmt.Fprintf(out, "clips:  %d\n", ds.Len())
			fmt.Fprintf(out, "teams:  %s\n", strings.Join(ds.Teams(), ", "))
			fmt.Fprintf(out, "events: %s\n", strings.Join(ds.Events(), ", "))
			if extra := ds.ExtraColumns(); len(extra) > 0 {
				fmt.Fprintf(out, "extra:  %s\n", strings.Join(extra, ", "))
			}
			return nil
		},
	}
	flags.register(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the normalized records as JSON")
	return cmd
}
