package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sendrec/clipdeck/internal/dataset"
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var flags tableFlags
	var output string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the filtered clips as a canonical CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, warnings, err := flags.selectView(args[0])
			if err != nil {
				return err
			}
			printWarnings(cmd, warnings)

			records := st.SelectedRecords()
			if len(records) == 0 {
				return errors.New("no clips match the given filters")
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := dataset.WriteCSV(w, records); err != nil {
				return err
			}
			if output != "" && output != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d clips to %s\n", len(records), output)
			}
			return nil
		},
	}
	flags.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
