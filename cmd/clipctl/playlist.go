package main

import (
	"errors"
	"fmt"

	"github.com/sendrec/clipdeck/internal/clips"
	"github.com/sendrec/clipdeck/internal/playlist"
	"github.com/spf13/cobra"
)

func newPlaylistCmd() *cobra.Command {
	var flags tableFlags

	cmd := &cobra.Command{
		Use:   "playlist <file>",
		Short: "Print the embed URL of every filtered clip in playback order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, warnings, err := flags.selectView(args[0])
			if err != nil {
				return err
			}
			printWarnings(cmd, warnings)

			st, err = playlist.Reduce(st, playlist.Start{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i := range st.Selection {
				if i > 0 {
					st, _ = playlist.Reduce(st, playlist.Next{})
				}
				params, rec, err := st.Current()
				switch {
				case errors.Is(err, playlist.ErrNotPlayable):
					fmt.Fprintf(out, "%d\t%s\t%s\t(no video)\n", i+1, rec.Team, rec.RowName)
				case err != nil:
					return err
				default:
					fmt.Fprintf(out, "%d\t%s\t%s\t%s\n", i+1, rec.Team, rec.RowName, clips.EmbedURL(params))
				}
			}
			return nil
		},
	}
	flags.register(cmd, true)
	return cmd
}
