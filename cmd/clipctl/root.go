package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sendrec/clipdeck/internal/dataset"
	"github.com/sendrec/clipdeck/internal/playlist"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clipctl",
		Short: "Work with rugby clip tables from the command line",
		Long: `clipctl normalizes match-analysis exports, filters them by team and event,
and writes playlists in the same format the clipdeck server exports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newPlaylistCmd())
	root.AddCommand(newSummaryCmd())
	root.AddCommand(newTokenCmd())
	return root
}

// tableFlags are shared by every command that reads a clip table.
type tableFlags struct {
	url     string
	teams   []string
	events  []string
	where   []string
	maxRows int
}

func (f *tableFlags) register(cmd *cobra.Command, withFilters bool) {
	cmd.Flags().StringVar(&f.url, "url", "", "YouTube URL for rows without their own URL column")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "fail when the file has more data rows than this (0 for no limit)")
	if withFilters {
		cmd.Flags().StringSliceVar(&f.teams, "team", nil, "keep only these teams (default all)")
		cmd.Flags().StringSliceVar(&f.events, "event", nil, "keep only these events (default all)")
		cmd.Flags().StringArrayVar(&f.where, "where", nil, "keep rows whose column equals a value, as column=value (repeatable)")
	}
}

func (f *tableFlags) load(path string) (*dataset.Dataset, []dataset.Warning, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	ds, warnings, err := dataset.Normalizer{MaxRows: f.maxRows}.Normalize(file, f.url)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, warnings, nil
}

// selectView loads path, applies the team and event flags and selects every
// visible clip in table order.
func (f *tableFlags) selectView(path string) (playlist.State, []dataset.Warning, error) {
	ds, warnings, err := f.load(path)
	if err != nil {
		return playlist.State{}, nil, err
	}

	st, err := playlist.Reduce(playlist.State{}, playlist.Upload{Dataset: ds})
	if err != nil {
		return playlist.State{}, nil, err
	}

	columns, err := parseWhere(f.where)
	if err != nil {
		return playlist.State{}, nil, err
	}
	if len(f.teams) > 0 || len(f.events) > 0 || len(columns) > 0 {
		filters := st.Filters
		if len(f.teams) > 0 {
			filters.Teams = f.teams
		}
		filters.Events = f.events
		filters.Columns = columns
		if st, err = playlist.Reduce(st, playlist.SetFilters{Filters: filters}); err != nil {
			return playlist.State{}, nil, err
		}
	}

	view := st.View()
	refs := make([]playlist.SelectionRef, 0, len(view))
	for _, rec := range view {
		refs = append(refs, playlist.SelectionRef{
			Key:       rec.Key.String(),
			RowName:   rec.RowName,
			Team:      rec.Team,
			ClipStart: rec.ClipStart,
		})
	}
	st, err = playlist.Reduce(st, playlist.Select{Refs: refs})
	if err != nil {
		return playlist.State{}, nil, err
	}
	return st, warnings, nil
}

func printWarnings(cmd *cobra.Command, warnings []dataset.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w.Message)
	}
}

// parseWhere turns repeated column=value flags into a column filter. Values
// for the same column accumulate.
func parseWhere(where []string) (map[string][]string, error) {
	if len(where) == 0 {
		return nil, nil
	}
	columns := make(map[string][]string)
	for _, w := range where {
		col, value, ok := strings.Cut(w, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, fmt.Errorf("--where %q: expected column=value", w)
		}
		columns[col] = append(columns[col], strings.TrimSpace(value))
	}
	return columns, nil
}
