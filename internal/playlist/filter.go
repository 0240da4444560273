package playlist

import (
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/sendrec/clipdeck/internal/dataset"
)

// FilterState selects records by team and event. An empty Events list means
// no event filter. Teams is strict: an empty list selects nothing.
//
// Columns narrows on categorical columns, either "result" or an extra
// source column, and a listed column with no values selects nothing. Ranges
// bounds numeric columns inclusively; records whose value is missing or not
// a number fail the range. Unknown column names are ignored.
type FilterState struct {
	Teams   []string            `json:"teams"`
	Events  []string            `json:"events"`
	Columns map[string][]string `json:"columns,omitempty"`
	Ranges  map[string]Range    `json:"ranges,omitempty"`
}

type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (f FilterState) clone() FilterState {
	out := FilterState{
		Teams:  slices.Clone(f.Teams),
		Events: slices.Clone(f.Events),
	}
	if len(f.Columns) > 0 {
		out.Columns = make(map[string][]string, len(f.Columns))
		for col, values := range f.Columns {
			out.Columns[col] = slices.Clone(values)
		}
	}
	if len(f.Ranges) > 0 {
		out.Ranges = maps.Clone(f.Ranges)
	}
	return out
}

// AllTeams returns a filter that passes every record of ds.
func AllTeams(ds *dataset.Dataset) FilterState {
	return FilterState{Teams: ds.Teams()}
}

// ApplyFilters returns the records of ds that pass fs, in dataset order.
func ApplyFilters(ds *dataset.Dataset, fs FilterState) []dataset.ClipRecord {
	if ds.Len() == 0 {
		return nil
	}

	teams := toSet(fs.Teams)
	events := toSet(fs.Events)
	columns := make(map[string]map[string]bool, len(fs.Columns))
	for col, values := range fs.Columns {
		if knownColumn(ds, col) {
			columns[col] = toSet(values)
		}
	}

	var view []dataset.ClipRecord
	for _, rec := range ds.Records() {
		if !teams[rec.Team] {
			continue
		}
		if len(events) > 0 && !events[rec.RowName] {
			continue
		}
		if !passesColumns(ds, rec, columns, fs.Ranges) {
			continue
		}
		view = append(view, rec)
	}
	return view
}

func passesColumns(ds *dataset.Dataset, rec dataset.ClipRecord, columns map[string]map[string]bool, ranges map[string]Range) bool {
	for col, allowed := range columns {
		v, _ := columnText(rec, col)
		if !allowed[v] {
			return false
		}
	}
	for col, r := range ranges {
		if !knownColumn(ds, col) {
			continue
		}
		v, ok := columnNumber(rec, col)
		if !ok || !r.contains(v) {
			return false
		}
	}
	return true
}

const (
	columnResult    = "result"
	columnClipStart = "clipStart"
	columnClipEnd   = "clipEnd"
	columnDuration  = "duration"
)

func knownColumn(ds *dataset.Dataset, col string) bool {
	switch col {
	case columnResult, columnClipStart, columnClipEnd, columnDuration:
		return true
	}
	return slices.Contains(ds.ExtraColumns(), col)
}

func columnText(rec dataset.ClipRecord, col string) (string, bool) {
	if col == columnResult {
		return rec.Result, true
	}
	v, ok := rec.Extra[col]
	return strings.TrimSpace(v), ok
}

func columnNumber(rec dataset.ClipRecord, col string) (float64, bool) {
	switch col {
	case columnClipStart:
		return rec.ClipStart, true
	case columnClipEnd:
		return rec.ClipEnd, true
	case columnDuration:
		return rec.Duration, true
	}
	v, ok := columnText(rec, col)
	if !ok || v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
