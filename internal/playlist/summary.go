package playlist

import (
	"slices"
	"strconv"

	"github.com/sendrec/clipdeck/internal/dataset"
)

// TeamCount is how often value occurs for one team.
type TeamCount struct {
	Team  string `json:"team"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Summary tallies a filtered view per team. Rows follow first appearance of
// the team, then of the value, within the view.
type Summary struct {
	Clips   int         `json:"clips"`
	Events  []TeamCount `json:"events"`
	Results []TeamCount `json:"results"`
}

// Summarize counts team×event and team×result over view. Records without a
// result are left out of Results.
func Summarize(view []dataset.ClipRecord) Summary {
	events := newTally()
	results := newTally()
	for _, rec := range view {
		events.add(rec.Team, rec.RowName)
		if rec.Result != "" {
			results.add(rec.Team, rec.Result)
		}
	}
	return Summary{Clips: len(view), Events: events.rows(), Results: results.rows()}
}

type tallyKey struct{ team, value string }

type tally struct {
	order  []tallyKey
	counts map[tallyKey]int
	teams  map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[tallyKey]int), teams: make(map[string]int)}
}

func (t *tally) add(team, value string) {
	k := tallyKey{team, value}
	if _, ok := t.teams[team]; !ok {
		t.teams[team] = len(t.teams)
	}
	if t.counts[k] == 0 {
		t.order = append(t.order, k)
	}
	t.counts[k]++
}

func (t *tally) rows() []TeamCount {
	keys := slices.Clone(t.order)
	slices.SortStableFunc(keys, func(a, b tallyKey) int {
		return t.teams[a.team] - t.teams[b.team]
	})
	out := make([]TeamCount, len(keys))
	for i, k := range keys {
		out[i] = TeamCount{Team: k.team, Value: k.value, Count: t.counts[k]}
	}
	return out
}

// ColumnKind tells a client which control filters a column.
type ColumnKind string

const (
	Categorical ColumnKind = "categorical"
	Numeric     ColumnKind = "numeric"
)

// ColumnOption describes one filterable column of a dataset.
type ColumnOption struct {
	Name   string     `json:"name"`
	Kind   ColumnKind `json:"kind"`
	Values []string   `json:"values,omitempty"`
	Min    float64    `json:"min"`
	Max    float64    `json:"max"`
}

// maxCategories caps how many distinct values a column may have and still be
// offered as a multi-select.
const maxCategories = 50

// ColumnOptions lists the columns of ds that can narrow the view beyond team
// and event. Columns with a single distinct value are skipped, as are
// text columns with maxCategories or more values.
func ColumnOptions(ds *dataset.Dataset) []ColumnOption {
	records := ds.Records()
	if len(records) == 0 {
		return []ColumnOption{}
	}

	out := []ColumnOption{}
	if opt, ok := numericOption(records, columnDuration); ok {
		out = append(out, opt)
	}
	if opt, ok := categoricalOption(records, columnResult); ok {
		out = append(out, opt)
	}
	for _, col := range ds.ExtraColumns() {
		if opt, ok := numericOption(records, col); ok {
			out = append(out, opt)
		} else if opt, ok := categoricalOption(records, col); ok {
			out = append(out, opt)
		}
	}
	return out
}

func numericOption(records []dataset.ClipRecord, col string) (ColumnOption, bool) {
	opt := ColumnOption{Name: col, Kind: Numeric}
	distinct := make(map[float64]bool)
	for _, rec := range records {
		v, ok := columnNumber(rec, col)
		if !ok {
			if text, _ := columnText(rec, col); text != "" {
				return ColumnOption{}, false
			}
			continue
		}
		if len(distinct) == 0 || v < opt.Min {
			opt.Min = v
		}
		if len(distinct) == 0 || v > opt.Max {
			opt.Max = v
		}
		distinct[v] = true
	}
	return opt, len(distinct) > 1
}

func categoricalOption(records []dataset.ClipRecord, col string) (ColumnOption, bool) {
	seen := make(map[string]bool)
	var values []string
	for _, rec := range records {
		v, _ := columnText(rec, col)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	if len(values) < 2 || len(values) >= maxCategories {
		return ColumnOption{}, false
	}
	slices.Sort(values)
	return ColumnOption{Name: col, Kind: Categorical, Values: values}, true
}

// String renders the count as one tab-separated line.
func (c TeamCount) String() string {
	return c.Team + "\t" + c.Value + "\t" + strconv.Itoa(c.Count)
}
