package dataset

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
)

// UnknownTeam fills the team field when the upload has no team column or a blank cell.
const UnknownTeam = "N/A"

var ErrUnknownKey = errors.New("dataset: no record with that key")

// ClipRecord is one row of the canonical dataset.
type ClipRecord struct {
	Key       uuid.UUID         `json:"key"`
	Position  int               `json:"position"`
	RowName   string            `json:"rowName"`
	Team      string            `json:"team"`
	Result    string            `json:"result,omitempty"`
	ClipStart float64           `json:"clipStart"`
	ClipEnd   float64           `json:"clipEnd"`
	Duration  float64           `json:"duration"`
	VideoID   string            `json:"videoId"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func (c ClipRecord) Playable() bool {
	return c.VideoID != ""
}

// DisplayDuration rounds the stored duration half-to-even to whole seconds.
func (c ClipRecord) DisplayDuration() int {
	return int(math.RoundToEven(c.Duration))
}

// Dataset is an ordered, immutable collection of clip records addressable by key.
// Edits produce a new Dataset.
type Dataset struct {
	records      []ClipRecord
	index        map[uuid.UUID]int
	extraColumns []string
}

// New builds a Dataset from records, assigning keys to any record that lacks one
// and recomputing durations.
func New(records []ClipRecord, extraColumns ...string) *Dataset {
	d := &Dataset{
		records:      make([]ClipRecord, len(records)),
		index:        make(map[uuid.UUID]int, len(records)),
		extraColumns: slices.Clone(extraColumns),
	}
	for i, rec := range records {
		if rec.Key == uuid.Nil {
			rec.Key = uuid.New()
		}
		rec.Duration = rec.ClipEnd - rec.ClipStart
		d.records[i] = rec
		d.index[rec.Key] = i
	}
	return d
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

func (d *Dataset) At(i int) ClipRecord {
	return d.records[i]
}

// Records returns a copy of the records in dataset order.
func (d *Dataset) Records() []ClipRecord {
	if d == nil {
		return nil
	}
	return slices.Clone(d.records)
}

func (d *Dataset) Get(key uuid.UUID) (ClipRecord, bool) {
	if d == nil {
		return ClipRecord{}, false
	}
	i, ok := d.index[key]
	if !ok {
		return ClipRecord{}, false
	}
	return d.records[i], true
}

// ExtraColumns lists the non-canonical source headers kept on each record.
func (d *Dataset) ExtraColumns() []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.extraColumns)
}

// Teams returns the distinct team values in first-seen order.
func (d *Dataset) Teams() []string {
	return d.distinct(func(c ClipRecord) string { return c.Team })
}

// Events returns the distinct row names in first-seen order.
func (d *Dataset) Events() []string {
	return d.distinct(func(c ClipRecord) string { return c.RowName })
}

func (d *Dataset) distinct(field func(ClipRecord) string) []string {
	if d == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, rec := range d.records {
		v := field(rec)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Edit is a partial update of a record. Nil fields are left untouched.
type Edit struct {
	RowName   *string  `json:"rowName,omitempty"`
	Team      *string  `json:"team,omitempty"`
	Result    *string  `json:"result,omitempty"`
	ClipStart *float64 `json:"clipStart,omitempty"`
	ClipEnd   *float64 `json:"clipEnd,omitempty"`
}

type InvalidEditError struct {
	Reason string
}

func (e *InvalidEditError) Error() string {
	return "invalid edit: " + e.Reason
}

// WithEdit returns a copy of the dataset with the edit applied to the record
// identified by key. The receiver is not modified.
func (d *Dataset) WithEdit(key uuid.UUID, edit Edit) (*Dataset, error) {
	if d == nil {
		return nil, fmt.Errorf("edit %s: %w", key, ErrUnknownKey)
	}
	i, ok := d.index[key]
	if !ok {
		return nil, fmt.Errorf("edit %s: %w", key, ErrUnknownKey)
	}

	rec := d.records[i]
	if edit.RowName != nil {
		rec.RowName = *edit.RowName
	}
	if edit.Team != nil {
		rec.Team = *edit.Team
		if rec.Team == "" {
			rec.Team = UnknownTeam
		}
	}
	if edit.Result != nil {
		rec.Result = *edit.Result
	}
	if edit.ClipStart != nil {
		rec.ClipStart = *edit.ClipStart
	}
	if edit.ClipEnd != nil {
		rec.ClipEnd = *edit.ClipEnd
	}

	if !finite(rec.ClipStart) || !finite(rec.ClipEnd) {
		return nil, &InvalidEditError{Reason: "clip start and end must be finite numbers"}
	}
	if rec.ClipStart < 0 {
		return nil, &InvalidEditError{Reason: "clip start must not be negative"}
	}
	if rec.ClipEnd < rec.ClipStart {
		return nil, &InvalidEditError{Reason: "clip end must not be before clip start"}
	}
	rec.Duration = rec.ClipEnd - rec.ClipStart

	next := &Dataset{
		records:      slices.Clone(d.records),
		index:        d.index,
		extraColumns: d.extraColumns,
	}
	next.records[i] = rec
	return next, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
