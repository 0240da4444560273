package playlist

import (
	"math"

	"github.com/google/uuid"
	"github.com/sendrec/clipdeck/internal/dataset"
)

// Entry is one clip in a selection. The composite fields are a snapshot taken
// at selection time and serve as the fallback match when the key is unknown.
type Entry struct {
	Key       uuid.UUID `json:"key"`
	RowName   string    `json:"rowName"`
	Team      string    `json:"team"`
	ClipStart float64   `json:"clipStart"`
}

// Selection is an ordered list of entries in the order the user picked them.
type Selection []Entry

func (s Selection) IndexOf(key uuid.UUID) int {
	for i, e := range s {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// SelectionRef is a row as reported back by the table. Key may be empty when
// the client only round-trips the visible values.
type SelectionRef struct {
	Key       string  `json:"key,omitempty"`
	RowName   string  `json:"rowName"`
	Team      string  `json:"team"`
	ClipStart float64 `json:"clipStart"`
}

func entryFor(rec dataset.ClipRecord) Entry {
	return Entry{Key: rec.Key, RowName: rec.RowName, Team: rec.Team, ClipStart: rec.ClipStart}
}

// UpdateSelection maps refs onto records of view. A ref whose key is in the
// view matches that record; otherwise the first record in dataset order with
// the same row name, team and rounded clip start is used. The result keeps
// the order of refs and drops repeats of the same record.
func UpdateSelection(view []dataset.ClipRecord, refs []SelectionRef) (Selection, error) {
	byKey := make(map[uuid.UUID]dataset.ClipRecord, len(view))
	for _, rec := range view {
		byKey[rec.Key] = rec
	}

	sel := make(Selection, 0, len(refs))
	seen := make(map[uuid.UUID]bool, len(refs))
	for _, ref := range refs {
		rec, ok := lookupRef(view, byKey, ref)
		if !ok {
			return nil, &RecordNotFoundError{RowName: ref.RowName, Team: ref.Team, ClipStart: ref.ClipStart}
		}
		if seen[rec.Key] {
			continue
		}
		seen[rec.Key] = true
		sel = append(sel, entryFor(rec))
	}
	return sel, nil
}

func lookupRef(view []dataset.ClipRecord, byKey map[uuid.UUID]dataset.ClipRecord, ref SelectionRef) (dataset.ClipRecord, bool) {
	if key, err := uuid.Parse(ref.Key); err == nil {
		if rec, ok := byKey[key]; ok {
			return rec, true
		}
	}
	return compositeMatch(view, ref.RowName, ref.Team, ref.ClipStart)
}

// compositeMatch returns the first record matching on row name, team and
// clip start rounded half-to-even to whole seconds.
func compositeMatch(records []dataset.ClipRecord, rowName, team string, clipStart float64) (dataset.ClipRecord, bool) {
	want := math.RoundToEven(clipStart)
	for _, rec := range records {
		if rec.RowName == rowName && rec.Team == team && math.RoundToEven(rec.ClipStart) == want {
			return rec, true
		}
	}
	return dataset.ClipRecord{}, false
}
