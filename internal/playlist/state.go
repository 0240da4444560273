package playlist

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sendrec/clipdeck/internal/dataset"
)

type Phase string

const (
	Idle     Phase = "idle"
	Browsing Phase = "browsing"
	Playing  Phase = "playing"
)

// State is everything one session knows about its clip table. Values are
// replaced, never mutated, by Reduce.
type State struct {
	Dataset   *dataset.Dataset
	Filters   FilterState
	Selection Selection
	Cursor    Cursor
	Playing   bool
}

func (s State) Phase() Phase {
	switch {
	case s.Playing:
		return Playing
	case len(s.Selection) == 0:
		return Idle
	default:
		return Browsing
	}
}

// View is the filtered dataset.
func (s State) View() []dataset.ClipRecord {
	return ApplyFilters(s.Dataset, s.Filters)
}

// Current resolves the clip under the cursor while playing.
func (s State) Current() (PlayerParams, dataset.ClipRecord, error) {
	if !s.Playing {
		return PlayerParams{}, dataset.ClipRecord{}, ErrNotPlaying
	}
	return ResolvePlayable(s.Cursor, s.Selection, s.Dataset)
}

// SelectedRecords returns the current dataset records for each selection
// entry, skipping entries that no longer resolve.
func (s State) SelectedRecords() []dataset.ClipRecord {
	out := make([]dataset.ClipRecord, 0, len(s.Selection))
	for _, e := range s.Selection {
		rec, ok := s.Dataset.Get(e.Key)
		if !ok {
			rec, ok = compositeMatch(s.Dataset.Records(), e.RowName, e.Team, e.ClipStart)
		}
		if ok {
			out = append(out, rec)
		}
	}
	return out
}

type Event interface {
	apply(State) (State, error)
}

// Upload replaces the dataset. Filters reset to all teams and any selection is cleared.
type Upload struct{ Dataset *dataset.Dataset }

type SetFilters struct{ Filters FilterState }

type Select struct{ Refs []SelectionRef }

type Start struct{}

type Next struct{}

type Prev struct{}

// Jump moves the cursor while playing. A non-nil Key names the entry and
// takes precedence over Index.
type Jump struct {
	Index int
	Key   uuid.UUID
}

type Stop struct{}

// EditRecord applies an in-table edit to one record.
type EditRecord struct {
	Key  uuid.UUID
	Edit dataset.Edit
}

type Clear struct{}

// Reduce applies ev to s. On error s is returned unchanged.
func Reduce(s State, ev Event) (State, error) {
	next, err := ev.apply(s)
	if err != nil {
		return s, err
	}
	return next, nil
}

func (e Upload) apply(s State) (State, error) {
	if e.Dataset == nil {
		return s, ErrNoDataset
	}
	return State{Dataset: e.Dataset, Filters: AllTeams(e.Dataset)}, nil
}

func (e SetFilters) apply(s State) (State, error) {
	if s.Dataset == nil {
		return s, ErrNoDataset
	}
	follow := s.playingKey()
	s.Filters = e.Filters.clone()
	return s.resync(follow), nil
}

func (e Select) apply(s State) (State, error) {
	if s.Dataset == nil {
		return s, ErrNoDataset
	}
	sel, err := UpdateSelection(s.View(), e.Refs)
	if err != nil {
		return s, err
	}
	follow := s.playingKey()
	s.Selection = sel
	return s.resync(follow), nil
}

func (Start) apply(s State) (State, error) {
	cur, err := StartPlayback(s.Selection)
	if err != nil {
		return s, err
	}
	s.Cursor = cur
	s.Playing = true
	return s, nil
}

func (Next) apply(s State) (State, error) { return s.step(1) }

func (Prev) apply(s State) (State, error) { return s.step(-1) }

func (s State) step(delta int) (State, error) {
	if !s.Playing {
		return s, ErrNotPlaying
	}
	s.Cursor = Advance(s.Cursor, s.Selection, delta)
	return s, nil
}

func (e Jump) apply(s State) (State, error) {
	if !s.Playing {
		return s, ErrNotPlaying
	}
	index := e.Index
	if e.Key != uuid.Nil {
		if index = s.Selection.IndexOf(e.Key); index < 0 {
			return s, fmt.Errorf("jump to %s: %w", e.Key, ErrUnknownEntry)
		}
	}
	if index < 0 || index >= len(s.Selection) {
		return s, fmt.Errorf("jump to %d: %w", index, ErrUnknownEntry)
	}
	s.Cursor = Cursor(index)
	return s, nil
}

func (Stop) apply(s State) (State, error) {
	s.Playing = false
	s.Cursor = 0
	return s, nil
}

func (e EditRecord) apply(s State) (State, error) {
	if s.Dataset == nil {
		return s, ErrNoDataset
	}
	edited, err := s.Dataset.WithEdit(e.Key, e.Edit)
	if err != nil {
		return s, err
	}

	follow := s.playingKey()
	rec, _ := edited.Get(e.Key)
	known := s.Dataset.Teams()
	if !slices.Contains(known, rec.Team) {
		s.Filters.Teams = append(slices.Clone(s.Filters.Teams), rec.Team)
	}
	s.Dataset = edited

	if i := s.Selection.IndexOf(e.Key); i >= 0 {
		s.Selection = slices.Clone(s.Selection)
		s.Selection[i] = entryFor(rec)
	}
	return s.resync(follow), nil
}

func (Clear) apply(s State) (State, error) {
	s.Selection = nil
	s.Playing = false
	s.Cursor = 0
	return s, nil
}

// playingKey is the key under the cursor, or uuid.Nil when stopped.
func (s State) playingKey() uuid.UUID {
	if !s.Playing || int(s.Cursor) >= len(s.Selection) {
		return uuid.Nil
	}
	return s.Selection[s.Cursor].Key
}

// resync drops selection entries that left the filtered view. While playing,
// the cursor follows the clip keyed follow if it is still selected. Otherwise
// it keeps its index, and playback stops when the selection empties or
// shrinks to or below the cursor.
func (s State) resync(follow uuid.UUID) State {
	inView := make(map[uuid.UUID]bool)
	for _, rec := range s.View() {
		inView[rec.Key] = true
	}

	kept := make(Selection, 0, len(s.Selection))
	for _, e := range s.Selection {
		if inView[e.Key] {
			kept = append(kept, e)
		}
	}
	s.Selection = kept

	if s.Playing {
		if i := kept.IndexOf(follow); follow != uuid.Nil && i >= 0 {
			s.Cursor = Cursor(i)
		} else if int(s.Cursor) >= len(kept) {
			s.Playing = false
		}
	}
	if !s.Playing {
		s.Cursor = 0
	}
	return s
}
