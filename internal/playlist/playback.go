package playlist

import (
	"github.com/sendrec/clipdeck/internal/dataset"
)

// Cursor is an index into a Selection.
type Cursor int

// PlayerParams is what the video embed needs to play one clip.
type PlayerParams struct {
	VideoID      string `json:"videoId"`
	StartSeconds int    `json:"startSeconds"`
	EndSeconds   int    `json:"endSeconds"`
	Autoplay     bool   `json:"autoplay"`
}

func StartPlayback(sel Selection) (Cursor, error) {
	if len(sel) == 0 {
		return 0, ErrEmptySelection
	}
	return 0, nil
}

// Advance moves the cursor by delta, clamped to the selection bounds.
func Advance(cur Cursor, sel Selection, delta int) Cursor {
	if len(sel) == 0 {
		return 0
	}
	next := int(cur) + delta
	if next < 0 {
		next = 0
	}
	if last := len(sel) - 1; next > last {
		next = last
	}
	return Cursor(next)
}

// ResolvePlayable finds the dataset record for the entry under the cursor and
// returns the parameters to play it.
func ResolvePlayable(cur Cursor, sel Selection, ds *dataset.Dataset) (PlayerParams, dataset.ClipRecord, error) {
	if int(cur) < 0 || int(cur) >= len(sel) {
		return PlayerParams{}, dataset.ClipRecord{}, ErrCursorOutOfRange
	}
	entry := sel[cur]

	rec, ok := ds.Get(entry.Key)
	if !ok {
		rec, ok = compositeMatch(ds.Records(), entry.RowName, entry.Team, entry.ClipStart)
	}
	if !ok {
		return PlayerParams{}, dataset.ClipRecord{}, &RecordNotFoundError{
			RowName:   entry.RowName,
			Team:      entry.Team,
			ClipStart: entry.ClipStart,
		}
	}
	if !rec.Playable() {
		return PlayerParams{}, rec, ErrNotPlayable
	}

	return PlayerParams{
		VideoID:      rec.VideoID,
		StartSeconds: int(rec.ClipStart),
		EndSeconds:   int(rec.ClipEnd),
		Autoplay:     true,
	}, rec, nil
}
