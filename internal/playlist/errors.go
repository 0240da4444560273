package playlist

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySelection   = errors.New("selection is empty")
	ErrCursorOutOfRange = errors.New("cursor out of range")
	ErrNotPlaying       = errors.New("playback is not active")
	ErrNoDataset        = errors.New("no dataset loaded")
	ErrNotPlayable      = errors.New("clip has no video id")
	ErrUnknownEntry     = errors.New("entry is not in the selection")
)

// RecordNotFoundError reports a selection entry that no longer matches any
// record in the dataset.
type RecordNotFoundError struct {
	RowName   string
	Team      string
	ClipStart float64
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("clip %q (%s) at %gs not found in dataset", e.RowName, e.Team, e.ClipStart)
}
