package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyFile = errors.New("dataset: file is empty")

// MissingColumnError reports required columns with no matching header.
// Columns holds display names such as "Clip End".
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

type TooManyRowsError struct {
	Max int
}

func (e *TooManyRowsError) Error() string {
	return fmt.Sprintf("file has more than %d rows", e.Max)
}

type WarningKind string

const (
	RowsDroppedWarning           WarningKind = "rows_dropped"
	MissingOptionalColumnWarning WarningKind = "missing_optional_column"
	UnplayableRowsWarning        WarningKind = "unplayable_rows"
)

// Warning is a non-fatal normalization finding surfaced to the caller.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Count   int         `json:"count,omitempty"`
	Lines   []int       `json:"lines,omitempty"`
}

// DroppedRows returns the number of rows excluded during coercion.
func DroppedRows(warnings []Warning) int {
	for _, w := range warnings {
		if w.Kind == RowsDroppedWarning {
			return w.Count
		}
	}
	return 0
}
