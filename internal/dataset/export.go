package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportHeader is the canonical header row written by WriteCSV.
var ExportHeader = []string{"row_name", "team", "result", "clip_start", "clip_end", "duration", "video_id"}

// WriteCSV writes records as comma-delimited UTF-8 with a leading BOM so that
// spreadsheet applications detect the encoding.
func WriteCSV(w io.Writer, records []ClipRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.RowName,
			rec.Team,
			rec.Result,
			formatSeconds(rec.ClipStart),
			formatSeconds(rec.ClipEnd),
			formatSeconds(rec.Duration),
			rec.VideoID,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", rec.Position, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
