package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"
)

type Field string

const (
	FieldRowName   Field = "row_name"
	FieldClipStart Field = "clip_start"
	FieldClipEnd   Field = "clip_end"
	FieldTeam      Field = "team"
	FieldResult    Field = "result"
	FieldURL       Field = "url"
)

var requiredFields = []Field{FieldRowName, FieldClipStart, FieldClipEnd}

var displayNames = map[Field]string{
	FieldRowName:   "Row Name",
	FieldClipStart: "Clip Start",
	FieldClipEnd:   "Clip End",
	FieldTeam:      "Team",
	FieldResult:    "Result",
	FieldURL:       "URL",
}

// Aliases maps a canonical field to the accepted source header spellings,
// in priority order. Matching is case-insensitive on trimmed headers.
type Aliases map[Field][]string

func DefaultAliases() Aliases {
	return Aliases{
		FieldRowName:   {"row name", "code"},
		FieldClipStart: {"clip start", "start"},
		FieldClipEnd:   {"clip end", "end"},
		FieldTeam:      {"equipo", "team"},
		FieldResult:    {"resultado", "result"},
		FieldURL:       {"url"},
	}
}

var delimiters = []rune{',', ';', '\t', '|'}

const utf8BOM = "\ufeff"

// Normalizer turns an uploaded table into a Dataset.
type Normalizer struct {
	Aliases Aliases
	// MaxRows caps the number of data rows read; zero means unlimited.
	MaxRows int
}

// Normalize reads a delimited table using the given aliases and resolves video ids,
// falling back to globalURL.
func Normalize(r io.Reader, aliases Aliases, globalURL string) (*Dataset, []Warning, error) {
	return Normalizer{Aliases: aliases}.Normalize(r, globalURL)
}

func (n Normalizer) Normalize(r io.Reader, globalURL string) (*Dataset, []Warning, error) {
	aliases := n.Aliases
	if aliases == nil {
		aliases = DefaultAliases()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	columns, extra := mapColumns(header, aliases)

	var missing []string
	for _, f := range requiredFields {
		if _, ok := columns[f]; !ok {
			missing = append(missing, displayNames[f])
		}
	}
	if len(missing) > 0 {
		return nil, nil, &MissingColumnError{Columns: missing}
	}

	var warnings []Warning
	_, hasTeam := columns[FieldTeam]
	if !hasTeam {
		warnings = append(warnings, Warning{
			Kind:    MissingOptionalColumnWarning,
			Message: fmt.Sprintf("no team column found; every clip was assigned team %q", UnknownTeam),
		})
	}

	globalID, _ := ExtractVideoID(globalURL)
	_, hasURL := columns[FieldURL]

	var records []ClipRecord
	var droppedLines []int
	read := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		read++
		if n.MaxRows > 0 && read > n.MaxRows {
			return nil, nil, &TooManyRowsError{Max: n.MaxRows}
		}
		line, _ := reader.FieldPos(0)

		start, okStart := parseSeconds(cell(row, columns, FieldClipStart))
		end, okEnd := parseSeconds(cell(row, columns, FieldClipEnd))
		if !okStart || !okEnd || start < 0 || end < start {
			droppedLines = append(droppedLines, line)
			continue
		}

		team := strings.TrimSpace(cell(row, columns, FieldTeam))
		if team == "" {
			team = UnknownTeam
		}

		videoID := globalID
		if hasURL {
			if id, ok := ExtractVideoID(cell(row, columns, FieldURL)); ok {
				videoID = id
			}
		}

		rec := ClipRecord{
			Position:  len(records),
			RowName:   strings.TrimSpace(cell(row, columns, FieldRowName)),
			Team:      team,
			Result:    strings.TrimSpace(cell(row, columns, FieldResult)),
			ClipStart: start,
			ClipEnd:   end,
			VideoID:   videoID,
		}
		if len(extra) > 0 {
			rec.Extra = make(map[string]string, len(extra))
			for name, idx := range extra {
				if idx < len(row) {
					rec.Extra[name] = row[idx]
				}
			}
		}
		records = append(records, rec)
	}

	if len(droppedLines) > 0 {
		warnings = append(warnings, Warning{
			Kind:    RowsDroppedWarning,
			Message: fmt.Sprintf("%d rows dropped: clip start/end missing, not numeric, or out of order", len(droppedLines)),
			Count:   len(droppedLines),
			Lines:   droppedLines,
		})
	}

	unplayable := 0
	for _, rec := range records {
		if !rec.Playable() {
			unplayable++
		}
	}
	if unplayable > 0 {
		warnings = append(warnings, Warning{
			Kind:    UnplayableRowsWarning,
			Message: fmt.Sprintf("%d clips have no video id; provide a YouTube URL", unplayable),
			Count:   unplayable,
		})
	}

	return New(records, extraNames(header, extra)...), warnings, nil
}

// mapColumns resolves each canonical field to a header index and returns the
// remaining headers as extra columns.
func mapColumns(header []string, aliases Aliases) (map[Field]int, map[string]int) {
	lookup := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := lookup[key]; !dup {
			lookup[key] = i
		}
	}

	columns := make(map[Field]int)
	used := make(map[int]bool)
	for _, field := range fieldOrder(aliases) {
		for _, alias := range aliases[field] {
			if idx, ok := lookup[strings.ToLower(strings.TrimSpace(alias))]; ok && !used[idx] {
				columns[field] = idx
				used[idx] = true
				break
			}
		}
	}

	extra := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if used[i] || name == "" {
			continue
		}
		extra[name] = i
	}
	return columns, extra
}

func fieldOrder(aliases Aliases) []Field {
	order := []Field{FieldRowName, FieldClipStart, FieldClipEnd, FieldTeam, FieldResult, FieldURL}
	var rest []Field
	for f := range aliases {
		if !slices.Contains(order, f) {
			rest = append(rest, f)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}

func extraNames(header []string, extra map[string]int) []string {
	var names []string
	for i, h := range header {
		name := strings.TrimSpace(h)
		if idx, ok := extra[name]; ok && idx == i {
			names = append(names, name)
		}
	}
	return names
}

func cell(row []string, columns map[Field]int, f Field) string {
	idx, ok := columns[f]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseSeconds(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// sniffDelimiter picks the candidate delimiter that occurs most often outside
// quotes on the header line. Ties resolve in candidate order.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
