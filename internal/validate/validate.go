package validate

import "fmt"

// Text field length limits shared by the API and the table editor.
const (
	MaxRowNameLength  = 200
	MaxTeamLength     = 100
	MaxResultLength   = 100
	MaxVideoURLLength = 2048
)

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func RowName(s string) string  { return checkLen(s, MaxRowNameLength, "row name") }
func Team(s string) string     { return checkLen(s, MaxTeamLength, "team") }
func Result(s string) string   { return checkLen(s, MaxResultLength, "result") }
func VideoURL(s string) string { return checkLen(s, MaxVideoURLLength, "video URL") }

// FieldLimits returns a map of field names to max lengths for the /api/limits endpoint.
func FieldLimits() map[string]int {
	return map[string]int{
		"rowName":  MaxRowNameLength,
		"team":     MaxTeamLength,
		"result":   MaxResultLength,
		"videoURL": MaxVideoURLLength,
	}
}
