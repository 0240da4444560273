package plans

import (
	_ "embed"
	"encoding/json"
	"log"
)

//go:embed limits.json
var limitsJSON []byte

// Limits bounds what one session may load.
type Limits struct {
	MaxUploadBytes       int64 `json:"maxUploadBytes"`
	MaxRows              int   `json:"maxRows"`
	SessionIdleMinutes   int   `json:"sessionIdleMinutes"`
	ShareExpiryHours     int   `json:"shareExpiryHours"`
	MaxSelectionRequests int   `json:"maxSelectionRequests"`
}

var Default Limits

func init() {
	if err := json.Unmarshal(limitsJSON, &Default); err != nil {
		log.Fatalf("failed to parse limits.json: %v", err)
	}
}
