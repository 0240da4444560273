package dataset

import "strings"

// ExtractVideoID returns the YouTube video id from a watch URL
// (".../watch?v=<id>&...") or a short link ("https://youtu.be/<id>?...").
func ExtractVideoID(rawURL string) (string, bool) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return "", false
	}

	var id string
	if _, after, ok := strings.Cut(u, "watch?v="); ok {
		id = after
	} else if _, after, ok := strings.Cut(u, "youtu.be/"); ok {
		id = after
	} else {
		return "", false
	}

	if end := strings.IndexAny(id, "&?#/"); end >= 0 {
		id = id[:end]
	}
	if id == "" {
		return "", false
	}
	return id, true
}
