// Package docs serves the OpenAPI description of the clip API and a
// browsable reference page for it.
package docs

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"net/http"
)

//go:embed openapi.yaml
var specYAML []byte

var specETag = func() string {
	sum := sha256.Sum256(specYAML)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}()

func HandleSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", specETag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == specETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(specYAML)
}

// HandleDocs renders the Scalar reference. It loads from jsDelivr, so it gets
// its own CSP instead of the nonce policy used elsewhere.
func HandleDocs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Security-Policy",
		"default-src 'self'; "+
			"script-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'; "+
			"style-src 'self' https://cdn.jsdelivr.net 'unsafe-inline'; "+
			"font-src 'self' https://cdn.jsdelivr.net data:; "+
			"img-src 'self' data: https://i.ytimg.com; connect-src 'self'; frame-ancestors 'self';")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsHTML))
}

const docsHTML = `<!DOCTYPE html>
<html lang="en"><head>
  <title>Clipdeck API Reference</title>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
</head><body>
  <script id="api-reference" data-url="/api/docs/openapi.yaml" data-configuration='{"hideDownloadButton":false,"defaultOpenAllTags":true}'></script>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body></html>`
