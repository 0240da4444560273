package server

import (
	"io/fs"
	"net/http"
	"strings"
)

const assetCache = "public, max-age=3600"

// clientApp serves the built clip table UI. Paths that are not files in
// webFS are client-side routes and get index.html.
func clientApp(webFS fs.FS) http.HandlerFunc {
	files := http.FileServerFS(webFS)
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		switch {
		case name == "" || name == "index.html" || !isFile(webFS, name):
			// FileServer redirects /index.html to /, so always ask for the root.
			r.URL.Path = "/"
			w.Header().Set("Cache-Control", "no-cache")
		case strings.HasPrefix(name, "assets/"):
			w.Header().Set("Cache-Control", assetCache)
		}
		files.ServeHTTP(w, r)
	}
}

func isFile(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && !info.IsDir()
}
