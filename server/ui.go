package server

import (
	"embed"
	"net/http"
)

//go:embed static/index.html
var staticFS embed.FS

// indexHandler serves the bundled single-page UI. Everything else the
// page needs goes through /v1/analyze.
func indexHandler() http.HandlerFunc {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		// embed guarantees the file exists at build time
		panic(err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	}
}
