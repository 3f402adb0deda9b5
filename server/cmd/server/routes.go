package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fractalscope/fractalscope/server/internal/ws"
)

// newMux combines the REST API, the live hub, metrics and the optional UI on
// one listener. hub may be nil when the live calculator is disabled.
func newMux(apiHandler http.Handler, hub *ws.Hub, metricsHandler http.Handler, uiDir string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", metricsHandler)
	if hub != nil {
		mux.Handle("/ws/estimate", hub)
	}

	if uiDir != "" {
		mux.Handle("/", uiHandler(uiDir))
		slog.Info("serving UI static files", "dir", uiDir)
	}
	return mux
}

// uiHandler serves static files from dir. Unknown paths, and directories
// without their own index.html, get the root index.html so the UI's
// client-side routes work on reload and no directory is ever listed.
func uiHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
		if !servable(path) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// servable reports whether path is a file, or a directory FileServer would
// answer with its index.html rather than a listing.
func servable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return true
	}
	idx, err := os.Stat(filepath.Join(path, "index.html"))
	return err == nil && !idx.IsDir()
}
