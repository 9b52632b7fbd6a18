package webserver

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/apex-evals/apexeval/internal/webapi"
	"github.com/apex-evals/apexeval/web"
)

// registerRoutes sets up API and dashboard routes on the given mux.
func registerRoutes(mux *http.ServeMux, cfg Config) error {
	// API routes backed by the results directory.
	webapi.RegisterRoutes(mux, webapi.NewFileStore(cfg.ResultsDir))
	mux.HandleFunc("/api/", handleAPINotFound)

	// Dashboard static files with HTML5 history API fallback.
	handler, err := spaHandler()
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard handler: %w", err)
	}
	mux.Handle("/", handler)
	return nil
}

// handleAPINotFound returns a JSON 404 for unknown API endpoints.
func handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]string{"error": "not found"}) //nolint:errcheck
}

// spaHandler returns an http.Handler that serves the embedded dashboard.
// Non-existent paths are served index.html to support client-side routing
// (HTML5 history API fallback).
func spaHandler() (http.Handler, error) {
	distFS, err := fs.Sub(web.Assets, "dist")
	if err != nil {
		return nil, fmt.Errorf("failed to create sub filesystem for web/dist: %w", err)
	}

	fileServer := http.FileServer(http.FS(distFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Try to serve the file directly.
		if path != "/" {
			// Check if the file exists in the embedded FS.
			cleanPath := strings.TrimPrefix(path, "/")
			if f, err := distFS.Open(cleanPath); err == nil {
				f.Close() //nolint:errcheck
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		// Fallback: serve index.html for SPA routing.
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	}), nil
}
