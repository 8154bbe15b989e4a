package main

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"vantage/internal/journey"
)

// server exposes run manifests, logs and artifacts over HTTP so a
// reviewer can browse reports and diff images.
type server struct {
	workspace string
}

func newServer(workspace string) *server {
	return &server{workspace: workspace}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/v1/runs", s.handleRuns)
	mux.HandleFunc("/v1/runs/", s.handleRunByID)
	// static files for artifacts
	runsDir := filepath.Join(s.workspace, "runs")
	reportsDir := filepath.Join(s.workspace, "reports")
	baselinesDir := filepath.Join(s.workspace, "baselines")
	mux.Handle("/runs/", http.StripPrefix("/runs/", http.FileServer(http.Dir(runsDir))))
	mux.Handle("/reports/", http.StripPrefix("/reports/", http.FileServer(http.Dir(reportsDir))))
	mux.Handle("/baselines/", http.StripPrefix("/baselines/", http.FileServer(http.Dir(baselinesDir))))
	return withCORS(mux)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"ok": "true"})
}

func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	runs, err := journey.FindRuns(s.workspace)
	if err != nil {
		runs = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *server) handleRunByID(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/runs/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}
	runID := parts[0]

	if len(parts) == 1 {
		manifestPath := filepath.Join(s.workspace, "runs", runID, "run.json")
		if _, err := os.Stat(manifestPath); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		manifest, err := journey.LoadManifest(manifestPath)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		for i := range manifest.Captures {
			manifest.Captures[i].Path = "/runs/" + runID + "/captures/" + manifest.Captures[i].Name
		}
		writeJSON(w, http.StatusOK, manifest)
		return
	}

	if len(parts) >= 2 && parts[1] == "logs" {
		logPath := filepath.Join(s.workspace, "runs", runID, "logs", "journey.ndjson")
		http.ServeFile(w, r, logPath)
		return
	}

	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown path"})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
