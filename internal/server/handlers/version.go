package handlers

import "net/http"

type buildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"build_date"`
}

var versionInfo = buildInfo{
	Version: "dev",
	Commit:  "unknown",
	Date:    "unknown",
}

// SetVersionInfo records the build metadata injected at link time.
func SetVersionInfo(version, commit, date string) {
	versionInfo = buildInfo{Version: version, Commit: commit, Date: date}
}

// VersionHandler serves GET /version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionInfo)
}
