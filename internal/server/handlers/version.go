package handlers

import (
	"net/http"
	"runtime"
)

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

var buildInfo = VersionInfo{Version: "dev"}

// SetBuildInfo sets what VersionHandler reports.
func SetBuildInfo(version, commit, buildDate string) {
	buildInfo = VersionInfo{Version: version, Commit: commit, BuildDate: buildDate}
}

// VersionHandler reports the build.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	info := buildInfo
	info.GoVersion = runtime.Version()
	WriteJSON(w, http.StatusOK, info)
}
