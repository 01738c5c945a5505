// Package contracts carries the version identity shared by the binaries and
// the wire-level contracts under its subpackages.
package contracts

import (
	"fmt"
	"runtime"
)

// Version is the canonical release string. The numeric components below
// exist for programmatic comparisons and must agree with it.
const (
	Version = "0.3.0"

	VersionMajor      = 0
	VersionMinor      = 3
	VersionPatch      = 0
	VersionPrerelease = ""
)

const (
	// DataFormatVersion versions the extracted report document format.
	DataFormatVersion = "v1"

	// APIVersion versions the HTTP and WebSocket API surface.
	APIVersion = "v1"
)

// Populated by the release build via -ldflags.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

// VersionInfo is the full build identity served on the version endpoint.
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GitBranch    string `json:"git_branch"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo returns the build identity of the running binary.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GitBranch:    GitBranch,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
}

// GetVersionString returns the short human-readable version line.
func GetVersionString() string {
	return fmt.Sprintf("StaffPulse v%s", Version)
}

// GetFullVersionString returns the version line the CLIs print for -version.
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf(
		"%s (built: %s, commit: %s, go: %s, os: %s/%s)",
		GetVersionString(),
		info.BuildTime,
		info.GitCommit,
		info.GoVersion,
		info.OS,
		info.Architecture,
	)
}

// IsPrerelease reports whether this build carries a pre-release tag.
func IsPrerelease() bool {
	return VersionPrerelease != ""
}
