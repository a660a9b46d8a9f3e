// Package version holds build metadata stamped in with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/smazurov/gpioled/internal/version.Version=v1.2.0"
//
// Builds without ldflags fall back to the VCS settings the Go toolchain
// embeds, so `go install` binaries still report a commit.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the release tag. "dev" marks untagged builds, which the
	// updater always treats as outdated.
	Version = "dev"
	// GitCommit is the full commit hash.
	GitCommit = "unknown"
	// BuildDate is the build or commit timestamp.
	BuildDate = "unknown"
	// BuildID identifies the CI run.
	BuildID = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	BuildID   string `json:"build_id"`
	Modified  bool   `json:"modified"`
	GoVersion string `json:"go_version"`
	Compiler  string `json:"compiler"`
	Platform  string `json:"platform"`
}

var readBuildInfo = debug.ReadBuildInfo

// Get returns version and build information.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		BuildID:   BuildID,
		GoVersion: runtime.Version(),
		Compiler:  runtime.Compiler,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "unknown" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String returns the release tag.
func String() string {
	return Version
}

// Long returns the version line printed by --version.
func Long() string {
	info := Get()
	commit := info.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if info.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("gpioled %s (%s, built %s, %s %s)", info.Version, commit, info.BuildDate, info.GoVersion, info.Platform)
}
