// Package version reports the build identity of the lh2monitor binary.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionFile string

// Set with -ldflags "-X github.com/leefowlercu/lh2-monitor/internal/version.gitCommit=..."
var (
	gitCommit string
	buildDate string
)

const unknown = "unknown"

// Info identifies a build.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// String renders Info as aligned label/value lines.
func (i Info) String() string {
	return fmt.Sprintf("Version:    %s\nGit Commit: %s\nBuild Date: %s\nGo:         %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}

// Get collects the build identity. Linker values win over VCS stamps from
// debug.ReadBuildInfo.
func Get() Info {
	info := Info{
		Version:   strings.TrimSpace(versionFile),
		GitCommit: gitCommit,
		BuildDate: buildDate,
		GoVersion: runtime.Version(),
	}

	if info.GitCommit == "" || info.BuildDate == "" {
		rev, when, dirty := vcsStamp()
		if info.GitCommit == "" && rev != "" {
			info.GitCommit = rev
			if dirty {
				info.GitCommit += "-dirty"
			}
		}
		if info.BuildDate == "" {
			info.BuildDate = when
		}
	}

	if info.GitCommit == "" {
		info.GitCommit = unknown
	}
	if info.BuildDate == "" {
		info.BuildDate = unknown
	}
	return info
}

// UserAgent is sent on outbound HTTP requests to relays, webhooks and the
// local daemon.
func UserAgent() string {
	return "lh2monitor/" + strings.TrimSpace(versionFile)
}

// vcsStamp returns the short revision, commit time and dirty flag embedded
// by the go command.
func vcsStamp() (rev, when string, dirty bool) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
			if len(rev) > 7 {
				rev = rev[:7]
			}
		case "vcs.time":
			when = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	return rev, when, dirty
}
