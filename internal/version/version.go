// Package version reports how the prism binary was built. Release builds set
// the variables below with -ldflags "-X"; other builds fall back to the
// module and VCS data the Go toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const unknown = "unknown"

// Set by -ldflags "-X github.com/jmylchreest/prism/internal/version.<Name>=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// Info describes one build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Modified  bool   `json:"modified,omitempty"`
}

// Get returns the build information, preferring linker-set values.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == unknown {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

// String returns the one-line version banner.
func String() string {
	info := Get()
	if info.Commit == unknown || info.Date == unknown {
		return fmt.Sprintf("prism version %s (%s, %s)", info.Version, info.GoVersion, info.Platform)
	}

	commit := info.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if info.Modified {
		commit += "+dirty"
	}
	return fmt.Sprintf("prism version %s (commit: %s, built: %s, %s, %s)",
		info.Version, commit, info.Date, info.GoVersion, info.Platform)
}

// Short returns the bare version, as shown by --version.
func Short() string {
	return Get().Version
}
