// Package version reports the toonctl build version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Set at build time via ldflags:
//
//	go build -ldflags="-X github.com/muurk/toonapp/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/toonapp/internal/version.Commit=abc123"
//
// Unset values are filled from the VCS stamp in the binary's build info,
// or fall back to "dev" and "unknown".
var (
	Version = ""
	Commit  = ""
)

func init() {
	if Version == "" || Commit == "" {
		fillFromBuildInfo(debug.ReadBuildInfo())
	}
	if Version == "" {
		Version = "dev"
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

func fillFromBuildInfo(info *debug.BuildInfo, ok bool) {
	if !ok {
		return
	}

	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			if len(rev) > 7 {
				rev = rev[:7]
			}
			if settings["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			Commit = rev
		}
	}

	if Version == "" {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			Version = v
		} else if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Line returns the one-line banner printed by "toonctl version"
func Line(app string) string {
	return fmt.Sprintf("%s %s %s/%s %s", app, Full(), runtime.GOOS, runtime.GOARCH, runtime.Version())
}
