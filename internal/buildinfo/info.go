package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Set via ldflags for release builds.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String describes the running forecourt binary. Builds made with plain
// `go install` carry no ldflags, so the module version and VCS stamp are
// read from the embedded build info instead.
func String() string {
	version, commit, date := Version, Commit, Date
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "none":
				commit = s.Value
			case s.Key == "vcs.time" && date == "unknown":
				date = s.Value
			}
		}
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
}
