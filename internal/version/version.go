package version

import (
	"fmt"
	"runtime/debug"
)

// Overridden at build time with -ldflags "-X".
var (
	CLIName    = "missions"
	CLIVersion = "0.1.0"
	Commit     = "unknown"
	BuildDate  = "unknown"
)

// Info is the build metadata reported by `missions version --long`.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}

// Current returns the linked build metadata. A commit that was not set
// through ldflags falls back to the VCS revision stamped by the toolchain.
func Current() Info {
	info := Info{Name: CLIName, Version: CLIVersion, Commit: Commit, BuildDate: BuildDate}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "unknown" && s.Value != "" {
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

func Long() string {
	info := Current()
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", info.Name, info.Version, info.Commit, info.BuildDate)
}
