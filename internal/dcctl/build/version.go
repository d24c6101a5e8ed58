// Package build holds version information injected at link time, e.g.
// -ldflags "-X github.com/distcompute/dcctl/internal/dcctl/build.ReleaseVersion=v1.2.0".
package build

import "runtime"

var (
	ReleaseVersion = "UNKNOWN_VERSION"
	GitCommit      = "UNKNOWN_GIT_COMMIT"
	BuildTime      = "UNKNOWN_BUILD_TIME"
	GoVersion      = runtime.Version()
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
	BuildTime string `json:"build_time"`
}

func Current() Info {
	return Info{Version: ReleaseVersion, Commit: GitCommit, GoVersion: GoVersion, BuildTime: BuildTime}
}
