// Package version reports the build version of bnetchat.
package version

import "fmt"

// Version and GitCommit are injected by the build system via ldflags:
//
//	-X github.com/tehcyx/bnetchat/pkg/version.Version=v1.2.0
//	-X github.com/tehcyx/bnetchat/pkg/version.GitCommit=$(git rev-parse HEAD)
var (
	Version   string
	GitCommit string
)

const defaultVersion = "v0.1.0"

// GetVersion returns Version, or the default when unset, suffixed with the
// short commit hash when one was injected.
func GetVersion() string {
	v := Version
	if v == "" {
		v = defaultVersion
	}
	if c := shortCommit(); c != "" {
		return v + "-" + c
	}
	return v
}

// UserAgent is the banner printed by --version.
func UserAgent() string {
	return fmt.Sprintf("bnetchat %s", GetVersion())
}

func shortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
