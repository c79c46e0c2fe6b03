// Package version carries release metadata injected at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/vaultsite/internal/version.Version=v0.3.0"
package version

import "fmt"

// Version is the release tag, "dev" for local builds.
var Version = "dev"

// Build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String formats the version line printed by the CLI.
func String() string {
	return fmt.Sprintf("vaultsite %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
