// Package version carries build metadata set with -ldflags.
package version

import "fmt"

// Defaults apply when building without the release script.
var (
	// BuildNumber is a monotonically increasing string set by the build script.
	BuildNumber = "0"
	// GitCommit is the short commit hash if available; may be "unknown".
	GitCommit = "unknown"
)

// String returns a concise version string for logs and the CLI.
func String() string {
	if GitCommit == "unknown" || GitCommit == "" {
		return "imager build " + BuildNumber
	}
	return fmt.Sprintf("imager build %s (%s)", BuildNumber, GitCommit)
}
