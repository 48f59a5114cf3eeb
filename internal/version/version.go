// Package version contains build version information.
package version

// Version is the released version of scorecard-report.
// Overridden at build time via -ldflags "-X .../internal/version.Version=...".
var Version = "0.0.0"

// GitCommit is the git commit the binary was built from.
var GitCommit = "unknown"

// BuildDate is the UTC build timestamp.
var BuildDate = "unknown"
