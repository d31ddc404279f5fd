// Package version records build version information.
package version

// Version is the reflow release version, overridden at build time via
// -ldflags "-X github.com/teranos/reflow/internal/version.Version=..."
var Version = "dev"
