// Package version holds build version information.
package version

// Version is the application version, overridden at build time via
// -ldflags "-X github.com/fleetops/fleetcast/internal/version.Version=...".
var Version = "dev"
