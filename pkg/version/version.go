// Package version holds the build version string, overridable via
// -ldflags "-X meshrelay.dev/pkg/version.V=...".
package version

var V = "dev"
