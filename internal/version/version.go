// ABOUTME: Build version information
// ABOUTME: Version is overridden at link time with -ldflags "-X"
package version

// Version is the release version, "dev" for local builds
var Version = "dev"

const (
	// Product is reported in telemetry and startup logs
	Product = "pwsink"
	// Manufacturer identifies the project
	Manufacturer = "Resonate Protocol"
)

// String returns "pwsink <version>"
func String() string {
	return Product + " " + Version
}
