// Package version records build metadata for the pf binary.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current pf release, overridable at build time via
// -ldflags "-X .../internal/version.Version=...".
var Version = "0.3.0"

// Info returns the bare semantic version.
func Info() string {
	return Version
}

// FullInfo returns the one-line form printed by `pf version`.
func FullInfo() string {
	return fmt.Sprintf("pf %s (%s %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
