// Package version reports the build version.
package version

import "runtime/debug"

// Version is set at build time:
//
//	go build -ldflags "-X github.com/graaaaa/suiticket-companion/internal/version.Version=0.1.0"
var Version = "dev"

// String returns Version, or the module version recorded by go install
// when no ldflag was given.
func String() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}
