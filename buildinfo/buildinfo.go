// Package buildinfo carries the service identity reported by the health endpoint.
package buildinfo

import "runtime/debug"

// ServiceName is the fixed name reported by the health endpoint.
const ServiceName = "fast-backend"

// Version is set at build time:
//
//	go build -ldflags "-X github.com/searchktools/fast-backend/buildinfo.Version=1.2.3"
var Version string

// Resolve returns the linker-provided version, then the module version, then "dev".
func Resolve() string {
	if Version != "" {
		return Version
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}
