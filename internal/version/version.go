// Package version reports the sqpool build version. It is recorded in MySQL
// connection attributes and in the query history.
package version

import "runtime/debug"

const devel = "devel"

// Version is set at build time with
// -ldflags "-X github.com/sheenazien8/sqpool/internal/version.Version=v1.2.3"
var Version string

func init() {
	Version = resolve(Version, debug.ReadBuildInfo)
}

// resolve prefers the linker-provided version, then the module version from
// build info (go install), then "devel".
func resolve(linked string, readBuildInfo func() (*debug.BuildInfo, bool)) string {
	if linked != "" {
		return linked
	}
	info, ok := readBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return devel
	}
	return info.Main.Version
}
