// Package version carries build metadata stamped in by the linker.
package version

import (
	"fmt"
	"runtime"
)

const Name = "livetune"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("%s %s (commit=%s, date=%s, go=%s)", Name, Version, Commit, Date, runtime.Version())
}
