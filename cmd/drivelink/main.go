// Drivelink - CLI client for the Drivelink file storage service.
package main

import (
	"os"

	"github.com/drivelink/drivelink/internal/cli"
	"github.com/drivelink/drivelink/internal/version"
)

// Version information, overridden by the Makefile via LDFLAGS.
var (
	Version   = "v1.0.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
