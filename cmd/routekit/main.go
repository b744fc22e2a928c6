package main

import (
	"routekit/pkg/shutdown"
)

// build metadata, set via ldflags
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		shutdown.Abort("routekit", err, 0)
	}
}
