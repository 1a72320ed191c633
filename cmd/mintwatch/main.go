// Package main is the entry point for the mintwatch CLI.
package main

import (
	"os"

	"github.com/mintwatch/mintwatch/internal/cli"
)

// Set via -ldflags at release time.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	info := cli.BuildInfo{Version: version, Commit: commit, Date: date}
	if err := cli.Execute(info); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
