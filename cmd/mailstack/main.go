package main

import (
	"mailstack/internal/cli"
	_ "mailstack/internal/fetcher/providers"
	_ "mailstack/internal/probe/checks"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
