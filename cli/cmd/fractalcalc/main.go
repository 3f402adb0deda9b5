// Command fractalcalc runs fractal dimension estimates from the terminal and
// reads a running server's metrics. All commands live in internal/cli.
package main

import (
	"github.com/fractalscope/fractalscope/cli/internal/cli"
)

// Set at build time via -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
