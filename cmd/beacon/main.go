// Command beacon is the SDK's companion tool: configuration validation,
// scenario simulation, and failed-event replay.
package main

import (
	"os"

	"github.com/beacon-analytics/beacon-go/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
