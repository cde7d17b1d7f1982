// Command cadoptd is the CAD parameter optimization orchestrator: run
// "cadoptd serve" to start the daemon, or any other subcommand to act as
// a client against a running instance.
package main

import "github.com/holomesh/cadopt/internal/cli"

func main() {
	cli.Execute()
}
