// Package cli provides the cadoptd command-line interface: one root
// command, one file per subcommand group, flags registered from init().
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cadoptd",
	Short: "CAD parameter optimization orchestrator",
	Long: `cadoptd is both the orchestrator daemon ("cadoptd serve") and its own
client: submit optimization requests, poll or stream task progress, fetch
parameter recommendations, and manage the result cache against a running
instance over its HTTP API.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "addr", "http://127.0.0.1:8085", "cadoptd API base URL")
}

// Execute runs the root command, exiting the process with a non-zero
// status on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
