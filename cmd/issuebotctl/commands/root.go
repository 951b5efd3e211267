// Package commands holds the issuebotctl cobra command tree: one
// flag-bound file per subcommand under a single cobra root.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// RootCmd is the issuebotctl entrypoint: an administrative client
// against a running issuebotd, never the server itself (that is
// cmd/issuebotd's job, a single binary with no subcommands).
var RootCmd = &cobra.Command{
	Use:   "issuebotctl",
	Short: "Administrative CLI for the issue bot",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to config.yaml")
}

// Execute runs the command tree, exiting the process on error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
