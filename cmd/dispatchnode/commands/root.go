// Package commands implements the dispatchnode CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dispatchnode",
	Short: "dispatchnode runs and inspects a dispatch transport node",
	Long: `dispatchnode runs a standalone dispatch node: a TCP transport
endpoint, its multiplexer, and the dispatcher that routes local and
remote DispatchData through it.

Use "dispatchnode [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/dispatch/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(peersCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
