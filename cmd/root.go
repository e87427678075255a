// Package cmd provides command-line interface commands for dbboot.
package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Global flags
var (
	outputJSON bool
	noColor    bool
	quiet      bool
)

// NewRootCmd creates the root dbboot command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dbboot",
		Short: "Bootstrap a document database connection",
		Long: `dbboot establishes a connection to a document database and guarantees
the target database exists before declaring the connection usable.

Configuration comes from config.yaml and DBBOOT_-prefixed environment
variables.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")

	rootCmd.AddCommand(newEnsureCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}
