// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "github-stars",
	Short: "Aggregate your repositories' stars in GitHub!",
	Long: `github-stars sums up the stars of every repository owned by a GitHub user
and, unless disabled, by the organizations the user is a member of.
All pages of repositories are requested concurrently.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Persistent logging flags, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level: error, warn, info or debug (default error, or $STARS_LOG_LEVEL)")
}
