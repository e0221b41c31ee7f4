// Package cli wires the Cobra command surface over the reconciliation engine:
// run (the single entrypoint a GitHub Actions step invokes), validate (a
// config sanity check that never touches git or the network), and version.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var overridePath string

var rootCmd = &cobra.Command{
	Use:   "reconcile-pr-action",
	Short: "Reconcile a working tree's changes onto a pull-request branch",
	Long: `reconcile-pr-action captures whatever is staged, committed, or lying
dirty in a working tree, rebases the net change onto a base branch, and
reconciles it with an existing pull-request branch, creating or updating the
branch and its pull request as needed.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&overridePath, "path", "p", "", "Path to an optional local config override file")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reconcile-pr-action %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
