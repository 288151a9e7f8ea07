// Package cli implements the command-line interface for litrev.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

var rootCmd = &cobra.Command{
	Use:   "litrev",
	Short: "Research literature review orchestrator with agent peer review",
	Long: `Litrev drives a drafting agent and a peer-review agent through bounded
revision rounds: the researcher drafts a literature review, the reviewer
evaluates it and issues a verdict, and the loop revises until the review
passes or the iteration cap is reached. All agent activity streams in
real time.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(researchCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workflowCmd)
	rootCmd.AddCommand(configCmd)
}
