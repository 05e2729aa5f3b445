package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.gitBranch=... -X main.gitSHA=...".
var (
	gitBranch = "unknown"
	gitSHA    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version information including git branch and commit SHA.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", gitBranch, gitSHA)
	},
}
