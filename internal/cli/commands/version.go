package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "mdcx v%s\n", version)
			if buildDate != "unknown" {
				_, _ = fmt.Fprintf(out, "built %s (%s)\n", buildDate, gitCommit)
			}
		},
	}
}
