package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "commit-on-branch %s\n", orUnknown(info.Version))
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", orUnknown(info.Commit))
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", orUnknown(info.Date))
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
