package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Show version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := rootOpts.Build
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Justice Client\nVersion:    %s\nBuild Date: %s\nGit Commit: %s\n",
				b.Version, b.BuildDate, b.GitCommit)
			return err
		},
	}
}
