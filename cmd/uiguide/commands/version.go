package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uiguide/uiguide-go/internal/version"
)

// NewVersionCmd constructs the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the uiguide version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "uiguide %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.BuildDate)
		},
	}
}
