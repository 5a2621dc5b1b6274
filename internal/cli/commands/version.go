package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdplyr/pkg/dplyr"
	"github.com/leapstack-labs/leapdplyr/pkg/host"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display leapdplyr, transpiler engine and available host versions.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leapdplyr v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "dplyr engine v%s\n", dplyr.New().Version())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "hosts: %s\n", strings.Join(host.List(), ", "))
		},
	}
}
