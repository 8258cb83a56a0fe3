package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version, commit, date := BuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "mailstack %s\ncommit: %s\nbuilt:  %s\n", version, commit, date)
		},
	}
}
