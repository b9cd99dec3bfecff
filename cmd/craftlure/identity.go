package main

import (
	"github.com/spf13/cobra"

	"github.com/energizer-project/craftlure/internal/cli"
)

func identityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identity <username>...",
		Short: "Print the offline-mode UUID for usernames",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cli.RenderIdentity(cmd.OutOrStdout(), args)
		},
	}
}
