package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/energizer-project/craftlure/internal/cli"
	"github.com/energizer-project/craftlure/internal/network"
)

func probeCmd() *cobra.Command {
	var (
		timeout time.Duration
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "probe <host[:port]>",
		Short: "Query the status of a server",
		Long: `Perform the client side of the status flow (handshake, status request,
ping) against a server and print what it reports. Useful for checking a
running craftlure instance or comparing it with a real server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := args[0]
			if _, _, err := net.SplitHostPort(addr); err != nil {
				addr = net.JoinHostPort(addr, "25565")
			}

			result, err := network.Probe(cmd.Context(), addr, timeout)
			if err != nil {
				return err
			}

			if raw {
				fmt.Fprintln(cmd.OutOrStdout(), result.RawJSON)
				return nil
			}
			cli.RenderProbe(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "Dial and exchange timeout")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the raw status document")

	return cmd
}
