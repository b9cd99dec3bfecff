// craftlure is a decoy block-game server. It answers server-list status
// probes and offline-mode login attempts, records the remote address and
// username of each, and fans the events out to logs, a webhook, MQTT and
// Prometheus metrics.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	commit = "none"
	date   = "unknown"
)

const banner = `
   ___           __ _   _
  / __|_ _ __ _ / _| |_| |_  _ _ _ ___
 | (__| '_/ _' |  _|  _| | || | '_/ -_)
  \___|_| \__,_|_|  \__|_|\_,_|_| \___|  v%s
`

func main() {
	var opts serveOptions

	rootCmd := &cobra.Command{
		Use:   "craftlure",
		Short: "Decoy block-game server that records probes and login attempts",
		Long: `craftlure listens like a block-game server, answers status probes with a
configurable status document and accepts offline-mode logins, reporting the
remote address (and username for logins) of every visitor.

Running craftlure without a subcommand is the same as "craftlure serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	// Flags live on the root so that both "craftlure -w URL" and
	// "craftlure serve -w URL" work.
	opts.register(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		serveCmd(&opts),
		probeCmd(),
		identityCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
