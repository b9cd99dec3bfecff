package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/energizer-project/craftlure/internal/util"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, util.AppVersion)
				return
			}

			fmt.Fprintf(out, banner, util.AppVersion)
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Version:    %s\n", util.AppVersion)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Built:      %s\n", date)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only version number")

	return cmd
}
