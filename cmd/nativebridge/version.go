package main

import (
	"runtime"

	"github.com/spf13/cobra"
)

func versionCmd(g *globals) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version, commit, and build information for the nativebridge CLI.`,
		Run: func(cmd *cobra.Command, args []string) {
			if short {
				g.out.line("%s", version)
				return
			}
			g.out.heading("nativebridge")
			g.out.fields(
				"Version", version,
				"Commit", commit,
				"Built", date,
				"Go version", runtime.Version(),
				"OS/Arch", runtime.GOOS+"/"+runtime.GOARCH,
			)
			g.out.line("")
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}
