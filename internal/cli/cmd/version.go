package cmd

import (
	"lanlink-core/internal/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := newOutput(cmd)
		out.Plain("LanLink %s", version.GetVersion())
		out.Plain("  %s", version.Platform())

		eng := newEngine()
		if eng.Available() {
			out.Plain("  overlay engine: available")
		} else {
			out.Plain("  overlay engine: unavailable (%s)", eng.LoadError())
		}
	},
}
