package cmd

import (
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var versionExtended bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printf(cmd, "%s %s\n", serviceName, versionInfo.Version)
		if !versionExtended {
			return
		}
		printf(cmd, "Commit:     %s\n", versionInfo.Commit)
		printf(cmd, "Built:      %s\n", versionInfo.BuildDate)
		printf(cmd, "Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		v := crucible.GetVersion()
		printf(cmd, "Gofulmen:   %s\n", v.Gofulmen)
		printf(cmd, "Crucible:   %s\n", v.Crucible)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&versionExtended, "extended", false, "Include commit, build and dependency versions")
}
