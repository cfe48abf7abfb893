// =============================================================================
// RFFA Reconciler - Version Command
// =============================================================================
//
// COMMAND USAGE:
//   rffa version
//
// OUTPUT:
//   RFFA Reconciler 1.0.0 (commit abc1234, built 2024-01-01)
//   Go:       go1.24.0 linux/amd64
//   Config:   config.yaml
//
// Version, Commit and BuildDate are set at build time:
//   go build -ldflags "-X 'github.com/ginjaninja78/rffa-reconciler/cmd.Version=1.0.0'"
//
// =============================================================================

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	Version   = "1.0.0"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the application version",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "RFFA Reconciler %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		fmt.Fprintf(out, "Go:       %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Config:   %s\n", cfgFile)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
