package cli

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "litctl",
	Short: "Schedule-driven setpoint playback for the LED bench device",
	Long: `litctl plays timed setpoint schedules against the LED bench device:
load a CSV or XLSX file of (time, set_point) rows, step or loop through it
while each setpoint is transmitted to the device, and watch live telemetry
through the optional web monitor.`,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("litctl version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
