package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/kaelianbaudelet/WSPS/services/schedule"
)

func init() {
	exportCmd.Flags().Int("version", 0, "version number to export (defaults to the latest)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <schedule-id>",
	Short: "Writes a schedule version as an iCalendar feed to stdout.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		number, _ := cmd.Flags().GetInt("version")

		service := openService(loadConfig())
		sched, err := service.Store().ScheduleByID(cmd.Context(), args[0])
		if err != nil {
			log.Fatal(err)
		}

		var version *schedule.ScheduleVersion
		if number > 0 {
			version, err = service.Store().Version(cmd.Context(), sched.ID, number)
		} else {
			version, err = service.Store().LatestVersion(cmd.Context(), sched.ID)
		}
		if err != nil {
			log.Fatal(err)
		}
		if version == nil {
			log.Fatalf("schedule %s has no versions yet", sched.ID)
		}

		fmt.Print(schedule.ExportICS(sched, version))
	},
}
