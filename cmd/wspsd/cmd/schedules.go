package cmd

import (
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func init() {
	rootCmd.AddCommand(schedulesCmd)
}

var schedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "Lists the tracked schedules and their latest versions.",
	Run: func(cmd *cobra.Command, args []string) {
		service := openService(loadConfig())

		schedules, err := service.Store().Schedules(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"ID", "Name", "School", "Interval", "Version", "Events"})
		for _, sched := range schedules {
			latest, err := service.Store().LatestVersion(cmd.Context(), sched.ID)
			if err != nil {
				log.Fatal(err)
			}
			versionNumber, events := 0, 0
			if latest != nil {
				versionNumber = latest.VersionNumber
				events = len(latest.ActiveEvents())
			}
			t.AppendRow(table.Row{
				sched.ID,
				sched.Name,
				sched.School.Name,
				sched.SyncInterval,
				versionNumber,
				events,
			})
		}
		t.Render()
	},
}
