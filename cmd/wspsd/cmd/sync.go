package cmd

import (
	"fmt"
	"log"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kaelianbaudelet/WSPS/services/schedule"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync <schedule-id>...",
	Short: "Runs a one-off sync of the given schedules.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service := openService(loadConfig())

		t := newTable()
		t.AppendHeader(table.Row{"Schedule", "Status", "Version", "Added", "Removed", "Unchanged"})

		for _, scheduleID := range args {
			result, version, err := service.Sync(cmd.Context(), scheduleID)
			if err != nil {
				log.Fatal(err)
			}
			if version == nil {
				t.AppendRow(table.Row{scheduleID, fmt.Sprintf("error: %s", result.Error), "-", "-", "-", "-"})
				continue
			}

			counts := map[string]int{}
			for _, ev := range version.Events {
				counts[ev.ChangeType]++
			}
			t.AppendRow(table.Row{
				scheduleID,
				result.Status,
				version.VersionNumber,
				counts[schedule.ChangeAdded],
				counts[schedule.ChangeRemoved],
				counts[schedule.ChangeUnchanged],
			})
		}
		t.Render()
	},
}
