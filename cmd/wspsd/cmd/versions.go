package cmd

import (
	"log"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kaelianbaudelet/WSPS/services/schedule"
)

func init() {
	rootCmd.AddCommand(versionsCmd)
}

var versionsCmd = &cobra.Command{
	Use:   "versions <schedule-id>",
	Short: "Lists the version history of a schedule.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service := openService(loadConfig())

		versions, err := service.Store().Versions(cmd.Context(), args[0])
		if err != nil {
			log.Fatal(err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Version", "Reason", "Created", "Added", "Removed", "Unchanged"})
		for _, summary := range versions {
			version, err := service.Store().Version(cmd.Context(), args[0], summary.VersionNumber)
			if err != nil {
				log.Fatal(err)
			}
			counts := map[string]int{}
			for _, ev := range version.Events {
				counts[ev.ChangeType]++
			}
			t.AppendRow(table.Row{
				version.VersionNumber,
				version.Reason,
				version.CreatedAt.Format("2006-01-02 15:04"),
				counts[schedule.ChangeAdded],
				counts[schedule.ChangeRemoved],
				counts[schedule.ChangeUnchanged],
			})
		}
		t.Render()
	},
}
