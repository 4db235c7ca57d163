package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/kaelianbaudelet/WSPS/services/schedule"
)

func init() {
	updateCmd.Flags().String("name", "", "new schedule name")
	updateCmd.Flags().String("interval", "", "new sync interval")
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update <schedule-id>",
	Short: "Renames a schedule or changes its sync interval.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		interval, _ := cmd.Flags().GetString("interval")

		service := openService(loadConfig())
		current, err := service.Store().ScheduleByID(cmd.Context(), args[0])
		if err != nil {
			log.Fatal(err)
		}
		if interval == "" {
			interval = string(current.SyncInterval)
		}

		updated, err := service.UpdateSchedule(cmd.Context(), args[0], name, schedule.SyncInterval(interval))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("updated schedule %s (%s, %s)\n", updated.ID, updated.Name, updated.SyncInterval)
	},
}
