package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <schedule-id>",
	Short: "Deletes a schedule with its whole version history.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service := openService(loadConfig())
		if err := service.Store().DeleteSchedule(cmd.Context(), args[0]); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("deleted schedule %s\n", args[0])
	},
}
