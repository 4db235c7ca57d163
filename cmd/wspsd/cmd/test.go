package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(testCmd)
}

var testCmd = &cobra.Command{
	Use:   "test-connection <school-id>",
	Short: "Checks portal availability and credentials without storing anything.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service := openService(loadConfig())
		school, err := service.Store().SchoolByID(cmd.Context(), args[0])
		if err != nil {
			log.Fatal(err)
		}

		username, password, err := promptCredentials()
		if err != nil {
			log.Fatal(err)
		}

		if err := service.TestConnection(cmd.Context(), school, username, password); err != nil {
			log.Fatal(err)
		}
		fmt.Println("connection ok")
	},
}
