package cmd

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kaelianbaudelet/WSPS/services/schedule"
)

func init() {
	createCmd.Flags().String("school", "", "school id the schedule belongs to")
	createCmd.Flags().String("interval", string(schedule.IntervalHour1), "sync interval (min15, min30, hour1, hour3, hour6, hour12, daily, weekly, biweekly, monthly)")
	createCmd.MarkFlagRequired("school")
	rootCmd.AddCommand(createCmd)
}

// promptCredentials reads the portal login from the terminal, with the
// password not echoed.
func promptCredentials() (username, password string, err error) {
	fmt.Print("Username: ")
	reader := bufio.NewReader(os.Stdin)
	username, err = reader.ReadString('\n')
	if err != nil {
		return "", "", err
	}

	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(username), string(raw), nil
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Creates a schedule: tests the credentials, then runs the first sync.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		schoolID, _ := cmd.Flags().GetString("school")
		interval, _ := cmd.Flags().GetString("interval")
		if _, err := schedule.CronSpec(schedule.SyncInterval(interval)); err != nil {
			log.Fatal(err)
		}

		username, password, err := promptCredentials()
		if err != nil {
			log.Fatal(err)
		}

		service := openService(loadConfig())
		created, result, err := service.CreateSchedule(cmd.Context(), schedule.CreateScheduleParams{
			Name:     args[0],
			SchoolID: schoolID,
			Interval: schedule.SyncInterval(interval),
			Username: username,
			Password: password,
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("created schedule %s with %d events\n", created.ID, len(result.Data))
	},
}
