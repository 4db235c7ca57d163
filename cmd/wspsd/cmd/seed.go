package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kaelianbaudelet/WSPS/services/schedule"
)

func init() {
	rootCmd.AddCommand(seedCmd)
}

type seedSchool struct {
	Name       string `yaml:"name"`
	LoginURL   string `yaml:"login_url"`
	ServiceURL string `yaml:"service_url"`
	FetchURL   string `yaml:"fetch_url"`
	ServerID   string `yaml:"server_id"`
	Hash       string `yaml:"hash"`
}

type seedFile struct {
	Schools []seedSchool `yaml:"schools"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <schools.yaml>",
	Short: "Creates or refreshes schools from a yaml file.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatal(err)
		}
		var seed seedFile
		if err := yaml.Unmarshal(raw, &seed); err != nil {
			log.Fatal(err)
		}

		service := openService(loadConfig())
		for _, school := range seed.Schools {
			stored, err := service.Store().UpsertSchool(cmd.Context(), schedule.School{
				Name:       school.Name,
				LoginURL:   school.LoginURL,
				ServiceURL: school.ServiceURL,
				FetchURL:   school.FetchURL,
				ServerID:   school.ServerID,
				Hash:       school.Hash,
			})
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%s\t%s\n", stored.ID, stored.Name)
		}
	},
}
