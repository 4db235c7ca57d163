package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/kaelianbaudelet/WSPS/lib/credvault"
	"github.com/kaelianbaudelet/WSPS/lib/serviceutil"
)

func init() {
	rootCmd.AddCommand(encryptCmd)
}

// encryptCmd exists for ops: it produces the same payload CreateSchedule
// stores, so a credential rotation can be written straight to the
// database without re-running the initial sync.
var encryptCmd = &cobra.Command{
	Use:   "encrypt-credentials",
	Short: "Encrypts portal credentials into a storable payload.",
	Run: func(cmd *cobra.Command, args []string) {
		config := loadConfig()
		key, err := credvault.KeyFromBase64(config.EncryptionKey)
		if err != nil {
			serviceutil.Fatal("failed to read encryption key", err)
		}

		username, password, err := promptCredentials()
		if err != nil {
			log.Fatal(err)
		}

		payload, err := credvault.EncryptJSON(key, credvault.Credentials{
			Username: username,
			Password: password,
		})
		if err != nil {
			log.Fatal(err)
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(string(encoded))
	},
}
