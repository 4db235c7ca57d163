package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaelianbaudelet/WSPS/lib/configutil"
	"github.com/kaelianbaudelet/WSPS/lib/credvault"
	"github.com/kaelianbaudelet/WSPS/lib/serviceutil"
	"github.com/kaelianbaudelet/WSPS/lib/telemetry"
	"github.com/kaelianbaudelet/WSPS/services/schedule"
)

type DatabaseConfig struct {
	Path string `json:"path"`
}

type SyncConfig struct {
	MaxConcurrentWeeks int    `json:"max_concurrent_weeks"`
	Retries            int    `json:"retries"`
	RetryWaitMs        int    `json:"retry_wait_ms"`
	DefaultCampus      string `json:"default_campus"`
}

type Config struct {
	Database DatabaseConfig `json:"database"`
	// EncryptionKey is the base64 form of the 32-byte AES key the
	// credential payloads are sealed with.
	EncryptionKey string     `json:"encryption_key"`
	Sync          SyncConfig `json:"sync"`
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "wspsd",
	Short: "wspsd scrapes school timetable portals and versions the results.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() Config {
	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return config
}

func openService(config Config) schedule.Service {
	key, err := credvault.KeyFromBase64(config.EncryptionKey)
	if err != nil {
		serviceutil.Fatal("failed to read encryption key", err)
	}

	db, err := schedule.OpenDB(config.Database.Path)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	return schedule.NewService(schedule.NewStore(db), key, schedule.SyncOptions{
		MaxConcurrentWeeks: config.Sync.MaxConcurrentWeeks,
		Retries:            config.Sync.Retries,
		RetryWait:          time.Duration(config.Sync.RetryWaitMs) * time.Millisecond,
		DefaultCampus:      config.Sync.DefaultCampus,
	})
}
