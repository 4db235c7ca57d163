package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kaelianbaudelet/WSPS/lib/serviceutil"
	"github.com/kaelianbaudelet/WSPS/lib/telemetry"
	"github.com/kaelianbaudelet/WSPS/services/schedule"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the sync daemon, refreshing every schedule on its cadence.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := serviceutil.SignalContext()
		config := loadConfig()

		t, err := telemetry.SetupFromEnv(ctx, "wspsd")
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		defer t.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)

		service := openService(config)

		scheduler := schedule.NewCronScheduler(func(ctx context.Context, job schedule.SyncJob) {
			_, _, err := service.Sync(ctx, job.ScheduleID)
			if err != nil {
				slog.Error("scheduled sync failed", "schedule", job.ScheduleID, "err", err)
			}
		})

		schedules, err := service.Store().Schedules(ctx)
		if err != nil {
			serviceutil.Fatal("failed to list schedules", err)
		}
		for _, sched := range schedules {
			err := scheduler.Register(sched.ID, sched.SyncInterval)
			if err != nil {
				serviceutil.Fatal("failed to register schedule", err)
			}
		}

		scheduler.Start()
		slog.Info("sync daemon running", "schedules", len(schedules))
		<-ctx.Done()
		scheduler.Stop()
	},
}
