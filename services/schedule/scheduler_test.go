package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCronSpec(t *testing.T) {
	for interval, want := range map[SyncInterval]string{
		IntervalMin15:  "*/15 * * * *",
		IntervalHour1:  "0 * * * *",
		IntervalDaily:  "0 0 * * *",
		IntervalWeekly: "0 0 * * 0",
	} {
		spec, err := CronSpec(interval)
		require.NoError(t, err)
		require.Equal(t, want, spec)
	}

	_, err := CronSpec(SyncInterval("fortnightly"))
	require.Error(t, err)
}

func TestCronSchedulerRegisterReplaces(t *testing.T) {
	scheduler := NewCronScheduler(func(ctx context.Context, job SyncJob) {})

	require.NoError(t, scheduler.Register("sched-1", IntervalHour1))
	require.NoError(t, scheduler.Register("sched-1", IntervalDaily))
	require.NoError(t, scheduler.Register("sched-2", IntervalHour1))
	require.Len(t, scheduler.entries, 2)
	require.Len(t, scheduler.cron.Entries(), 2, "re-registering must replace the old cron entry")

	scheduler.Remove("sched-1")
	require.Len(t, scheduler.entries, 1)
	require.Len(t, scheduler.cron.Entries(), 1)

	require.Error(t, scheduler.Register("sched-3", SyncInterval("never")))
}
