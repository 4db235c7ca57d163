package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// SyncJob identifies one scheduled refresh.
type SyncJob struct {
	ScheduleID string
}

// Scheduler drives periodic syncs. Register replaces any existing
// registration for the same schedule.
type Scheduler interface {
	Register(scheduleID string, interval SyncInterval) error
	Remove(scheduleID string)
}

var intervalCron = map[SyncInterval]string{
	IntervalMin15:    "*/15 * * * *",
	IntervalMin30:    "*/30 * * * *",
	IntervalHour1:    "0 * * * *",
	IntervalHour3:    "0 */3 * * *",
	IntervalHour6:    "0 */6 * * *",
	IntervalHour12:   "0 */12 * * *",
	IntervalDaily:    "0 0 * * *",
	IntervalWeekly:   "0 0 * * 0",
	IntervalBiweekly: "0 0 1,15 * *",
	IntervalMonthly:  "0 0 1 * *",
}

// CronSpec translates a sync interval to its cron expression.
func CronSpec(interval SyncInterval) (string, error) {
	spec, ok := intervalCron[interval]
	if !ok {
		return "", fmt.Errorf("unknown sync interval %q", interval)
	}
	return spec, nil
}

// CronScheduler runs sync jobs on cron cadences, one entry per
// schedule.
type CronScheduler struct {
	cron *cron.Cron
	run  func(ctx context.Context, job SyncJob)

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewCronScheduler(run func(ctx context.Context, job SyncJob)) *CronScheduler {
	return &CronScheduler{
		cron:    cron.New(),
		run:     run,
		entries: make(map[string]cron.EntryID),
	}
}

func (s *CronScheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs.
func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *CronScheduler) Register(scheduleID string, interval SyncInterval) error {
	spec, err := CronSpec(interval)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[scheduleID]; ok {
		s.cron.Remove(entry)
	}
	job := SyncJob{ScheduleID: scheduleID}
	entry, err := s.cron.AddFunc(spec, func() {
		s.run(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("register schedule %s: %w", scheduleID, err)
	}
	s.entries[scheduleID] = entry
	slog.Info("registered sync job", "schedule", scheduleID, "interval", interval, "cron", spec)
	return nil
}

func (s *CronScheduler) Remove(scheduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[scheduleID]; ok {
		s.cron.Remove(entry)
		delete(s.entries, scheduleID)
	}
}
