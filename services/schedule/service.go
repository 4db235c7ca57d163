package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kaelianbaudelet/WSPS/lib/credvault"
	"github.com/kaelianbaudelet/WSPS/lib/scrapers/edt"
	"github.com/kaelianbaudelet/WSPS/lib/timezone"
)

var tracer = otel.Tracer("services/schedule")

// SyncOptions bound one full-year scrape. Zero values fall back to 20
// concurrent weeks, 10 fetch retries 1s apart and the Arras campus.
type SyncOptions struct {
	MaxConcurrentWeeks int
	Retries            int
	RetryWait          time.Duration
	DefaultCampus      string

	// WindowStart and WindowEnd override the academic-year window,
	// mostly for tests and backfills.
	WindowStart time.Time
	WindowEnd   time.Time
}

func (o *SyncOptions) setDefaults() {
	if o.MaxConcurrentWeeks <= 0 {
		o.MaxConcurrentWeeks = 20
	}
	if o.Retries <= 0 {
		o.Retries = 10
	}
	if o.RetryWait <= 0 {
		o.RetryWait = time.Second
	}
	if o.DefaultCampus == "" {
		o.DefaultCampus = "Arras"
	}
}

type Service struct {
	store Store
	key   credvault.Key
	opts  SyncOptions
}

func NewService(store Store, key credvault.Key, opts SyncOptions) Service {
	opts.setDefaults()
	return Service{store: store, key: key, opts: opts}
}

func (s Service) Store() Store {
	return s.store
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome of one scrape across the whole window.
type Result struct {
	Status string
	Data   []edt.Event
	Error  string
}

func errorResult(err error) Result {
	return Result{Status: StatusError, Error: err.Error()}
}

func (s Service) clientOptions(school School) edt.ClientOptions {
	return edt.ClientOptions{
		LoginURL:   school.LoginURL,
		ServiceURL: school.ServiceURL,
		FetchURL:   school.FetchURL,
		ServerID:   school.ServerID,
		Hash:       school.Hash,
		Retries:    s.opts.Retries,
		RetryWait:  s.opts.RetryWait,
		Parse:      edt.ParseOptions{DefaultCampus: s.opts.DefaultCampus},
	}
}

// Scrape fetches every week of the window for one schedule. The portal
// is probed once up front and nothing is fetched while it is down.
// Decrypted credentials live only for the duration of the call.
func (s Service) Scrape(ctx context.Context, schedule Schedule) Result {
	ctx, span := tracer.Start(ctx, "Scrape", trace.WithAttributes(
		attribute.String("schedule.id", schedule.ID),
	))
	defer span.End()

	probe := edt.NewClient(s.clientOptions(schedule.School))
	if err := probe.CheckAvailability(ctx); err != nil {
		span.SetStatus(codes.Error, "portal unavailable")
		span.RecordError(err)
		return errorResult(err)
	}

	var payload credvault.Payload
	if err := json.Unmarshal([]byte(schedule.Credentials), &payload); err != nil {
		span.SetStatus(codes.Error, "bad credential payload")
		span.RecordError(err)
		return errorResult(fmt.Errorf("read credential payload: %w", err))
	}
	creds, err := credvault.DecryptJSON[credvault.Credentials](s.key, payload)
	if err != nil {
		span.SetStatus(codes.Error, "credential decryption failed")
		span.RecordError(err)
		return errorResult(fmt.Errorf("decrypt credentials: %w", err))
	}
	defer creds.Scrub()

	weeks := weekStarts(s.window())
	span.SetAttributes(attribute.Int("weeks.total", len(weeks)))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		events    []edt.Event
		succeeded int
	)
	// plain channel semaphore, one portal session per week
	semaphore := make(chan struct{}, s.opts.MaxConcurrentWeeks)

	for _, week := range weeks {
		wg.Add(1)
		go func(week time.Time) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			weekEvents, err := s.scrapeWeek(ctx, schedule.School, creds, week)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// every per-week failure is contained: the week is
				// omitted from the snapshot and the sync carries on
				slog.Warn("dropping week from snapshot",
					"schedule", schedule.ID, "week", week.Format("2006-01-02"), "err", err)
				return
			}
			events = append(events, weekEvents...)
			succeeded++
		}(week)
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("weeks.succeeded", succeeded))

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].StartTime.Before(events[j].StartTime)
		}
		return events[i].Title < events[j].Title
	})
	return Result{Status: StatusSuccess, Data: events}
}

func (s Service) scrapeWeek(ctx context.Context, school School, creds credvault.Credentials, week time.Time) ([]edt.Event, error) {
	client := edt.NewClient(s.clientOptions(school))
	if err := client.Login(ctx, creds.Username, creds.Password); err != nil {
		return nil, err
	}
	return client.ScrapeWeek(ctx, week)
}

// Sync scrapes a schedule and appends the resulting version. A failed
// scrape records nothing.
func (s Service) Sync(ctx context.Context, scheduleID string) (Result, *ScheduleVersion, error) {
	ctx, span := tracer.Start(ctx, "Sync", trace.WithAttributes(
		attribute.String("schedule.id", scheduleID),
	))
	defer span.End()

	schedule, err := s.store.ScheduleByID(ctx, scheduleID)
	if err != nil {
		span.SetStatus(codes.Error, "unknown schedule")
		span.RecordError(err)
		return Result{}, nil, fmt.Errorf("load schedule %s: %w", scheduleID, err)
	}

	result := s.Scrape(ctx, schedule)
	if result.Status != StatusSuccess {
		slog.Error("sync scrape failed", "schedule", scheduleID, "err", result.Error)
		return result, nil, nil
	}

	version, err := s.appendVersion(ctx, scheduleID, result.Data)
	if err != nil {
		span.SetStatus(codes.Error, "version append failed")
		span.RecordError(err)
		return result, nil, err
	}
	slog.Info("sync complete",
		"schedule", scheduleID,
		"version", version.VersionNumber,
		"events", len(result.Data))
	return result, version, nil
}

const (
	reasonInitial = "Initial version"
	reasonSync    = "Auto sync"
)

// appendVersion classifies a scraped snapshot against the latest
// version and writes the next one. Removed events stay in the version
// with their previous data so history keeps what disappeared.
func (s Service) appendVersion(ctx context.Context, scheduleID string, scraped []edt.Event) (*ScheduleVersion, error) {
	byHash := make(map[string]edt.Event, len(scraped))
	var next []string
	for _, event := range scraped {
		hash := event.Fingerprint()
		if _, seen := byHash[hash]; seen {
			continue
		}
		byHash[hash] = event
		next = append(next, hash)
	}

	latest, err := s.store.LatestVersion(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	reason := reasonSync
	var prev []string
	prevEvents := make(map[string]Event)
	if latest == nil {
		reason = reasonInitial
	} else {
		for _, event := range latest.ActiveEvents() {
			prev = append(prev, event.Hash)
			prevEvents[event.Hash] = event
		}
	}

	diff := DiffFingerprints(prev, next)

	var entries []VersionEntry
	for _, hash := range diff.Unchanged {
		entries = append(entries, VersionEntry{Event: prevEvents[hash], Change: ChangeUnchanged})
	}
	for _, hash := range diff.Removed {
		entries = append(entries, VersionEntry{Event: prevEvents[hash], Change: ChangeRemoved})
	}
	for _, hash := range diff.Added {
		entries = append(entries, VersionEntry{Event: toModel(byHash[hash]), Change: ChangeAdded})
	}
	return s.store.AppendVersion(ctx, scheduleID, reason, entries)
}

func toModel(event edt.Event) Event {
	return Event{
		Hash:         event.Fingerprint(),
		Title:        event.Title,
		Instructor:   event.Instructor,
		Program:      event.Program,
		ClassGroup:   event.ClassGroup,
		StartTime:    event.StartTime,
		EndTime:      event.EndTime,
		Duration:     event.Duration(),
		WeekDay:      event.StartTime.Weekday().String(),
		Classroom:    event.Classroom,
		Campus:       event.Campus,
		DeliveryMode: event.Delivery,
		Color:        event.Color,
	}
}

// CreateScheduleParams carry the plaintext credentials exactly once,
// into CreateSchedule, which encrypts them before anything is stored.
type CreateScheduleParams struct {
	Name     string
	SchoolID string
	Interval SyncInterval
	Username string
	Password string
}

// CreateSchedule verifies the credentials against the live portal,
// runs the first sync, and only then stores the schedule with the
// credentials encrypted. A failed first sync persists nothing.
func (s Service) CreateSchedule(ctx context.Context, params CreateScheduleParams) (Schedule, Result, error) {
	ctx, span := tracer.Start(ctx, "CreateSchedule")
	defer span.End()

	school, err := s.store.SchoolByID(ctx, params.SchoolID)
	if err != nil {
		return Schedule{}, Result{}, fmt.Errorf("load school %s: %w", params.SchoolID, err)
	}

	client := edt.NewClient(s.clientOptions(school))
	if err := client.TestCredentials(ctx, params.Username, params.Password); err != nil {
		span.SetStatus(codes.Error, "credential test failed")
		span.RecordError(err)
		return Schedule{}, Result{}, err
	}

	payload, err := credvault.EncryptJSON(s.key, credvault.Credentials{
		Username: params.Username,
		Password: params.Password,
	})
	if err != nil {
		return Schedule{}, Result{}, fmt.Errorf("encrypt credentials: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Schedule{}, Result{}, err
	}

	// test-then-populate: the schedule row only exists once the first
	// scrape came back clean
	result := s.Scrape(ctx, Schedule{
		Name:        params.Name,
		SchoolID:    school.ID,
		School:      school,
		Credentials: string(encoded),
	})
	if result.Status != StatusSuccess {
		span.SetStatus(codes.Error, "first sync failed")
		return Schedule{}, result, fmt.Errorf("first sync failed: %s", result.Error)
	}

	schedule, err := s.store.CreateSchedule(ctx, Schedule{
		Name:         params.Name,
		SchoolID:     school.ID,
		Credentials:  string(encoded),
		SyncInterval: params.Interval,
	})
	if err != nil {
		return Schedule{}, result, err
	}
	if _, err := s.appendVersion(ctx, schedule.ID, result.Data); err != nil {
		span.SetStatus(codes.Error, "version append failed")
		span.RecordError(err)
		return schedule, result, err
	}
	slog.Info("schedule created", "schedule", schedule.ID, "events", len(result.Data))
	return schedule, result, nil
}

// UpdateSchedule renames a schedule or changes its cadence. The caller
// re-registers the schedule with its Scheduler when the interval moved.
func (s Service) UpdateSchedule(ctx context.Context, scheduleID, name string, interval SyncInterval) (Schedule, error) {
	if _, err := CronSpec(interval); err != nil {
		return Schedule{}, err
	}
	schedule, err := s.store.ScheduleByID(ctx, scheduleID)
	if err != nil {
		return Schedule{}, fmt.Errorf("load schedule %s: %w", scheduleID, err)
	}
	if name != "" {
		schedule.Name = name
	}
	schedule.SyncInterval = interval
	if err := s.store.UpdateSchedule(ctx, schedule); err != nil {
		return Schedule{}, err
	}
	return schedule, nil
}

// TestConnection checks portal availability and the given credentials
// without touching the store.
func (s Service) TestConnection(ctx context.Context, school School, username, password string) error {
	client := edt.NewClient(s.clientOptions(school))
	return client.TestCredentials(ctx, username, password)
}

// window returns the scrape window, defaulting to the running academic
// year: September 1st through the following August 30th.
func (s Service) window() (time.Time, time.Time) {
	if !s.opts.WindowStart.IsZero() && !s.opts.WindowEnd.IsZero() {
		return s.opts.WindowStart, s.opts.WindowEnd
	}
	now := timezone.Now()
	year := now.Year()
	if now.Month() < time.September {
		year--
	}
	return timezone.Date(year, time.September, 1), timezone.Date(year+1, time.August, 30)
}

// weekStarts lists the Monday of every week in the window.
func weekStarts(start, end time.Time) []time.Time {
	var weeks []time.Time
	last := mondayOf(end)
	for week := mondayOf(start); !week.After(last); week = week.AddDate(0, 0, edt.WeekStride) {
		weeks = append(weeks, week)
	}
	return weeks
}

func mondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return timezone.Date(t.Year(), t.Month(), t.Day()).AddDate(0, 0, -offset)
}
