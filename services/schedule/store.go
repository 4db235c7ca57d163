package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return Store{db: db}
}

// UpsertSchool creates a school by name or refreshes the endpoints of
// an existing one.
func (s Store) UpsertSchool(ctx context.Context, school School) (School, error) {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	var out School
	err := s.db.WithContext(ctx).
		Where(School{Name: school.Name}).
		Assign(School{
			LoginURL:   school.LoginURL,
			ServiceURL: school.ServiceURL,
			FetchURL:   school.FetchURL,
			ServerID:   school.ServerID,
			Hash:       school.Hash,
		}).
		Attrs(School{ID: school.ID}).
		FirstOrCreate(&out).Error
	if err != nil {
		return School{}, fmt.Errorf("upsert school %q: %w", school.Name, err)
	}
	return out, nil
}

func (s Store) SchoolByID(ctx context.Context, id string) (School, error) {
	var school School
	err := s.db.WithContext(ctx).First(&school, "id = ?", id).Error
	return school, err
}

func (s Store) SchoolByName(ctx context.Context, name string) (School, error) {
	var school School
	err := s.db.WithContext(ctx).First(&school, "name = ?", name).Error
	return school, err
}

func (s Store) Schools(ctx context.Context) ([]School, error) {
	var schools []School
	err := s.db.WithContext(ctx).Order("name").Find(&schools).Error
	return schools, err
}

func (s Store) CreateSchedule(ctx context.Context, schedule Schedule) (Schedule, error) {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	err := s.db.WithContext(ctx).Create(&schedule).Error
	if err != nil {
		return Schedule{}, fmt.Errorf("create schedule %q: %w", schedule.Name, err)
	}
	return schedule, nil
}

func (s Store) ScheduleByID(ctx context.Context, id string) (Schedule, error) {
	var schedule Schedule
	err := s.db.WithContext(ctx).Preload("School").First(&schedule, "id = ?", id).Error
	return schedule, err
}

func (s Store) Schedules(ctx context.Context) ([]Schedule, error) {
	var schedules []Schedule
	err := s.db.WithContext(ctx).Preload("School").Order("created_at").Find(&schedules).Error
	return schedules, err
}

func (s Store) UpdateSchedule(ctx context.Context, schedule Schedule) error {
	return s.db.WithContext(ctx).Omit("School", "Versions").Save(&schedule).Error
}

// LatestVersion returns the newest version with its events, or nil
// when the schedule has never been synced.
func (s Store) LatestVersion(ctx context.Context, scheduleID string) (*ScheduleVersion, error) {
	var version ScheduleVersion
	err := s.db.WithContext(ctx).
		Preload("Events.Event").
		Where("schedule_id = ?", scheduleID).
		Order("version_number desc").
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (s Store) Version(ctx context.Context, scheduleID string, number int) (*ScheduleVersion, error) {
	var version ScheduleVersion
	err := s.db.WithContext(ctx).
		Preload("Events.Event").
		Where("schedule_id = ? and version_number = ?", scheduleID, number).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (s Store) Versions(ctx context.Context, scheduleID string) ([]ScheduleVersion, error) {
	var versions []ScheduleVersion
	err := s.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("version_number").
		Find(&versions).Error
	return versions, err
}

// VersionEntry is one event going into a new version with its change
// classification.
type VersionEntry struct {
	Event  Event
	Change string
}

// AppendVersion writes the next version of a schedule in one
// transaction: the version number is allocated inside it, events are
// deduplicated by hash against the whole store, and a membership row
// is written per entry.
func (s Store) AppendVersion(ctx context.Context, scheduleID, reason string, entries []VersionEntry) (*ScheduleVersion, error) {
	version := ScheduleVersion{
		ID:         uuid.NewString(),
		ScheduleID: scheduleID,
		Reason:     reason,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last int
		err := tx.Model(&ScheduleVersion{}).
			Where("schedule_id = ?", scheduleID).
			Select("coalesce(max(version_number), 0)").
			Scan(&last).Error
		if err != nil {
			return err
		}
		version.VersionNumber = last + 1

		if err := tx.Create(&version).Error; err != nil {
			return err
		}

		for _, entry := range entries {
			event := entry.Event
			if event.ID == "" {
				event.ID = uuid.NewString()
			}
			var stored Event
			err := tx.Where(Event{Hash: event.Hash}).Attrs(event).FirstOrCreate(&stored).Error
			if err != nil {
				return err
			}
			membership := EventVersion{
				ID:                uuid.NewString(),
				ScheduleVersionID: version.ID,
				EventID:           stored.ID,
				ChangeType:        entry.Change,
			}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append version to schedule %s: %w", scheduleID, err)
	}
	return s.Version(ctx, scheduleID, version.VersionNumber)
}

// DeleteSchedule removes a schedule with all its versions, then
// garbage-collects events no remaining version references.
func (s Store) DeleteSchedule(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var versionIDs []string
		err := tx.Model(&ScheduleVersion{}).
			Where("schedule_id = ?", id).
			Pluck("id", &versionIDs).Error
		if err != nil {
			return err
		}

		if len(versionIDs) > 0 {
			err = tx.Where("schedule_version_id in ?", versionIDs).Delete(&EventVersion{}).Error
			if err != nil {
				return err
			}
		}
		if err := tx.Where("schedule_id = ?", id).Delete(&ScheduleVersion{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Schedule{}, "id = ?", id).Error; err != nil {
			return err
		}

		// events are shared across schedules by hash, so only drop the
		// ones nothing points at anymore
		return tx.
			Where("id not in (?)", tx.Model(&EventVersion{}).Select("event_id")).
			Delete(&Event{}).Error
	})
}
