package schedule

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// SyncInterval names one of the scheduler's refresh cadences.
type SyncInterval string

const (
	IntervalMin15    SyncInterval = "min15"
	IntervalMin30    SyncInterval = "min30"
	IntervalHour1    SyncInterval = "hour1"
	IntervalHour3    SyncInterval = "hour3"
	IntervalHour6    SyncInterval = "hour6"
	IntervalHour12   SyncInterval = "hour12"
	IntervalDaily    SyncInterval = "daily"
	IntervalWeekly   SyncInterval = "weekly"
	IntervalBiweekly SyncInterval = "biweekly"
	IntervalMonthly  SyncInterval = "monthly"
)

const (
	ChangeAdded     = "added"
	ChangeRemoved   = "removed"
	ChangeUnchanged = "unchanged"
)

// School carries the portal endpoints shared by every schedule of one
// institution. ServerID and Hash are issued by the portal operator.
type School struct {
	ID         string `gorm:"primaryKey;size:36"`
	Name       string `gorm:"uniqueIndex;size:255"`
	LoginURL   string `gorm:"type:text"`
	ServiceURL string `gorm:"type:text"`
	FetchURL   string `gorm:"type:text"`
	ServerID   string `gorm:"size:64"`
	Hash       string `gorm:"size:255"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Schedule is one tracked timetable: a school, an encrypted credential
// payload and a refresh cadence.
type Schedule struct {
	ID       string `gorm:"primaryKey;size:36"`
	Name     string `gorm:"index;size:255"`
	SchoolID string `gorm:"index;size:36"`
	School   School
	// Credentials holds the AES-256-GCM payload as JSON. Plaintext
	// credentials never touch the database.
	Credentials  string       `gorm:"type:text"`
	SyncInterval SyncInterval `gorm:"size:16"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Versions []ScheduleVersion `gorm:"foreignKey:ScheduleID"`
}

// Event is one content-addressed timetable slot. Events are immutable:
// any attribute change produces a row with a new hash, and versions
// point at rows by hash.
type Event struct {
	ID           string `gorm:"primaryKey;size:36"`
	Hash         string `gorm:"uniqueIndex;size:64"`
	Title        string `gorm:"type:text"`
	Instructor   *string
	Program      *string
	ClassGroup   string
	StartTime    time.Time `gorm:"index"`
	EndTime      time.Time
	Duration     int
	WeekDay      string  `gorm:"size:16"`
	Classroom    *string `gorm:"size:64"`
	Campus       *string `gorm:"size:64"`
	DeliveryMode string  `gorm:"size:16"`
	Color        string  `gorm:"size:32"`
	CreatedAt    time.Time
}

// ScheduleVersion is one append-only snapshot of a schedule. Version
// numbers are contiguous from 1 per schedule.
type ScheduleVersion struct {
	ID            string `gorm:"primaryKey;size:36"`
	ScheduleID    string `gorm:"index:idx_schedule_version,unique;size:36"`
	VersionNumber int    `gorm:"index:idx_schedule_version,unique"`
	Reason        string `gorm:"size:64"`
	CreatedAt     time.Time

	Events []EventVersion `gorm:"foreignKey:ScheduleVersionID"`
}

// EventVersion ties an event to a version with its change
// classification relative to the previous version.
type EventVersion struct {
	ID                string `gorm:"primaryKey;size:36"`
	ScheduleVersionID string `gorm:"index;size:36"`
	EventID           string `gorm:"index;size:36"`
	Event             Event
	ChangeType        string `gorm:"size:16"`
}

// ActiveEvents returns the version's events minus the removed ones,
// which are retained for history only.
func (v ScheduleVersion) ActiveEvents() []Event {
	var events []Event
	for _, ev := range v.Events {
		if ev.ChangeType == ChangeRemoved {
			continue
		}
		events = append(events, ev.Event)
	}
	return events
}

func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	err = db.AutoMigrate(
		&School{},
		&Schedule{},
		&Event{},
		&ScheduleVersion{},
		&EventVersion{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
