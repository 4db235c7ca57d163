package schedule

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kaelianbaudelet/WSPS/lib/timezone"
)

func testStore(t *testing.T) Store {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "wsps.db"))
	require.NoError(t, err)
	return NewStore(db)
}

func storedEvent(title, hash string) Event {
	return Event{
		Hash:         hash,
		Title:        title,
		ClassGroup:   "B3 DEV",
		StartTime:    timezone.Date(2025, time.February, 3).Add(8 * time.Hour),
		EndTime:      timezone.Date(2025, time.February, 3).Add(10 * time.Hour),
		Duration:     120,
		WeekDay:      "Monday",
		DeliveryMode: "in_person",
		Color:        "#808080",
	}
}

func TestUpsertSchoolRefreshesEndpoints(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first, err := store.UpsertSchool(ctx, School{Name: "ESPAS", LoginURL: "https://old.invalid/login"})
	require.NoError(t, err)

	second, err := store.UpsertSchool(ctx, School{Name: "ESPAS", LoginURL: "https://new.invalid/login"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	loaded, err := store.SchoolByName(ctx, "ESPAS")
	require.NoError(t, err)
	require.Equal(t, "https://new.invalid/login", loaded.LoginURL)
}

func TestAppendVersionNumbering(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	school, err := store.UpsertSchool(ctx, School{Name: "ESPAS"})
	require.NoError(t, err)
	schedule, err := store.CreateSchedule(ctx, Schedule{Name: "B3 DEV", SchoolID: school.ID})
	require.NoError(t, err)

	latest, err := store.LatestVersion(ctx, schedule.ID)
	require.NoError(t, err)
	require.Nil(t, latest, "a schedule starts with no versions")

	v1, err := store.AppendVersion(ctx, schedule.ID, "Initial version", []VersionEntry{
		{Event: storedEvent("Programmation Web", "hash-a"), Change: ChangeAdded},
	})
	require.NoError(t, err)
	require.Equal(t, 1, v1.VersionNumber)

	v2, err := store.AppendVersion(ctx, schedule.ID, "Auto sync", []VersionEntry{
		{Event: storedEvent("Programmation Web", "hash-a"), Change: ChangeUnchanged},
		{Event: storedEvent("Anglais", "hash-b"), Change: ChangeAdded},
	})
	require.NoError(t, err)
	require.Equal(t, 2, v2.VersionNumber)
	require.Len(t, v2.Events, 2)

	// hash-a was deduplicated, not stored twice
	var count int64
	require.NoError(t, store.db.Model(&Event{}).Count(&count).Error)
	require.EqualValues(t, 2, count)

	latest, err = store.LatestVersion(ctx, schedule.ID)
	require.NoError(t, err)
	require.Equal(t, 2, latest.VersionNumber)
}

func TestActiveEventsExcludeRemoved(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	school, err := store.UpsertSchool(ctx, School{Name: "ESPAS"})
	require.NoError(t, err)
	schedule, err := store.CreateSchedule(ctx, Schedule{Name: "B3 DEV", SchoolID: school.ID})
	require.NoError(t, err)

	version, err := store.AppendVersion(ctx, schedule.ID, "Auto sync", []VersionEntry{
		{Event: storedEvent("Programmation Web", "hash-a"), Change: ChangeUnchanged},
		{Event: storedEvent("Anglais", "hash-b"), Change: ChangeRemoved},
		{Event: storedEvent("Base de Données", "hash-c"), Change: ChangeAdded},
	})
	require.NoError(t, err)

	active := version.ActiveEvents()
	require.Len(t, active, 2)
	for _, event := range active {
		require.NotEqual(t, "hash-b", event.Hash)
	}
}

func TestDeleteScheduleCollectsOrphans(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	school, err := store.UpsertSchool(ctx, School{Name: "ESPAS"})
	require.NoError(t, err)
	doomed, err := store.CreateSchedule(ctx, Schedule{Name: "B3 DEV", SchoolID: school.ID})
	require.NoError(t, err)
	survivor, err := store.CreateSchedule(ctx, Schedule{Name: "B2 DEV", SchoolID: school.ID})
	require.NoError(t, err)

	_, err = store.AppendVersion(ctx, doomed.ID, "Initial version", []VersionEntry{
		{Event: storedEvent("Programmation Web", "hash-a"), Change: ChangeAdded},
		{Event: storedEvent("Anglais", "hash-shared"), Change: ChangeAdded},
	})
	require.NoError(t, err)
	_, err = store.AppendVersion(ctx, survivor.ID, "Initial version", []VersionEntry{
		{Event: storedEvent("Anglais", "hash-shared"), Change: ChangeAdded},
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteSchedule(ctx, doomed.ID))

	_, err = store.ScheduleByID(ctx, doomed.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var hashes []string
	require.NoError(t, store.db.Model(&Event{}).Order("hash").Pluck("hash", &hashes).Error)
	require.Equal(t, []string{"hash-shared"}, hashes, "only the orphaned event is collected")

	latest, err := store.LatestVersion(ctx, survivor.ID)
	require.NoError(t, err)
	require.Len(t, latest.ActiveEvents(), 1)
}
