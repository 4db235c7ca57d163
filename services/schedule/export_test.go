package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kaelianbaudelet/WSPS/lib/timezone"
)

func TestExportICS(t *testing.T) {
	instructor := "Dupont Jean"
	classroom := "B204"
	campus := "Arras"

	version := &ScheduleVersion{
		CreatedAt: timezone.Date(2025, time.February, 3),
		Events: []EventVersion{
			{
				ChangeType: ChangeAdded,
				Event: Event{
					Hash:         "hash-a",
					Title:        "Programmation Web",
					Instructor:   &instructor,
					ClassGroup:   "B3 DEV",
					StartTime:    timezone.Date(2025, time.February, 3).Add(8*time.Hour + 30*time.Minute),
					EndTime:      timezone.Date(2025, time.February, 3).Add(10*time.Hour + 30*time.Minute),
					Classroom:    &classroom,
					Campus:       &campus,
					DeliveryMode: "in_person",
				},
			},
			{
				ChangeType: ChangeRemoved,
				Event:      Event{Hash: "hash-gone", Title: "Anglais"},
			},
			{
				ChangeType: ChangeUnchanged,
				Event: Event{
					Hash:         "hash-b",
					Title:        "Soutenance",
					ClassGroup:   "B3 DEV",
					StartTime:    timezone.Date(2025, time.February, 4).Add(14 * time.Hour),
					EndTime:      timezone.Date(2025, time.February, 4).Add(15 * time.Hour),
					DeliveryMode: "remote",
				},
			},
		},
	}

	feed := ExportICS(Schedule{Name: "B3 DEV"}, version)

	require.Contains(t, feed, "BEGIN:VCALENDAR")
	require.Contains(t, feed, "SUMMARY:Programmation Web")
	require.Contains(t, feed, "UID:hash-a")
	require.Contains(t, feed, "LOCATION:B204 (Arras)")
	require.Contains(t, feed, "LOCATION:Distanciel")
	require.NotContains(t, feed, "Anglais", "removed events stay out of the feed")
	require.Equal(t, 2, strings.Count(feed, "BEGIN:VEVENT"))
}
