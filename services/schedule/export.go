package schedule

import (
	"fmt"

	ics "github.com/arran4/golang-ical"

	"github.com/kaelianbaudelet/WSPS/lib/scrapers/edt"
)

// ExportICS renders a version's active events as an iCalendar feed,
// one VEVENT per event keyed by its content hash.
func ExportICS(schedule Schedule, version *ScheduleVersion) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//WSPS//Timetable//FR")
	cal.SetXWRCalName(schedule.Name)

	for _, event := range version.ActiveEvents() {
		entry := cal.AddEvent(event.Hash)
		entry.SetCreatedTime(version.CreatedAt)
		entry.SetDtStampTime(version.CreatedAt)
		entry.SetStartAt(event.StartTime)
		entry.SetEndAt(event.EndTime)
		entry.SetSummary(event.Title)

		description := event.ClassGroup
		if event.Program != nil {
			description = fmt.Sprintf("%s - %s", event.ClassGroup, *event.Program)
		}
		if event.Instructor != nil {
			description = fmt.Sprintf("%s\n%s", *event.Instructor, description)
		}
		entry.SetDescription(description)

		if event.DeliveryMode == edt.DeliveryRemote {
			entry.SetLocation("Distanciel")
		} else if event.Classroom != nil && event.Campus != nil {
			entry.SetLocation(fmt.Sprintf("%s (%s)", *event.Classroom, *event.Campus))
		} else if event.Campus != nil {
			entry.SetLocation(*event.Campus)
		}
	}
	return cal.Serialize()
}
