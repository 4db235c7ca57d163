package edt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/kaelianbaudelet/WSPS/lib/timezone"
)

var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
}

var frenchDays = map[string]time.Weekday{
	"lundi":    time.Monday,
	"mardi":    time.Tuesday,
	"mercredi": time.Wednesday,
	"jeudi":    time.Thursday,
	"vendredi": time.Friday,
	"samedi":   time.Saturday,
	"dimanche": time.Sunday,
}

// resolveFrenchDate turns a yearless day header like "Lundi 3 Février"
// into a concrete date. The header carries no year, so candidates are
// built for the year around the queried week and the closest one whose
// weekday matches the header wins.
func resolveFrenchDate(label string, around time.Time) (time.Time, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(label)))
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("malformed day header %q", label)
	}

	weekday, ok := frenchDays[fields[0]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown weekday in day header %q", label)
	}
	day, err := strconv.Atoi(fields[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad day number in day header %q", label)
	}
	month, ok := frenchMonths[fields[2]]
	if !ok {
		return time.Time{}, fmt.Errorf("unknown month in day header %q", label)
	}

	// distances are compared in UTC so a DST shift inside the window
	// cannot tip the choice between two candidate years
	ref := time.Date(around.Year(), around.Month(), around.Day(), 0, 0, 0, 0, time.UTC)

	var best time.Time
	bestDelta := time.Duration(-1)
	for _, year := range []int{around.Year() - 1, around.Year(), around.Year() + 1} {
		candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if candidate.Day() != day || candidate.Month() != month {
			continue // e.g. 29 février in a non-leap year
		}
		if candidate.Weekday() != weekday {
			continue
		}
		delta := candidate.Sub(ref)
		if delta < 0 {
			delta = -delta
		}
		if bestDelta < 0 || delta < bestDelta {
			best, bestDelta = candidate, delta
		}
	}
	if bestDelta < 0 {
		return time.Time{}, fmt.Errorf("no plausible date for day header %q", label)
	}
	return timezone.Date(best.Year(), best.Month(), best.Day()), nil
}

// parseClock reads a "HH:MM - HH:MM" range from a .TChdeb cell and
// anchors both ends on the given date.
func parseClock(text string, date time.Time) (start, end time.Time, err error) {
	parts := strings.Split(text, "-")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("malformed time range %q", text)
	}
	start, err = clockOn(strings.TrimSpace(parts[0]), date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err = clockOn(strings.TrimSpace(parts[1]), date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func clockOn(clock string, date time.Time) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed clock %q", clock)
	}
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0,
		date.Location(),
	), nil
}

func capitalize(word string) string {
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	return string(unicode.ToUpper(runes[0])) + strings.ToLower(string(runes[1:]))
}

func capitalizeWords(s string) string {
	fields := strings.Fields(s)
	for i, field := range fields {
		fields[i] = capitalize(field)
	}
	return strings.Join(fields, " ")
}
