package edt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kaelianbaudelet/WSPS/lib/htmlutil"
)

// ParseOptions tunes week parsing. The zero value uses the live
// portal's grid markup and the "Arras" campus fallback.
type ParseOptions struct {
	// DefaultCampus is assumed when a room carries no campus suffix.
	DefaultCampus string
	Layout        Layout
}

const defaultCampus = "Arras"

var borderColorRe = regexp.MustCompile(`border\s*:\s*3px\s+solid\s*([^;]+)`)

const defaultColor = "#808080"

// ParseWeek extracts the events of the requested week from a rendered
// timetable page. queryDate is the date the page was fetched for; it
// anchors the resolution of the yearless French day headers.
//
// Parsing fails closed: one malformed event invalidates the whole week
// with ErrWeekValidation, so a half-read week can never masquerade as
// a real schedule change downstream.
func ParseWeek(doc *goquery.Document, queryDate time.Time, opts ParseOptions) ([]Event, error) {
	if opts.Layout == nil {
		opts.Layout = GridLayout{}
	}
	if opts.DefaultCampus == "" {
		opts.DefaultCampus = defaultCampus
	}

	columns := opts.Layout.DayColumns(doc)
	if len(columns) == 0 {
		// a week with no teaching renders an empty grid
		return nil, nil
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].Left < columns[j].Left })

	days := make([]time.Time, len(columns))
	for i, column := range columns {
		date, err := resolveFrenchDate(column.Label, queryDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWeekValidation, err)
		}
		days[i] = date
	}

	var events []Event
	for _, cell := range opts.Layout.EventCells(doc) {
		day, ok := dayFor(columns, cell.Left)
		if !ok {
			return nil, fmt.Errorf("%w: event cell at %.1f%% left of every day column", ErrWeekValidation, cell.Left)
		}
		event, ok, err := assembleEvent(cell.Sel, days[day], opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWeekValidation, err)
		}
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// dayFor maps a cell to the day column with the greatest left offset
// not exceeding the cell's own. columns must be sorted by Left.
func dayFor(columns []DayColumn, left float64) (int, bool) {
	day := -1
	for i, column := range columns {
		if column.Left <= left {
			day = i
		}
	}
	if day < 0 {
		return 0, false
	}
	return day, true
}

// assembleEvent reads one positioned cell. Cells without a title are
// grid filler and are skipped rather than treated as malformed.
func assembleEvent(sel *goquery.Selection, date time.Time, opts ParseOptions) (Event, bool, error) {
	title := strings.Join(strings.Fields(htmlutil.JoinDirectText(sel.Find("td.TCase").First())), " ")
	if title == "" {
		return Event{}, false, nil
	}

	clock := strings.TrimSpace(sel.Find(".TChdeb").First().Text())
	start, end, err := parseClock(clock, date)
	if err != nil {
		return Event{}, false, fmt.Errorf("event %q: %w", title, err)
	}

	event := Event{
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Delivery:  DeliveryInPerson,
		Color:     defaultColor,
	}

	// .TCProf holds the instructor on its first line and
	// "group - program" on its second, separated by <br>
	lines := htmlutil.DirectText(sel.Find(".TCProf").First())
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		instructor := capitalizeWords(lines[0])
		event.Instructor = &instructor
	}
	if len(lines) > 1 {
		group, program, found := strings.Cut(lines[1], " - ")
		event.ClassGroup = strings.TrimSpace(group)
		if found {
			program = strings.TrimSpace(program)
			if program != "" {
				event.Program = &program
			}
		}
	}

	parseRoom(strings.TrimSpace(sel.Find(".TCSalle").First().Text()), opts.DefaultCampus, &event)

	if style, ok := sel.Find(".innerCase").First().Attr("style"); ok {
		if match := borderColorRe.FindStringSubmatch(style); match != nil {
			event.Color = strings.TrimSpace(match[1])
		}
	}

	if err := validate(event); err != nil {
		return Event{}, false, err
	}
	return event, true, nil
}

var roomRe = regexp.MustCompile(`^Salle\s*:\s*(.*)$`)

// parseRoom fills the location fields from a "Salle:B204 (Arras)"
// style cell. Distanciel slots carry no physical location at all.
func parseRoom(text, fallbackCampus string, event *Event) {
	match := roomRe.FindStringSubmatch(text)
	if match == nil {
		// no room line still means an in-person event somewhere
		campus := fallbackCampus
		event.Campus = &campus
		return
	}
	room := strings.TrimSpace(match[1])

	if strings.Contains(strings.ToUpper(room), "(DISTANCIEL)") {
		event.Delivery = DeliveryRemote
		return
	}

	campus := fallbackCampus
	if open := strings.LastIndex(room, "("); open >= 0 && strings.HasSuffix(room, ")") {
		campus = strings.TrimSpace(room[open+1 : len(room)-1])
		room = strings.TrimSpace(room[:open])
	}
	event.Campus = &campus

	if !strings.EqualFold(room, "Aucune") && room != "" {
		event.Classroom = &room
	}
}

func validate(event Event) error {
	switch {
	case event.Title == "":
		return fmt.Errorf("event without title")
	case event.Instructor == nil:
		return fmt.Errorf("event %q has no instructor", event.Title)
	case event.StartTime.IsZero() || event.EndTime.IsZero():
		return fmt.Errorf("event %q has no time range", event.Title)
	case !event.EndTime.After(event.StartTime):
		return fmt.Errorf("event %q ends before it starts", event.Title)
	}
	return nil
}
