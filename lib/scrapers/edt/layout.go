package edt

import (
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/kaelianbaudelet/WSPS/lib/htmlutil"
)

// The portal renders two weeks side by side on one absolute-position
// grid. The requested week always occupies the second horizontal band.
const (
	currentWeekBandMin = 100
	currentWeekBandMax = 200
)

// WeekStride is the number of days between consecutive fetchable weeks.
const WeekStride = 7

// DayColumn is one day header with its horizontal position on the grid.
type DayColumn struct {
	Left  float64
	Label string
}

// EventCell is one positioned timetable cell.
type EventCell struct {
	Left float64
	Sel  *goquery.Selection
}

// Layout extracts the positioned pieces of a rendered week from the
// page. It exists so the parser survives a portal facelift with a new
// adapter rather than a rewrite.
type Layout interface {
	DayColumns(doc *goquery.Document) []DayColumn
	EventCells(doc *goquery.Document) []EventCell
}

var leftOffsetRe = regexp.MustCompile(`left\s*:\s*([\d.]+)%`)

// GridLayout reads the absolutely-positioned markup the portal has
// shipped for years: .Jour/.TCJour day headers and .Case event cells,
// both placed with a percentage left offset.
type GridLayout struct{}

func (GridLayout) DayColumns(doc *goquery.Document) []DayColumn {
	var columns []DayColumn
	doc.Find(".Jour").Each(func(_ int, sel *goquery.Selection) {
		left, ok := leftOffset(sel)
		if !ok || !inCurrentWeekBand(left) {
			return
		}
		var label string
		if header := sel.Find(".TCJour").First(); len(header.Nodes) > 0 {
			label = htmlutil.GetText(header.Nodes[0])
		}
		columns = append(columns, DayColumn{Left: left, Label: label})
	})
	return columns
}

func (GridLayout) EventCells(doc *goquery.Document) []EventCell {
	var cells []EventCell
	doc.Find(".Case").Each(func(_ int, sel *goquery.Selection) {
		left, ok := leftOffset(sel)
		if !ok || !inCurrentWeekBand(left) {
			return
		}
		cells = append(cells, EventCell{Left: left, Sel: sel})
	})
	return cells
}

func inCurrentWeekBand(left float64) bool {
	return left >= currentWeekBandMin && left < currentWeekBandMax
}

func leftOffset(sel *goquery.Selection) (float64, bool) {
	style, ok := sel.Attr("style")
	if !ok {
		return 0, false
	}
	match := leftOffsetRe.FindStringSubmatch(style)
	if match == nil {
		return 0, false
	}
	left, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return left, true
}
