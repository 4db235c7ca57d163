package edt

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// timestampLayout is the local wall-clock form events are stored in.
// The portal renders French local time with no offset, so none is kept.
const timestampLayout = "2006-01-02T15:04:05"

const (
	DeliveryInPerson = "in_person"
	DeliveryRemote   = "remote"
)

// Event is one timetable slot as rendered by the portal.
type Event struct {
	Title      string
	Instructor *string
	Program    *string
	ClassGroup string
	StartTime  time.Time
	EndTime    time.Time
	Classroom  *string
	Campus     *string
	Delivery   string
	Color      string
}

// Duration reports the slot length in whole minutes.
func (e Event) Duration() int {
	return int(e.EndTime.Sub(e.StartTime) / time.Minute)
}

// canonicalEvent is the exact shape hashed by Fingerprint. Field order
// and json tags are part of the identity contract and must not change,
// or every stored event would be re-identified on the next sync.
type canonicalEvent struct {
	Title      string  `json:"title"`
	Instructor *string `json:"instructor"`
	Program    *string `json:"program"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Duration   int     `json:"duration"`
	WeekDay    string  `json:"week_day"`
	Classroom  *string `json:"classroom"`
	Campus     *string `json:"campus"`
	Delivery   string  `json:"delivery_mode"`
	Color      string  `json:"color"`
	ClassGroup string  `json:"class_group"`
}

// Fingerprint derives the content hash identifying this event across
// syncs. Any attribute change yields a new identity.
func (e Event) Fingerprint() string {
	canonical := canonicalEvent{
		Title:      e.Title,
		Instructor: e.Instructor,
		Program:    e.Program,
		StartTime:  e.StartTime.Format(timestampLayout),
		EndTime:    e.EndTime.Format(timestampLayout),
		Duration:   e.Duration(),
		WeekDay:    e.StartTime.Weekday().String(),
		Classroom:  e.Classroom,
		Campus:     e.Campus,
		Delivery:   e.Delivery,
		Color:      e.Color,
		ClassGroup: e.ClassGroup,
	}
	encoded, err := json.Marshal(canonical)
	if err != nil {
		// canonicalEvent contains nothing json.Marshal can reject
		panic(err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}
