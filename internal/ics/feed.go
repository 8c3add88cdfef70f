package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/reminder-bot/internal/persistence"
)

// defaultEventDuration is used for calendar rendering; stored events carry
// a single point in time.
const defaultEventDuration = 30 * time.Minute

// Feed renders a user's upcoming events as an iCalendar document.
type Feed struct {
	productID string
}

// NewFeed creates a feed generator. productID appears as the calendar
// PRODID; empty selects a default.
func NewFeed(productID string) *Feed {
	if productID == "" {
		productID = "-//reminder-bot//calendar//EN"
	}
	return &Feed{productID: productID}
}

// Build serializes the instances into an iCalendar document. Event times
// are wall-clock values in the owner's timezone and are exported as the
// corresponding instants.
func (f *Feed) Build(owner persistence.User, instances []persistence.Instance) string {
	loc := time.UTC
	if owner.Timezone != "" {
		if parsed, err := time.LoadLocation(owner.Timezone); err == nil {
			loc = parsed
		}
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(f.productID)
	cal.SetXWRCalName("Reminders")

	for _, instance := range instances {
		wall := instance.EventTime
		start := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)

		event := cal.AddEvent(instance.ID)
		event.SetCreatedTime(instance.CreatedAt)
		event.SetDtStampTime(instance.CreatedAt)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(defaultEventDuration))
		event.SetSummary(instance.Description)
		if instance.Confirmed {
			event.SetStatus(ical.ObjectStatusConfirmed)
		} else {
			event.SetStatus(ical.ObjectStatusTentative)
		}
	}

	return cal.Serialize()
}
