// Package calendarfeed renders room schedules as iCalendar documents.
package calendarfeed

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/dukerupert/roomboard/internal/availability"
	"github.com/dukerupert/roomboard/internal/model"
)

const productID = "-//roomboard//room schedule//EN"

// ContentType is the media type of an encoded feed.
const ContentType = "text/calendar; charset=utf-8"

// Build creates a calendar holding room's events, ordered by start time.
func Build(room model.Room, events []model.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", room.Name)

	sorted := append([]model.Event(nil), events...)
	availability.SortByStart(sorted)

	for _, e := range sorted {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, UID(e))
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStart, e.StartTime.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, e.EndTime.UTC())
		ev.Props.SetText(ical.PropSummary, e.Title)
		if e.Description != "" {
			ev.Props.SetText(ical.PropDescription, e.Description)
		}
		location := room.Name
		if room.Location != "" {
			location = room.Name + ", " + room.Location
		}
		ev.Props.SetText(ical.PropLocation, location)
		cal.Children = append(cal.Children, ev.Component)
	}
	return cal
}

// Write encodes the room's calendar to w.
func Write(w io.Writer, room model.Room, events []model.Event, stamp time.Time) error {
	if err := ical.NewEncoder(w).Encode(Build(room, events, stamp)); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// UID is the stable iCalendar identifier of an event.
func UID(e model.Event) string {
	return fmt.Sprintf("event-%d-room-%d@roomboard", e.ID, e.RoomID)
}
