// Package availability derives room occupancy, meeting lists and bookable
// durations from a room's events and a reference instant.
package availability

import (
	"sort"
	"time"

	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/timeutil"
)

type Status string

const (
	StatusOccupied  Status = "occupied"
	StatusSoon      Status = "soon"
	StatusAvailable Status = "available"
)

const (
	// SoonWindow is how close the next meeting must be for a free room to
	// be reported as soon.
	SoonWindow = 15 * time.Minute
	// UpcomingWindow bounds UpcomingMeetings.
	UpcomingWindow = 30 * time.Minute
	// LaterThreshold bounds LaterMeetings.
	LaterThreshold = 24 * time.Hour
)

// RoomStatus is the occupancy classification of a room at an instant.
// Meeting is the current meeting when occupied and the next one when soon.
type RoomStatus struct {
	Status       Status        `json:"status"`
	Meeting      *model.Event  `json:"meeting,omitempty"`
	MinutesUntil int           `json:"minutes_until,omitempty"`
	Until        time.Duration `json:"-"`
}

// CurrentMeeting returns the first event, in list order, that contains now.
// Both bounds are inclusive.
func CurrentMeeting(events []model.Event, now time.Time) (model.Event, bool) {
	for _, e := range events {
		if e.Contains(now) {
			return e, true
		}
	}
	return model.Event{}, false
}

// NextMeeting returns the earliest event starting strictly after now.
func NextMeeting(events []model.Event, now time.Time) (model.Event, bool) {
	var next model.Event
	found := false
	for _, e := range events {
		if !e.StartTime.After(now) {
			continue
		}
		if !found || startsBefore(e, next) {
			next = e
			found = true
		}
	}
	return next, found
}

// Classify computes the room status at now.
func Classify(events []model.Event, now time.Time) RoomStatus {
	if current, ok := CurrentMeeting(events, now); ok {
		return RoomStatus{Status: StatusOccupied, Meeting: &current}
	}

	next, ok := NextMeeting(events, now)
	if ok {
		until := next.StartTime.Sub(now)
		if until > 0 && until <= SoonWindow {
			return RoomStatus{
				Status:       StatusSoon,
				Meeting:      &next,
				MinutesUntil: int(until / time.Minute),
				Until:        until,
			}
		}
	}

	return RoomStatus{Status: StatusAvailable}
}

// TodaysMeetings returns the events starting on now's calendar day, in now's
// location, ordered by start time.
func TodaysMeetings(events []model.Event, now time.Time) []model.Event {
	var today []model.Event
	for _, e := range events {
		if timeutil.SameDay(now, e.StartTime) {
			today = append(today, e)
		}
	}
	SortByStart(today)
	return today
}

// UpcomingMeetings returns the events that have not started yet and start
// within UpcomingWindow of now.
func UpcomingMeetings(events []model.Event, now time.Time) []model.Event {
	var upcoming []model.Event
	for _, e := range events {
		until := e.StartTime.Sub(now)
		if until > 0 && until < UpcomingWindow {
			upcoming = append(upcoming, e)
		}
	}
	SortByStart(upcoming)
	return upcoming
}

// LaterMeetings returns the events starting more than LaterThreshold after now.
func LaterMeetings(events []model.Event, now time.Time) []model.Event {
	cutoff := now.Add(LaterThreshold)
	var later []model.Event
	for _, e := range events {
		if e.StartTime.After(cutoff) {
			later = append(later, e)
		}
	}
	SortByStart(later)
	return later
}

// CanDelete reports whether userID may delete e from the dashboard: only the
// owner, and only before the meeting starts.
func CanDelete(e model.Event, userID int64, now time.Time) bool {
	if e.UserID != userID {
		return false
	}
	return now.Before(e.StartTime)
}

// SortByStart orders events by start time, then by ID.
func SortByStart(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return startsBefore(events[i], events[j])
	})
}

func startsBefore(a, b model.Event) bool {
	if !a.StartTime.Equal(b.StartTime) {
		return a.StartTime.Before(b.StartTime)
	}
	return a.ID < b.ID
}
