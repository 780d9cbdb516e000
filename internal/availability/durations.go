package availability

import (
	"time"

	"github.com/dukerupert/roomboard/internal/model"
	"github.com/dukerupert/roomboard/internal/timeutil"
)

// DurationLadder lists the booking lengths offered to users, in minutes.
var DurationLadder = []int{15, 30, 45, 60}

// AvailableDurations returns the ladder entries that can be booked in a room
// starting at start. The booking may not run past the next event that starts
// at or after start, nor past the end of start's day. The event with ID
// excludeID, the one being edited, is ignored; pass 0 when creating.
func AvailableDurations(roomEvents []model.Event, start time.Time, excludeID int64) []int {
	maxEnd := timeutil.EndOfDay(start)

	next, ok := nextStartingFrom(roomEvents, start, excludeID)
	if ok && next.StartTime.Before(maxEnd) {
		maxEnd = next.StartTime
	}

	return fitLadder(int(maxEnd.Sub(start) / time.Minute))
}

// FitsDuration reports whether minutes is one of the available durations.
func FitsDuration(roomEvents []model.Event, start time.Time, excludeID int64, minutes int) bool {
	for _, d := range AvailableDurations(roomEvents, start, excludeID) {
		if d == minutes {
			return true
		}
	}
	return false
}

// Conflicts returns the events, other than excludeID, that overlap the
// half-open span [start, end).
func Conflicts(roomEvents []model.Event, start, end time.Time, excludeID int64) []model.Event {
	var out []model.Event
	for _, e := range roomEvents {
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if e.StartTime.Before(end) && start.Before(e.EndTime) {
			out = append(out, e)
		}
	}
	SortByStart(out)
	return out
}

func nextStartingFrom(events []model.Event, start time.Time, excludeID int64) (model.Event, bool) {
	var next model.Event
	found := false
	for _, e := range events {
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if e.StartTime.Before(start) {
			continue
		}
		if !found || startsBefore(e, next) {
			next = e
			found = true
		}
	}
	return next, found
}

func fitLadder(maxMinutes int) []int {
	out := []int{}
	for _, d := range DurationLadder {
		if d <= maxMinutes {
			out = append(out, d)
		}
	}
	return out
}
