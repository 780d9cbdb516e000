package availability

import (
	"time"

	"github.com/dukerupert/roomboard/internal/model"
)

// RoomSnapshot is everything a room view shows, derived at one instant.
type RoomSnapshot struct {
	Room         model.Room    `json:"room"`
	At           time.Time     `json:"at"`
	Status       Status        `json:"status"`
	MinutesUntil int           `json:"minutes_until,omitempty"`
	Current      *model.Event  `json:"current,omitempty"`
	Next         *model.Event  `json:"next,omitempty"`
	Today        []model.Event `json:"today"`
	Timeline     []Block       `json:"timeline"`
	// Stale marks a snapshot derived from events held over after a failed
	// refresh.
	Stale bool `json:"stale,omitempty"`
}

// Summarize derives a RoomSnapshot for room from its events at now.
func Summarize(room model.Room, events []model.Event, now time.Time) RoomSnapshot {
	status := Classify(events, now)
	snap := RoomSnapshot{
		Room:         room,
		At:           now,
		Status:       status.Status,
		MinutesUntil: status.MinutesUntil,
		Today:        TodaysMeetings(events, now),
		Timeline:     Timeline(events, now, DefaultWindow),
	}
	if snap.Today == nil {
		snap.Today = []model.Event{}
	}
	if snap.Timeline == nil {
		snap.Timeline = []Block{}
	}
	if current, ok := CurrentMeeting(events, now); ok {
		snap.Current = &current
	}
	if next, ok := NextMeeting(events, now); ok {
		snap.Next = &next
	}
	return snap
}

// RoomEvents filters events down to those booked in roomID.
func RoomEvents(events []model.Event, roomID int64) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.RoomID == roomID {
			out = append(out, e)
		}
	}
	return out
}

// FreeRooms returns the rooms that are not occupied at now.
func FreeRooms(rooms []model.Room, events []model.Event, now time.Time) []model.Room {
	var free []model.Room
	for _, r := range rooms {
		if _, busy := CurrentMeeting(RoomEvents(events, r.ID), now); !busy {
			free = append(free, r)
		}
	}
	return free
}
